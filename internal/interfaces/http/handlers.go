package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	adaptermiddleware "sponsor-portal/internal/adapters/http/middleware"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/infrastructure/report"
	"sponsor-portal/internal/ports"
)

type LoginObserver interface {
	ObserveLogin(outcome string)
}

type Handlers struct {
	compliance *application.ComplianceService
	calendar   *application.CalendarService
	logger     ports.Logger
	logins     LoginObserver
	now        ports.Clock
}

func NewHandlers(compliance *application.ComplianceService, calendar *application.CalendarService, logger ports.Logger, logins LoginObserver) *Handlers {
	return &Handlers{compliance: compliance, calendar: calendar, logger: logger, logins: logins, now: time.Now}
}

type sessionView struct {
	Identity domain.Identity `json:"identity"`
	Home     string          `json:"home"`
}

func (h *Handlers) observeLogin(outcome string) {
	if h.logins != nil {
		h.logins.ObserveLogin(outcome)
	}
}

func wantsJSON(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// navigate answers a form post with a 303 and an API call with the location.
func navigate(c echo.Context, d domain.Decision, body map[string]any) error {
	if wantsJSON(c) {
		if body == nil {
			body = map[string]any{}
		}
		body["redirect"] = d.Location
		return c.JSON(stdhttp.StatusOK, body)
	}
	return c.Redirect(stdhttp.StatusSeeOther, d.Location)
}

func gateOf(c echo.Context) (*application.SessionGate, error) {
	gate := adaptermiddleware.GateFrom(c)
	if gate == nil {
		return nil, errors.New("request has no session gate")
	}
	return gate, nil
}

// signedIn returns the gate and its credential, or ErrUnauthenticated.
func signedIn(c echo.Context) (*application.SessionGate, domain.Credential, error) {
	gate, err := gateOf(c)
	if err != nil {
		return nil, "", err
	}
	gate.Restore(c.Request().Context())
	credential, ok := gate.Credential()
	if !ok {
		return gate, "", domain.ErrUnauthenticated
	}
	return gate, credential, nil
}

// handleError maps err to a response. rejected is the credential the failed
// call was made with; a backend 401 expires the session only while the gate
// still holds it.
func (h *Handlers) handleError(c echo.Context, gate *application.SessionGate, rejected domain.Credential, err error) error {
	ctx := c.Request().Context()
	var backendErr *domain.BackendError
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Debug(ctx, "request abandoned by client", "path", c.Request().URL.Path)
		return nil
	case errors.Is(err, domain.ErrUnauthenticated):
		if gate != nil {
			gate.Expire(ctx, rejected)
		}
		if c.Request().Method == stdhttp.MethodGet && !wantsJSON(c) {
			return c.Redirect(stdhttp.StatusFound, domain.EntryRoute)
		}
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": "not signed in"})
	case errors.Is(err, domain.ErrPermissionDeny):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, domain.ErrInvalidDate):
		h.logger.Error(ctx, "backend returned malformed date", "error", err)
		return c.JSON(stdhttp.StatusBadGateway, map[string]string{"error": "backend returned malformed data"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": "not found"})
	case errors.As(err, &backendErr):
		h.logger.Warn(ctx, "backend error", "status", backendErr.Status, "error", err)
		return c.JSON(stdhttp.StatusBadGateway, map[string]string{"error": "backend unavailable"})
	default:
		h.logger.Error(ctx, "request failed", "error", err)
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
}

// Entry is the public login page.
func (h *Handlers) Entry(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{"page": "login"})
}

func (h *Handlers) Login(c echo.Context) error {
	gate, err := gateOf(c)
	if err != nil {
		return h.handleError(c, nil, "", err)
	}
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		h.observeLogin("rejected")
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	decision, err := gate.Login(c.Request().Context(), strings.TrimSpace(req.Email), req.Password)
	var backendErr *domain.BackendError
	switch {
	case err == nil:
		h.observeLogin("success")
		rotated, err := adaptermiddleware.RotateSession(c)
		if err != nil {
			return h.handleError(c, nil, "", err)
		}
		identity, _ := rotated.Identity()
		return navigate(c, decision, map[string]any{"identity": identity})
	case errors.Is(err, domain.ErrLoginFailed):
		h.observeLogin("failure")
		message := "login failed"
		if errors.As(err, &backendErr) && backendErr.Message != "" {
			message = backendErr.Message
		}
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": message})
	case errors.Is(err, domain.ErrInvalidInput):
		h.observeLogin("rejected")
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "email and password are required"})
	default:
		h.observeLogin("failure")
		return h.handleError(c, nil, "", err)
	}
}

func (h *Handlers) Logout(c echo.Context) error {
	gate, err := gateOf(c)
	if err != nil {
		return h.handleError(c, nil, "", err)
	}
	decision, err := gate.Logout(c.Request().Context())
	if err != nil {
		return h.handleError(c, nil, "", err)
	}
	if err := adaptermiddleware.EndSession(c); err != nil {
		return h.handleError(c, nil, "", err)
	}
	return navigate(c, decision, nil)
}

func (h *Handlers) Session(c echo.Context) error {
	gate, err := gateOf(c)
	if err != nil {
		return h.handleError(c, nil, "", err)
	}
	gate.Restore(c.Request().Context())
	identity, ok := gate.Identity()
	if !ok {
		return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": "not signed in"})
	}
	return c.JSON(stdhttp.StatusOK, sessionView{Identity: identity, Home: domain.HomeRoute(identity.Role)})
}

func (h *Handlers) Dashboard(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	dashboard, err := h.compliance.Dashboard(c.Request().Context(), credential)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	return c.JSON(stdhttp.StatusOK, dashboard)
}

func (h *Handlers) Workers(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	workers, err := h.compliance.Workers(c.Request().Context(), credential)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	return c.JSON(stdhttp.StatusOK, workers)
}

func (h *Handlers) Worker(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	worker, err := h.compliance.Worker(c.Request().Context(), credential, c.Param("id"))
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	return c.JSON(stdhttp.StatusOK, worker)
}

func (h *Handlers) Portal(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	identity, _ := gate.Identity()
	record, err := h.compliance.PortalRecord(c.Request().Context(), credential, identity)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	return c.JSON(stdhttp.StatusOK, record)
}

func (h *Handlers) Calendar(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	year, month := h.calendar.CurrentMonth()
	if v := c.QueryParam("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid year"})
		}
	}
	if v := c.QueryParam("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid month"})
		}
		month = time.Month(m)
	}
	view, err := h.calendar.Month(c.Request().Context(), credential, year, month)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	return c.JSON(stdhttp.StatusOK, view)
}

func (h *Handlers) ExpiryReport(c echo.Context) error {
	gate, credential, err := signedIn(c)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	workers, err := h.compliance.Workers(c.Request().Context(), credential)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	generated := h.now()
	raw, err := report.ExpiryWorkbook(workers, generated)
	if err != nil {
		return h.handleError(c, gate, credential, err)
	}
	filename := "expiry-report-" + generated.UTC().Format("2006-01-02") + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(stdhttp.StatusOK, report.ContentType, raw)
}
