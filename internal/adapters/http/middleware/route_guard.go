package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

type DecisionObserver interface {
	ObserveDecision(d domain.Decision)
}

// RouteGuard applies the navigation decision of the session gate to page
// requests. A gate that is still restoring is waited on and asked again.
func RouteGuard(log ports.Logger, observer DecisionObserver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			path := req.URL.Path
			if domain.IsInternalPath(domain.NormalizePath(path)) {
				return next(c)
			}
			gate := GateFrom(c)
			if gate == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session not bound")
			}

			decision := gate.Decide(path)
			if decision.Action == domain.ActionWait {
				gate.Restore(req.Context())
				decision = gate.Decide(path)
			}
			if observer != nil {
				observer.ObserveDecision(decision)
			}
			if decision.Action != domain.ActionRedirect {
				return next(c)
			}
			log.Debug(req.Context(), "navigation redirected", "path", path, "location", decision.Location, "reason", decision.Reason)
			return c.Redirect(http.StatusFound, decision.Location)
		}
	}
}
