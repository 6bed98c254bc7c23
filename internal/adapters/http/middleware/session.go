package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"sponsor-portal/internal/adapters/logger"
	"sponsor-portal/internal/application"
	"sponsor-portal/internal/domain"
	"sponsor-portal/internal/ports"
)

const (
	gateContextKey    = "session_gate"
	bindingContextKey = "session_binding"
)

var errNoSession = errors.New("request has no session gate")

type CookieCodec interface {
	Sign(sessionID string) (string, error)
	Verify(token string) (string, error)
	Cookie(value string) *http.Cookie
	ClearCookie() *http.Cookie
}

type sessionBinding struct {
	cookies  CookieCodec
	registry *application.SessionRegistry
}

func (b *sessionBinding) bind(c echo.Context, gate *application.SessionGate) {
	ctx := logger.WithSessionID(c.Request().Context(), gate.SessionID())
	c.SetRequest(c.Request().WithContext(ctx))
	c.Set(gateContextKey, gate)
}

// Session binds every request to the gate of its browser session, issuing a
// fresh signed cookie when the request carries none or an invalid one.
func Session(cookies CookieCodec, registry *application.SessionRegistry, log ports.Logger) echo.MiddlewareFunc {
	b := &sessionBinding{cookies: cookies, registry: registry}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if domain.IsSessionless(domain.NormalizePath(c.Request().URL.Path)) {
				return next(c)
			}

			sessionID := ""
			if cookie, err := c.Cookie(cookieName(cookies)); err == nil {
				sid, verr := cookies.Verify(cookie.Value)
				if verr == nil {
					sessionID = sid
				} else {
					log.Debug(c.Request().Context(), "session cookie rejected", "error", verr)
				}
			} else if !errors.Is(err, http.ErrNoCookie) {
				return err
			}
			if sessionID == "" {
				sessionID = registry.NewSessionID()
				token, err := cookies.Sign(sessionID)
				if err != nil {
					return err
				}
				c.SetCookie(cookies.Cookie(token))
			}

			c.Set(bindingContextKey, b)
			b.bind(c, registry.Gate(sessionID))
			return next(c)
		}
	}
}

func cookieName(cookies CookieCodec) string {
	return cookies.Cookie("").Name
}

// GateFrom returns the session gate bound by Session, or nil.
func GateFrom(c echo.Context) *application.SessionGate {
	gate, _ := c.Get(gateContextKey).(*application.SessionGate)
	return gate
}

func bindingFrom(c echo.Context) (*sessionBinding, *application.SessionGate, error) {
	b, _ := c.Get(bindingContextKey).(*sessionBinding)
	gate := GateFrom(c)
	if b == nil || gate == nil {
		return nil, nil, errNoSession
	}
	return b, gate, nil
}

// RotateSession moves the current session to a new id and sends the browser a
// cookie naming it. The old id stops resolving to the credential.
func RotateSession(c echo.Context) (*application.SessionGate, error) {
	b, gate, err := bindingFrom(c)
	if err != nil {
		return nil, err
	}
	nextID := b.registry.NewSessionID()
	token, err := b.cookies.Sign(nextID)
	if err != nil {
		return nil, err
	}
	next, err := b.registry.Rotate(context.WithoutCancel(c.Request().Context()), gate, nextID)
	if err != nil {
		return nil, err
	}
	c.SetCookie(b.cookies.Cookie(token))
	b.bind(c, next)
	return next, nil
}

// EndSession forgets the current session id and expires the browser cookie.
// The next request starts a new anonymous session.
func EndSession(c echo.Context) error {
	b, gate, err := bindingFrom(c)
	if err != nil {
		return err
	}
	b.registry.Drop(gate.SessionID())
	c.SetCookie(b.cookies.ClearCookie())
	return nil
}
