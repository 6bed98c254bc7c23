package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"sponsor-portal/internal/domain"
)

type Middleware struct {
	XRay           echo.MiddlewareFunc
	RequestLogger  echo.MiddlewareFunc
	Metrics        echo.MiddlewareFunc
	Session        echo.MiddlewareFunc
	RouteGuard     echo.MiddlewareFunc
	LoginLimit     echo.MiddlewareFunc
	MetricsHandler stdhttp.Handler
	RequestID      func() string
}

func newEcho(m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if m.RequestID != nil {
		e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: m.RequestID}))
	} else {
		e.Use(middleware.RequestID())
	}
	for _, mw := range []echo.MiddlewareFunc{m.XRay, m.RequestLogger, m.Metrics, m.Session, m.RouteGuard} {
		if mw != nil {
			e.Use(mw)
		}
	}
	return e
}

func NewRouter(h *Handlers, m Middleware) *echo.Echo {
	e := newEcho(m)
	e.GET("/health", h.Health)
	if m.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(m.MetricsHandler))
	}

	e.GET(domain.EntryRoute, h.Entry)
	if m.LoginLimit != nil {
		e.POST("/login", h.Login, m.LoginLimit)
	} else {
		e.POST("/login", h.Login)
	}
	e.POST("/logout", h.Logout)
	e.GET("/api/session", h.Session)

	e.GET(domain.RouteDashboard, h.Dashboard)
	e.GET(domain.RouteWorkers, h.Workers)
	e.GET(domain.RouteWorkers+"/:id", h.Worker)
	e.GET(domain.RoutePortal, h.Portal)
	e.GET(domain.RouteCalendar, h.Calendar)
	e.GET(domain.RouteReports+"/expiry.xlsx", h.ExpiryReport)
	return e
}
