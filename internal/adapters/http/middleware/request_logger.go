package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"sponsor-portal/internal/ports"
)

func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", c.Response().Status,
				"duration", time.Since(started).String(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if gate := GateFrom(c); gate != nil {
				if identity, ok := gate.Identity(); ok {
					args = append(args, "role", identity.Role)
				}
			}
			logger.Info(c.Request().Context(), "http request", args...)
			return nil
		}
	}
}
