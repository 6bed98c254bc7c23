package middleware

import (
	"strconv"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens one segment per request and records the request and
// response on it.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			req := c.Request().WithContext(ctx)
			c.SetRequest(req)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			seg.Lock()
			seg.GetHTTP().GetRequest().Method = req.Method
			seg.GetHTTP().GetRequest().URL = req.URL.Path
			seg.GetHTTP().GetResponse().Status = status
			switch {
			case status >= 500:
				seg.Fault = true
			case status == 429:
				seg.Throttle = true
				seg.Error = true
			case status >= 400:
				seg.Error = true
			}
			seg.Unlock()
			_ = seg.AddAnnotation("status", strconv.Itoa(status))
			seg.Close(nil)
			return nil
		}
	}
}
