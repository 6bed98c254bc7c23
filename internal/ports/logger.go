package ports

import (
	"context"
	"time"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
}

// Clock lets services be tested against a fixed "now".
type Clock func() time.Time
