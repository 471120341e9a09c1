package httpkit

import (
	"net/http"
	"time"

	"catalogsync/internal/platform/metrics"
	"catalogsync/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string
	Timeout     time.Duration
}

// CommonStack returns the baseline root middleware: correlation, recovery,
// access log, request metrics, health probe and CORS
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	stack := middleware.Defaults(o.Timeout)
	stack = append(stack,
		metrics.Middleware,
		middleware.Heartbeat("/health"),
	)
	if len(o.CORSOrigins) > 0 {
		stack = append(stack, middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}))
	}
	return stack
}
