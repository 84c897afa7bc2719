package util

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
)

type loggerKeyType struct{}

var loggerKey = loggerKeyType{}

// Logger is a minimal interface allowing substitution (e.g., zap, logrus).
type Logger interface {
	Printf(format string, v ...any)
}

// RequestLogger holds request-scoped context to enrich logs.
type RequestLogger struct {
	logger Logger
	method string
	path   string
	user   string
}

// WithRequest creates a request-scoped logger wrapping the provided logger.
func WithRequest(l Logger, r *http.Request, user string) *RequestLogger {
	return &RequestLogger{
		logger: l,
		method: r.Method,
		path:   r.URL.Path,
		user:   user,
	}
}

// WithUser returns a copy of rl carrying the authenticated user.
func (rl *RequestLogger) WithUser(user string) *RequestLogger {
	out := *rl
	out.user = user
	return &out
}

// ContextWithLogger stores the request logger in context for downstream handlers.
func ContextWithLogger(ctx context.Context, rl *RequestLogger) context.Context {
	return context.WithValue(ctx, loggerKey, rl)
}

func (rl *RequestLogger) logf(level string, message string) {
	var b strings.Builder
	b.WriteString(level)
	if rl.method != "" {
		fmt.Fprintf(&b, " method=%s", rl.method)
	}
	if rl.path != "" {
		fmt.Fprintf(&b, " path=%s", rl.path)
	}
	if rl.user != "" {
		fmt.Fprintf(&b, " user=%s", rl.user)
	}

	rl.logger.Printf("%s: %s", b.String(), message)
}

func (rl *RequestLogger) Infof(format string, v ...any)  { rl.logf("INFO", fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Warnf(format string, v ...any)  { rl.logf("WARN", fmt.Sprintf(format, v...)) }
func (rl *RequestLogger) Errorf(format string, v ...any) { rl.logf("ERROR", fmt.Sprintf(format, v...)) }

// FromContext retrieves a request logger from context when available.
func FromContext(ctx context.Context) *RequestLogger {
	if ctx == nil {
		return nil
	}

	if rl, ok := ctx.Value(loggerKey).(*RequestLogger); ok {
		return rl
	}

	return nil
}

// LoggerFrom is FromContext with a fallback to the default logger for work outside a request.
func LoggerFrom(ctx context.Context) *RequestLogger {
	if rl := FromContext(ctx); rl != nil {
		return rl
	}

	return &RequestLogger{logger: log.Default()}
}
