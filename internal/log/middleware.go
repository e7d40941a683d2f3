package log

import (
	"context"
	"log/slog"
	"net/http"
)

// ContextKey type for context keys
type ContextKey string

// LoggerContextKey is the context key the request logger travels under.
const LoggerContextKey ContextKey = "logger"

// Middleware stores logger in every request context so handlers can
// retrieve it with FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request logger, or a default-backed one when
// the middleware did not run (tests, background jobs).
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger emits the domain events that have a fixed field shape.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogCalculationCreated records a successful calculation write.
func (sl *StructuredLogger) LogCalculationCreated(ctx context.Context, id int64, agentID, weight, totalValue string) {
	fields := NewFields().
		WithCalculation(id, weight, totalValue).
		WithAgent(agentID).
		WithOperation(OpCreate).
		WithComponent(ComponentCalculation)

	sl.logger.InfoContext(ctx, "Calculation created", fields.ToSlice()...)
}

// LogError records a failure with its component and operation attached.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	all := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
