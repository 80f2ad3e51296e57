// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type logKey string

const (
	requestIDKey     logKey = "request_id"
	correlationIDKey logKey = "correlation_id"
	traceIDKey       logKey = "trace_id"
	userIDKey        logKey = "user_id"
	bulkRequestKey   logKey = "bulk_update_request_id"
)

// contextKeys are copied from the context onto every record, in this order.
var contextKeys = []logKey{requestIDKey, correlationIDKey, traceIDKey, userIDKey, bulkRequestKey}

// contextHandler decorates records with the values stored by the With*
// helpers below.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range contextKeys {
		switch v := ctx.Value(key).(type) {
		case string:
			if v != "" {
				r.AddAttrs(slog.String(string(key), v))
			}
		case uint:
			r.AddAttrs(slog.Uint64(string(key), uint64(v)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger writes JSON in production and key=value text elsewhere.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var base slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(env, "production") {
		base = slog.NewJSONHandler(w, opts)
	}
	return slog.New(contextHandler{base})
}

var logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

// SetLogger replaces the sink used by RepoLogger and WorkflowLogger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// WithBulkUpdateRequest tags every record logged with ctx with the request id.
func WithBulkUpdateRequest(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, bulkRequestKey, id)
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// EnsureCorrelationID keeps an existing correlation id or adds a fresh one,
// so the log lines of one workflow run can be grouped.
func EnsureCorrelationID(ctx context.Context) context.Context {
	if CorrelationID(ctx) != "" {
		return ctx
	}
	return WithCorrelationID(ctx, uuid.NewString())
}

// RepoLogger logs writes of one table. Successful operations are debug
// level; failures are errors.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

// Done records a successful operation with extra key/value pairs.
func (l *RepoLogger) Done(ctx context.Context, op string, kv ...any) {
	logger.DebugContext(ctx, "repository "+op,
		append([]any{slog.String("table", l.table)}, kv...)...)
}

// Failed records a failed operation.
func (l *RepoLogger) Failed(ctx context.Context, op string, err error) {
	logger.ErrorContext(ctx, "repository "+op+" failed",
		slog.String("table", l.table), slog.String("error", err.Error()))
}

// WorkflowLogger logs bulk update request lifecycle events.
type WorkflowLogger struct{}

func NewWorkflowLogger() *WorkflowLogger {
	return &WorkflowLogger{}
}

// LogTransition records a status change of a request.
func (*WorkflowLogger) LogTransition(ctx context.Context, from, to string, actorID uint) {
	logger.InfoContext(ctx, "bulk update request "+to,
		slog.String("from", from), slog.Uint64("actor_id", uint64(actorID)))
}

// LogApprovalFailure records a failed approval and whether it was compensated.
func (*WorkflowLogger) LogApprovalFailure(ctx context.Context, err error, compensated bool) {
	logger.ErrorContext(ctx, "bulk update request approval failed",
		slog.String("error", err.Error()), slog.Bool("compensated", compensated))
}

// LogCompensationError records a failed compensation step. These are not
// retried.
func (*WorkflowLogger) LogCompensationError(ctx context.Context, step string, err error) {
	logger.WarnContext(ctx, "compensation step failed",
		slog.String("step", step), slog.String("error", err.Error()))
}
