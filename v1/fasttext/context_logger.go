package fasttext

import "context"

// ContextLogger is a Logger that adds the trace and span ids found in ctx to
// each record. *logger.Logger implements it.
type ContextLogger interface {
	Logger
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// withContext returns l when it is a ContextLogger and otherwise wraps it so
// that the context is ignored.
func withContext(l Logger) ContextLogger {
	if cl, ok := l.(ContextLogger); ok {
		return cl
	}
	return contextFree{l}
}

type contextFree struct{ Logger }

func (l contextFree) InfoWithContext(_ context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Info(msg, err, fields...)
}

func (l contextFree) DebugWithContext(_ context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Debug(msg, err, fields...)
}

func (l contextFree) WarnWithContext(_ context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Warn(msg, err, fields...)
}

func (l contextFree) ErrorWithContext(_ context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.Error(msg, err, fields...)
}
