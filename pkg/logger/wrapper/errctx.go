package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx captured where the error was
// produced, so the logging site can restore it.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error wraps err with the LogCtx currently in ctx. Wrapping an
// already-wrapped error refreshes its captured context.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	lc, _ := ctx.Value(LogCtxKey).(LogCtx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		e.logCtx = lc
		return err
	}

	return &errorWithLogCtx{err: err, logCtx: lc}
}

// ErrorCtx returns ctx enriched with the LogCtx captured inside err,
// if any.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return context.WithValue(ctx, LogCtxKey, e.logCtx)
	}
	return ctx
}
