package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual attributes attached to every log line
	// emitted while the context is in scope.
	LogCtx struct {
		Action    string
		ActorID   string
		RequestID string
		TripID    string
		DriverID  string
	}

	logCtxKeyStruct struct{}
)

// LogCtxKey is the context key under which LogCtx is stored.
var LogCtxKey = &logCtxKeyStruct{}

func merge(ctx context.Context, apply func(*LogCtx)) context.Context {
	lc, _ := ctx.Value(LogCtxKey).(LogCtx)
	apply(&lc)
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithAction sets the current action name.
func WithAction(ctx context.Context, action string) context.Context {
	return merge(ctx, func(lc *LogCtx) { lc.Action = action })
}

// WithActorID records the acting principal.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return merge(ctx, func(lc *LogCtx) { lc.ActorID = actorID })
}

// WithRequestID records the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return merge(ctx, func(lc *LogCtx) { lc.RequestID = requestID })
}

// WithTripID records the trip being operated on.
func WithTripID(ctx context.Context, tripID string) context.Context {
	return merge(ctx, func(lc *LogCtx) { lc.TripID = tripID })
}

// WithDriverID records the driver being operated on.
func WithDriverID(ctx context.Context, driverID string) context.Context {
	return merge(ctx, func(lc *LogCtx) { lc.DriverID = driverID })
}
