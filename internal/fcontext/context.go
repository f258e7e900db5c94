package fcontext

import (
	"context"

	"github.com/rs/zerolog"
)

type requestID struct{}

// WithRequestID adds request id to ctx. Scan passes use their pass id here.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestID{}, rid)
}

// RequestID gets request id from context. Empty if none was set.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestID{}).(string)
	return rid
}

// WithLogger attaches logger enriched with the request id of ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if rid := RequestID(ctx); len(rid) != 0 {
		logger = logger.With().Str("request_id", rid).Logger()
	}

	return logger.WithContext(ctx)
}

// Detach returns a background context carrying the request id and logger of
// ctx but none of its deadline or cancellation.
func Detach(ctx context.Context) context.Context {
	out := WithRequestID(context.Background(), RequestID(ctx))
	if l := zerolog.Ctx(ctx); l != nil {
		out = l.WithContext(out)
	}

	return out
}
