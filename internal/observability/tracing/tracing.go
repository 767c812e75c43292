package tracing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type traceIDKey struct{}

// InjectTraceID attaches a fresh trace id to the context logger so every log
// line of one run (server start, a reprocess invocation, a recovery tick)
// can be correlated.
func InjectTraceID(ctx context.Context) context.Context {
	id := uuid.New().String()
	logger := log.With().Str("traceId", id).Logger()
	return context.WithValue(logger.WithContext(ctx), traceIDKey{}, id)
}

// TraceID returns the id injected into ctx, or the empty string.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
