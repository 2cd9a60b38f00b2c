package logging

import (
	"context"
)

type contextKey string

const (
	chainIDKey contextKey = "ruminate-chain-id"
	cycleKey   contextKey = "ruminate-cycle"
)

// WithChainID attaches a thinking-chain identifier to the context so every
// log entry emitted during that chain's execution carries it.
func WithChainID(ctx context.Context, chainID string) context.Context {
	return context.WithValue(ctx, chainIDKey, chainID)
}

// GetChainID returns the chain identifier attached to the context, if any.
func GetChainID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(chainIDKey).(string)
	return id, ok
}

// WithCycle attaches the current control-loop cycle to the context.
func WithCycle(ctx context.Context, cycle int) context.Context {
	return context.WithValue(ctx, cycleKey, cycle)
}

// GetCycle returns the cycle attached to the context, or -1 if absent.
func GetCycle(ctx context.Context) int {
	if c, ok := ctx.Value(cycleKey).(int); ok {
		return c
	}
	return -1
}
