package errors

import (
	"context"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	switch err := ctx.Err(); err {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return Wrap(err, Timeout, operation+" timed out")
	default:
		return Wrap(err, Canceled, operation+" canceled")
	}
}
