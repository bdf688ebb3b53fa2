package openai

import (
	"context"
	"errors"
)

// errorsAs is a thin wrapper kept as a separate symbol so classifyError in
// client.go reads as provider-agnostic error classification.
func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
