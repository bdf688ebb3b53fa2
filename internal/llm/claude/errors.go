package claude

import (
	"context"
	"errors"
)

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
