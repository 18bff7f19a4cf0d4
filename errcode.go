package actionlog

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
)

// Well-known error codes. Codes are short stable tokens, never free text.
const (
	ErrorCodeUnassigned         = "UNASSIGNED"
	ErrorCodeError              = "ERROR"
	ErrorCodeCancelled          = "CANCELLED"
	ErrorCodeValidationError    = "VALIDATION_ERROR"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeForbidden          = "FORBIDDEN"
	ErrorCodeRemoteServiceError = "REMOTE_SERVICE_ERROR"
)

// Coder is implemented by error types that carry their own error code.
type Coder interface {
	ErrorCode() string
}

// ErrorCodeFor derives a stable error code from an error value. If the error
// (or anything in its chain) implements Coder, that code wins. Context
// cancellation maps to CANCELLED. Anything else gets a fingerprint of its
// concrete type name, so that repeated failures of the same kind aggregate
// under one code without leaking free-text messages into the code field.
func ErrorCodeFor(err error) string {
	if err == nil {
		return ""
	}

	var coder Coder
	if errors.As(err, &coder) {
		return coder.ErrorCode()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeCancelled
	}

	h := fnv.New32a()
	fmt.Fprintf(h, "%T", err)
	return fmt.Sprintf("ERR_%08X", h.Sum32())
}
