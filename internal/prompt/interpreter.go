// Prompt interpretation: natural-language edit requests in, operation
// descriptors out.
package prompt

import (
	"context"
	"errors"

	"prompt-image-editor/internal/ops"
)

var (
	// ErrBackendUnavailable covers network failures and non-2xx replies.
	ErrBackendUnavailable = errors.New("prompt backend unavailable")
	// ErrMalformedResponse means the reply held no usable operation list.
	ErrMalformedResponse = errors.New("malformed prompt response")
)

// Interpreter turns a prompt into an ordered list of requests. applied is the
// rendered operation log, passed to the model as context.
type Interpreter interface {
	Interpret(ctx context.Context, prompt, applied string) ([]ops.Request, error)
}
