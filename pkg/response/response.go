// Package response defines the error envelope the handler layer speaks.
// Services wrap a failure in an Error when they already know the HTTP
// status; pkg/handlerUtil translates everything else from the per-domain
// sentinel errors.
package response

import (
	"errors"
)

// Error pairs an HTTP status code with the underlying cause.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}
