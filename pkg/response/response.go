package response

import (
	"errors"
)

type Error struct {
	Code   int
	Err    error
	Detail string
}

func (e *Error) Error() string {
	return e.Err.Error()
}

// Is matches on code and message only, so an error carrying detail still
// matches its sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// WithDetail copies a response error and attaches detail to it. Other errors
// are returned unchanged.
func WithDetail(err error, detail string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	return &Error{Code: e.Code, Err: e.Err, Detail: detail}
}
