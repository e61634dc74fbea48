// Package herr carries the HTTP status a handler wants written alongside
// the underlying cause, the way caddyhttp.Error does for the teacher.
package herr

import "fmt"

// Error pairs an HTTP status code with the error that caused it. Handlers
// in internal/server return *Error for most error statuses, so the
// dispatcher decides the body for them in one place; the range handler's
// 416 reply and the WebDAV handler's errors are written directly.
type Error struct {
	StatusCode int
	Err        error
}

func New(status int, err error) *Error {
	return &Error{StatusCode: status, Err: err}
}

func Newf(status int, format string, args ...any) *Error {
	return &Error{StatusCode: status, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %v", e.StatusCode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
