package zerror

import (
	"fmt"
)

// ZError represents the error structure.
type ZError struct {
	parent error
	status Status
	code   string
	msg    string
}

// Error returns the error message for the ZError.
func (e ZError) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("Code=%s, Msg=%s, Parent=(%v)", e.code, e.msg, e.parent)
	}
	return fmt.Sprintf("Code=%s, Msg=%s", e.code, e.msg)
}

// WrapParent attaches an underlying error to a copy of a predefined ZError.
func (e ZError) WrapParent(parent error) ZError {
	if parent == nil {
		return e
	}
	e.parent = parent
	return e
}

// Unwrap returns the underlying error for the ZError.
func (e ZError) Unwrap() error {
	return e.parent
}

// Is reports whether target is a ZError with the same code, so a sentinel
// still matches after WrapParent.
func (e ZError) Is(target error) bool {
	t, ok := target.(ZError)
	return ok && t.code == e.code
}

// Status returns the status of the ZError.
func (e ZError) Status() Status {
	return e.status
}

// Code returns the code of the ZError.
//
// code example: PRODUCT_NOT_FOUND
func (e ZError) Code() string {
	return e.code
}

// Msg returns the message of the ZError.
func (e ZError) Msg() string {
	return e.msg
}

// Parent returns the underlying error for the ZError.
func (e ZError) Parent() error {
	return e.parent
}

func newZError(status Status, code, msg string) ZError {
	return ZError{
		status: status,
		code:   code,
		msg:    msg,
	}
}

func NewNotFound(code, msg string) ZError {
	return newZError(StatusNotFound, code, msg)
}

func NewUnprocessableEntity(code, msg string) ZError {
	return newZError(StatusUnprocessableEntity, code, msg)
}

func NewBadRequest(code, msg string) ZError {
	return newZError(StatusBadRequest, code, msg)
}

func NewValidationFailed(code, msg string) ZError {
	return newZError(StatusValidationFailed, code, msg)
}

func NewServiceUnavailable(code, msg string) ZError {
	return newZError(StatusServiceUnavailable, code, msg)
}
