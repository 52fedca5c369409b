package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeEmptyFile       = "EMPTY_FILE"
	CodeInvalidContent  = "INVALID_CONTENT"
	CodeUpload          = "UPLOAD_ERROR"
	CodeQuery           = "QUERY_ERROR"
	CodePartialWrite    = "PARTIAL_WRITE"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// EmptyFile is returned before any storage write when an attachment has no bytes.
func EmptyFile(name string) *AppError {
	return &AppError{
		Code:    CodeEmptyFile,
		Message: fmt.Sprintf("file %q is empty", name),
		Status:  http.StatusBadRequest,
	}
}

func InvalidContent(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidContent,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func Upload(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUpload,
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func Query(message string, err error) *AppError {
	return &AppError{
		Code:    CodeQuery,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// PartialWrite means some rows of a multi-row operation were written and some were not.
func PartialWrite(message string, err error) *AppError {
	return &AppError{
		Code:    CodePartialWrite,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
