package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing record or an unresolvable identifier.
	ErrNotFound = errors.New("record not found")
	// ErrUnsupported reports an operation the entity cannot perform, such as
	// listing soft-deleted records of an entity without soft delete.
	ErrUnsupported = errors.New("operation not supported by entity")
)

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`

	cause error
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Extensions exposes the error code to GraphQL clients.
func (e *AppError) Extensions() map[string]any {
	ext := map[string]any{"code": e.Code}
	if len(e.Details) > 0 {
		ext["details"] = e.Details
	}
	return ext
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func NotFoundError(entity string, id any) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %v not found", entity, id),
		cause:   ErrNotFound,
	}
}

func UnsupportedError(entity, operation string) *AppError {
	return &AppError{
		Code:    "UNSUPPORTED",
		Status:  400,
		Message: fmt.Sprintf("%s does not support %s", entity, operation),
		cause:   ErrUnsupported,
	}
}

func ConflictError(msg string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Status:  409,
		Message: msg,
	}
}

func ValidationError(details []ErrorDetail) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  422,
		Message: "Validation failed",
		Details: details,
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Status:  401,
		Message: msg,
	}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Status:  403,
		Message: msg,
	}
}
