package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Error codes carried by AppError and returned to clients.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:   fiber.StatusBadRequest,
	CodeNotFound:     fiber.StatusNotFound,
	CodeUnauthorized: fiber.StatusForbidden,
	CodeConflict:     fiber.StatusConflict,
}

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code,omitempty"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError is a single validation failure. Field "base" marks errors that
// belong to the record as a whole.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors accumulates validation failures for one record.
type FieldErrors []FieldError

// Add appends a failure for field.
func (e *FieldErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Has reports whether any failure was recorded for field.
func (e FieldErrors) Has(field string) bool {
	return len(e.On(field)) > 0
}

// On returns the messages recorded for field.
func (e FieldErrors) On(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

func (e FieldErrors) Error() string {
	var b strings.Builder
	for i, fe := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fe.Message)
	}
	return b.String()
}

// AppError is an error with a client-facing code and message. Err, when
// set, is the underlying cause.
type AppError struct {
	Code    string
	Message string
	Err     error
	Fields  FieldErrors
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf("%s with ID %v not found", resource, id)}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// NewFieldValidationError wraps accumulated field errors.
func NewFieldValidationError(fields FieldErrors) *AppError {
	return &AppError{Code: CodeValidation, Message: fields.Error(), Fields: fields}
}

// NewUnauthorizedError is for authenticated callers lacking permission; it
// maps to 403.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: CodeUnauthorized, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// ErrorCode returns the AppError code carried by err, or "" when err is not an AppError.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// StatusForError maps an AppError code to an HTTP status. Unknown errors
// are 500.
func StatusForError(err error) int {
	if status, ok := statusByCode[ErrorCode(err)]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// RespondWithError writes err as an ErrorResponse. The cause of an internal
// error is never sent to the client.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
	}

	resp := ErrorResponse{Error: appErr.Message, Code: appErr.Code, Fields: appErr.Fields}
	if appErr.Err != nil && appErr.Code != CodeInternal {
		resp.Details = appErr.Err.Error()
	}
	return c.Status(status).JSON(resp)
}
