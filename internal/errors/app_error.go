package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/safar/store-mcp/internal/database"
)

type AppError struct {
	Code    string
	Message string
	Detail  string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation        = "ValidationError"
	ErrCodeNotFound          = "NotFoundError"
	ErrCodeInsufficientStock = "InsufficientStockError"
	ErrCodeStoreUnavailable  = "StoreUnavailableError"
	ErrCodeInternal          = "InternalError"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message)
}

func InsufficientStockError(message string) *AppError {
	return NewAppError(ErrCodeInsufficientStock, message)
}

func StoreUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeStoreUnavailable, message)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == code
}

func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}

// FromValidator turns validator failures into a single ValidationError whose
// message names the first offending field and whose detail lists all of them.
func FromValidator(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationError("Invalid input").WithError(err)
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		reasons = append(reasons, fmt.Sprintf("%s: %s", fieldName(fe), describe(fe)))
	}

	first := verrs[0]
	return AddValidationError(fieldName(first), describe(first)).
		WithDetail(strings.Join(reasons, "; ")).
		WithError(err)
}

func fieldName(fe validator.FieldError) string {
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "phone":
		return "must contain only digits with an optional leading '+'"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// FromStore maps store-layer errors onto the error taxonomy. notFound is the
// message used when the store reports a missing document.
func FromStore(err error, notFound string) error {
	if err == nil {
		return nil
	}

	if _, ok := IsAppError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, database.ErrUserNotFound), errors.Is(err, database.ErrProductNotFound):
		return NotFoundError(notFound).WithError(err)
	case errors.Is(err, database.ErrInsufficientStock):
		return InsufficientStockError("Insufficient stock").WithError(err)
	case errors.Is(err, database.ErrDuplicateEmail):
		return ValidationError("Email is already registered").WithError(err)
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return StoreUnavailableError("Document changed concurrently, try again").WithError(err)
	case errors.Is(err, context.Canceled):
		return InternalError("Request cancelled").WithError(err)
	case database.IsUnavailable(err):
		return StoreUnavailableError("Store is unavailable, try again later").WithError(err)
	}

	return InternalError("Unexpected store error").WithError(err)
}

// Descriptor is the wire form of an error returned to tool callers.
type Descriptor struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Describe converts any error into a Descriptor. Errors outside the
// taxonomy are reported as InternalError without leaking their text.
func Describe(err error) *Descriptor {
	if err == nil {
		return nil
	}

	if appErr, ok := IsAppError(err); ok {
		return &Descriptor{Kind: appErr.Code, Message: appErr.Message, Detail: appErr.Detail}
	}

	return &Descriptor{Kind: ErrCodeInternal, Message: "Internal error"}
}
