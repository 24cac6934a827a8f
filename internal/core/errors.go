// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
	ErrCacheMiss    = errors.New("cache miss")
)

// NewValidator builds the shared request validator. uuid4 and other
// format tags come with the library.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type AppError struct {
	Err     error
	Message string
	Status  int
	Code    string
	Fields  map[string]string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func BadRequestError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"BAD_REQUEST",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"UNAUTHORIZED",
	)
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	appErr := NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("a record with this %s already exists", field),
		http.StatusBadRequest,
		"DUPLICATE",
	)
	appErr.Fields = map[string]string{
		field: fmt.Sprintf("this %s is already in use", field),
	}
	return appErr
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

func FieldError(field, message string) *AppError {
	appErr := NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
	appErr.Fields = map[string]string{field: message}
	return appErr
}

// ValidationError converts validator.Struct failures into a field-keyed
// 400 AppError so clients receive {"field": "message"} style details.
func ValidationError(err error) *AppError {
	appErr := NewAppError(
		ErrInvalidInput,
		"validation failed",
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		appErr.Message = err.Error()
		return appErr
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	appErr.Fields = fields

	return appErr
}

func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(
			parts,
			fmt.Sprintf("%s: %s", fieldName(fe), fieldMessage(fe)),
		)
	}
	return strings.Join(parts, "; ")
}

func fieldName(fe validator.FieldError) string {
	// StructNamespace is Type.Field; json tags in this codebase are the
	// snake_case of the field name, which is what clients should see.
	return toSnake(fe.Field())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "eqfield":
		return "fields did not match"
	case "numeric":
		return "must contain only digits"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
