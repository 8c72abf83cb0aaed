package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/postspot/user-service/internal/domain"
)

// Error codes rendered in the "code" field of error responses.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeConflict            = "CONFLICT"
	CodeUserInactive        = "USER_INACTIVE"
	CodeSelfFollow          = "SELF_FOLLOW"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
	CodeTimeout             = "TIMEOUT"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the client may repeat the request unchanged.
func (e *DomainError) Retryable() bool {
	return e.Code == CodeTransactionConflict
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return &DomainError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        domain.ErrInvalidToken,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts service and framework errors to a DomainError.
// Unknown errors become a generic internal error whose text is never shown
// to clients.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiber(fiberErr)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return &DomainError{Code: CodeValidationFailed, Message: err.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrSelfFollow):
		return &DomainError{Code: CodeSelfFollow, Message: domain.ErrSelfFollow.Error(), HTTPStatus: http.StatusBadRequest, Err: err}
	case errors.Is(err, domain.ErrInvalidToken):
		return &DomainError{Code: CodeUnauthorized, Message: "invalid token", HTTPStatus: http.StatusUnauthorized, Err: err}
	case errors.Is(err, domain.ErrUserNotFound):
		return &DomainError{Code: CodeNotFound, Message: domain.ErrUserNotFound.Error(), HTTPStatus: http.StatusNotFound, Err: err}
	case errors.Is(err, domain.ErrAlreadyExists):
		return &DomainError{Code: CodeConflict, Message: domain.ErrAlreadyExists.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrUserInactive):
		return &DomainError{Code: CodeUserInactive, Message: domain.ErrUserInactive.Error(), HTTPStatus: http.StatusConflict, Err: err}
	case errors.Is(err, domain.ErrTransactionConflict):
		return &DomainError{Code: CodeTransactionConflict, Message: "too much contention, retry later", HTTPStatus: http.StatusServiceUnavailable, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &DomainError{Code: CodeTimeout, Message: "request timed out", HTTPStatus: http.StatusGatewayTimeout, Err: err}
	}

	return NewInternalError(err).(*DomainError)
}

func fromFiber(err *fiber.Error) *DomainError {
	code := CodeInternal
	switch {
	case err.Code == http.StatusNotFound:
		code = CodeNotFound
	case err.Code == http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	case err.Code == http.StatusRequestTimeout:
		code = CodeTimeout
	case err.Code == http.StatusUnauthorized:
		code = CodeUnauthorized
	case err.Code < http.StatusInternalServerError:
		code = CodeValidationFailed
	}
	message := err.Message
	if err.Code >= http.StatusInternalServerError {
		message = "internal server error"
	}
	return &DomainError{Code: code, Message: message, HTTPStatus: err.Code, Err: err}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
