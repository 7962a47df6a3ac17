package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError define la estructura estándar de los errores HTTP.
type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	HTTPStatus int           `json:"-"` // No se serializa, usado para el header
	RetryAfter time.Duration `json:"-"` // > 0 agrega Retry-After y retry_after
	Err        error         `json:"-"` // Causa original, solo para logs
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithDetail devuelve una COPIA con detail.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// WithRetryAfter devuelve una COPIA con la espera sugerida.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	newErr := *e
	newErr.RetryAfter = d
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

// 400
var (
	ErrInvalidRequest = &AppError{
		Code:       "INVALID_REQUEST",
		Message:    "The request is missing required fields or is malformed.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnsupportedGrantType = &AppError{
		Code:       "UNSUPPORTED_GRANT_TYPE",
		Message:    "Only client_credentials and refresh_token grant types are supported.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidScope = &AppError{
		Code:       "INVALID_SCOPE",
		Message:    "The requested scope exceeds the scope granted to the client.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "The request body exceeds the maximum allowed size.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

// 401
var (
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Client authentication failed.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "Authorization header must be in format: Bearer <token>.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "The access token is invalid or malformed.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "The access token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshInvalid = &AppError{
		Code:       "REFRESH_TOKEN_INVALID",
		Message:    "The refresh token is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshExpired = &AppError{
		Code:       "REFRESH_TOKEN_EXPIRED",
		Message:    "The refresh token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshReused = &AppError{
		Code:       "REFRESH_TOKEN_REUSED",
		Message:    "The refresh token was already used; its token family has been revoked.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrRefreshRevoked = &AppError{
		Code:       "REFRESH_TOKEN_REVOKED",
		Message:    "The refresh token has been revoked.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 403, 404, 405, 429
var (
	ErrInsufficientScope = &AppError{
		Code:       "INSUFFICIENT_SCOPE",
		Message:    "Insufficient permissions.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested endpoint does not exist.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The method is not allowed for the requested endpoint.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx
var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrStoreUnavailable = &AppError{
		Code:       "STORE_UNAVAILABLE",
		Message:    "The backing store is unavailable, try again later.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
