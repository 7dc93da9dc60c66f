package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
	ErrorTypeNotice       ErrorType = "NOTICE"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidMonth     ErrorCode = "INVALID_MONTH"
	ErrCodeNothingChanged   ErrorCode = "NOTHING_CHANGED"
	ErrCodeConfirmRequired  ErrorCode = "CONFIRMATION_REQUIRED"

	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeSessionMissing   ErrorCode = "SESSION_MISSING"
	ErrCodeSessionReplaced  ErrorCode = "SESSION_REPLACED"
	ErrCodeInsufficientRole ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"

	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendRejected    ErrorCode = "BACKEND_REJECTED"
	ErrCodeStaleResponse      ErrorCode = "STALE_RESPONSE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Is matches on Type and Code so sentinel AppErrors work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// FieldMessages flattens the errors into field -> message, keeping the first
// message reported per field.
func (v ValidationErrors) FieldMessages() map[string]string {
	out := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

// NewFieldMapError builds a validation AppError from a field -> message map.
func NewFieldMapError(fields map[string]string) *AppError {
	details := ValidationErrors{Errors: make([]ValidationError, 0, len(fields))}
	for field, msg := range fields {
		details.Errors = append(details.Errors, ValidationError{
			Field:   field,
			Message: msg,
			Code:    string(ErrCodeValidationFailed),
		})
	}
	return NewValidationError("Validation failed", ErrCodeValidationFailed).WithDetails(details)
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewExternalError wraps a failure reported by the remote backend.
func NewExternalError(status int, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

// NewNotice is an informational outcome, not a failure of the request.
func NewNotice(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotice,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusOK,
	}
}

var (
	ErrUserNotFound       = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("User account is inactive", ErrCodeUserInactive)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrSessionMissing     = NewUnauthorizedError("Please log in to continue", ErrCodeSessionMissing)
	ErrSessionReplaced    = NewUnauthorizedError("You have been logged out because your account was opened in another tab", ErrCodeSessionReplaced)
	ErrInsufficientRole   = NewForbiddenError("You do not have permission to perform this action", ErrCodeInsufficientRole)
	ErrNothingChanged     = NewNotice("No changes detected", ErrCodeNothingChanged)
	ErrConfirmRequired    = NewValidationError("Deletion must be confirmed", ErrCodeConfirmRequired)
)

// GenericFailureMessage is shown when no friendly message is known.
const GenericFailureMessage = "Something went wrong. Please try again."

var friendlyMessages = map[int]string{
	http.StatusBadRequest:            "The request was invalid. Please check the form and try again.",
	http.StatusUnauthorized:          "Your session has expired. Please log in again.",
	http.StatusForbidden:             "You do not have access to this resource.",
	http.StatusNotFound:              "The requested record could not be found.",
	http.StatusConflict:              "This record already exists.",
	http.StatusRequestEntityTooLarge: "The uploaded file is too large.",
	http.StatusUnprocessableEntity:   "Some fields are invalid. Please review and resubmit.",
	http.StatusTooManyRequests:       "Too many requests. Please wait a moment and retry.",
	http.StatusInternalServerError:   "The server encountered an error. Please try again later.",
	http.StatusBadGateway:            "The server is unreachable right now. Please try again later.",
	http.StatusServiceUnavailable:    "The service is temporarily unavailable. Please try again later.",
	http.StatusGatewayTimeout:        "The server took too long to respond. Please try again later.",
}

// FriendlyMessage looks up the user-facing message for a status code, falling
// back to the generic message.
func FriendlyMessage(status int) string {
	if msg, ok := friendlyMessages[status]; ok {
		return msg
	}
	return GenericFailureMessage
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
