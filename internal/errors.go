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
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeWeakPassword     ErrorCode = "WEAK_PASSWORD"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidName      ErrorCode = "INVALID_NAME"

	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive           ErrorCode = "USER_INACTIVE"
	ErrCodeUnauthenticated        ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenRevoked           ErrorCode = "TOKEN_REVOKED"
	ErrCodeTokenNotFound          ErrorCode = "TOKEN_NOT_FOUND"
	ErrCodeInvalidCurrentPassword ErrorCode = "INVALID_CURRENT_PASSWORD"
	ErrCodePasswordUnchanged      ErrorCode = "PASSWORD_UNCHANGED"

	ErrCodeNotAuthenticated        ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeNoRoleAssigned          ErrorCode = "NO_ROLE_ASSIGNED"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"

	ErrCodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	ErrCodeRoleNotFound         ErrorCode = "ROLE_NOT_FOUND"
	ErrCodePermissionNotFound   ErrorCode = "PERMISSION_NOT_FOUND"
	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"

	ErrCodeEmailTaken            ErrorCode = "EMAIL_TAKEN"
	ErrCodeRoleNameTaken         ErrorCode = "ROLE_NAME_TAKEN"
	ErrCodePermissionNameTaken   ErrorCode = "PERMISSION_NAME_TAKEN"
	ErrCodeOrganizationNameTaken ErrorCode = "ORGANIZATION_NAME_TAKEN"

	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
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

// WithCause returns a copy carrying cause, so shared sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches sentinels by code so copies made by WithCause still compare equal.
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

func NewRateLimitError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeTooManyRequests,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

var (
	ErrInvalidCredentials     = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive           = NewUnauthorizedError("User account is inactive", ErrCodeUserInactive)
	ErrUnauthenticated        = NewUnauthorizedError("Invalid or expired token", ErrCodeUnauthenticated)
	ErrInvalidCurrentPassword = NewUnauthorizedError("Current password is incorrect", ErrCodeInvalidCurrentPassword)
	ErrPasswordUnchanged      = NewConflictError("New password must be different from the current password", ErrCodePasswordUnchanged)

	// Token failures. Callers only ever see ErrUnauthenticated; these stay in logs.
	ErrInvalidToken  = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired  = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrTokenRevoked  = NewUnauthorizedError("Token has been revoked", ErrCodeTokenRevoked)
	ErrTokenNotFound = NewUnauthorizedError("Token not found", ErrCodeTokenNotFound)

	ErrNotAuthenticated        = NewForbiddenError("You must be logged in to access this resource", ErrCodeNotAuthenticated)
	ErrNoRoleAssigned          = NewForbiddenError("User has no role assigned", ErrCodeNoRoleAssigned)
	ErrInsufficientPermissions = NewForbiddenError("You do not have permission to access this resource", ErrCodeInsufficientPermissions)

	ErrUserNotFound         = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrRoleNotFound         = NewNotFoundError("Role not found", ErrCodeRoleNotFound)
	ErrPermissionNotFound   = NewNotFoundError("Permission not found", ErrCodePermissionNotFound)
	ErrOrganizationNotFound = NewNotFoundError("Organization not found", ErrCodeOrganizationNotFound)

	ErrEmailTaken            = NewConflictError("Email already exists", ErrCodeEmailTaken)
	ErrRoleNameTaken         = NewConflictError("Role name already exists", ErrCodeRoleNameTaken)
	ErrPermissionNameTaken   = NewConflictError("Permission name already exists", ErrCodePermissionNameTaken)
	ErrOrganizationNameTaken = NewConflictError("Organization name already exists", ErrCodeOrganizationNameTaken)

	ErrTooManyRequests = NewRateLimitError("Too many requests, please try again later")
)

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
