// Package errors provides standardized error handling for the gateway's HTTP edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeHubRequestFailed       ErrorCode = "HUB_REQUEST_FAILED"
	ErrCodeHubThrottled           ErrorCode = "HUB_THROTTLED"
	ErrCodeHubUnauthorized        ErrorCode = "HUB_UNAUTHORIZED"
	ErrCodeHubNotFound            ErrorCode = "HUB_NOT_FOUND"
	ErrCodeRegistrationFailed     ErrorCode = "REGISTRATION_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTooManyRecipients      ErrorCode = "TOO_MANY_RECIPIENTS"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: IsRetryableErrorCode(ErrCodeValidationFailed),
		Timestamp: time.Now().UTC(),
	}
}

// NewHubRequestFailedError creates a retryable hub transport error.
func NewHubRequestFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHubRequestFailed,
		Message:   "Notification hub request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: IsRetryableErrorCode(ErrCodeHubRequestFailed),
		Timestamp: time.Now().UTC(),
	}
}

// NewHubThrottledError creates a retryable throttling error.
func NewHubThrottledError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeHubThrottled,
		Message:   "Notification hub throttled the request",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: IsRetryableErrorCode(ErrCodeHubThrottled),
		Timestamp: time.Now().UTC(),
	}
}

func NewHubUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeHubUnauthorized,
		Message:   "Notification hub rejected the credentials",
		Details:   details,
		Retryable: IsRetryableErrorCode(ErrCodeHubUnauthorized),
		Timestamp: time.Now().UTC(),
	}
}

// NewRegistrationFailedError creates a device registration error.
func NewRegistrationFailedError(installationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistrationFailed,
		Message:   "Device registration failed",
		Details:   fmt.Sprintf("installationId: %s", installationID),
		Retryable: IsRetryableErrorCode(ErrCodeRegistrationFailed),
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a notification send error.
func NewNotificationSendFailedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   reason,
		Retryable: IsRetryableErrorCode(ErrCodeNotificationSendFailed),
		Timestamp: time.Now().UTC(),
	}
}

// NewTooManyRecipientsError is returned when the overflow policy rejects a recipient list.
func NewTooManyRecipientsError(count, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeTooManyRecipients,
		Message:   "Too many recipients for a single tag expression",
		Details:   fmt.Sprintf("recipients: %d, max: %d", count, max),
		Retryable: IsRetryableErrorCode(ErrCodeTooManyRecipients),
		Metadata:  map[string]interface{}{"recipients": count, "max": max},
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: IsRetryableErrorCode(ErrCodeInternal),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

var httpStatusMapping = map[ErrorCode]int{
	ErrCodeValidationFailed:       http.StatusBadRequest,
	ErrCodeRegistrationFailed:     http.StatusUnprocessableEntity,
	ErrCodeNotificationSendFailed: http.StatusUnprocessableEntity,
	ErrCodeTooManyRecipients:      http.StatusUnprocessableEntity,
	ErrCodeHubRequestFailed:       http.StatusBadGateway,
	ErrCodeHubThrottled:           http.StatusBadGateway,
	ErrCodeHubUnauthorized:        http.StatusBadGateway,
	ErrCodeHubNotFound:            http.StatusNotFound,
	ErrCodeInternal:               http.StatusInternalServerError,
}

// HTTPStatus returns the response status for an error code.
func HTTPStatus(code ErrorCode) int {
	if status, ok := httpStatusMapping[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsRetryableErrorCode reports whether clients may retry a request that failed with code.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeHubRequestFailed, ErrCodeHubThrottled, ErrCodeRegistrationFailed, ErrCodeNotificationSendFailed:
		return true
	}
	return false
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed, ErrCodeTooManyRecipients:
		return "client"
	case ErrCodeHubRequestFailed, ErrCodeHubThrottled, ErrCodeHubUnauthorized, ErrCodeHubNotFound:
		return "hub"
	case ErrCodeRegistrationFailed, ErrCodeNotificationSendFailed:
		return "delivery"
	default:
		return "internal"
	}
}
