// Package errors provides standardized error handling for the checkout funnel.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeIntentInvalid     ErrorCode = "INTENT_INVALID"
	ErrCodeDuplicateInFlight ErrorCode = "DUPLICATE_IN_FLIGHT"

	ErrCodeProviderDeclined ErrorCode = "PROVIDER_DECLINED"
	ErrCodeProviderFault    ErrorCode = "PROVIDER_FAULT"
	ErrCodeProviderTimeout  ErrorCode = "PROVIDER_TIMEOUT"

	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeStepNotAllowed     ErrorCode = "STEP_NOT_ALLOWED"

	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"

	ErrCodeAnalyticsPublishFailed ErrorCode = "ANALYTICS_PUBLISH_FAILED"
	ErrCodeEmailSendFailed        ErrorCode = "EMAIL_SEND_FAILED"
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

// NewIntentInvalidError creates a non-retryable intent validation error.
func NewIntentInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentInvalid,
		Message:   "Order intent failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateInFlightError signals that an identical submission is already
// being processed. Retryable: the caller may resubmit once the first settles.
func NewDuplicateInFlightError(fingerprint string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateInFlight,
		Message:   "Request already in progress",
		Details:   fmt.Sprintf("fingerprint: %s", fingerprint),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderDeclinedError creates a non-retryable decline carrying the
// provider's reason verbatim.
func NewProviderDeclinedError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderDeclined,
		Message:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderFaultError creates a retryable transport/decoding fault.
func NewProviderFaultError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderFault,
		Message:   "Payment provider call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable timeout fault.
func NewProviderTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Payment provider call timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session persistence error.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable missing session error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Funnel session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepNotAllowedError creates a non-retryable funnel ordering error.
func NewStepNotAllowedError(current, requested string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepNotAllowed,
		Message:   "Funnel step not reachable from current state",
		Details:   fmt.Sprintf("current: %s, requested: %s", current, requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogLoadFailedError creates a non-retryable catalog configuration error.
func NewCatalogLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Product catalog load failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnalyticsPublishFailedError creates a retryable analytics sink error.
// Only ever logged: analytics failures never surface to the caller.
func NewAnalyticsPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyticsPublishFailed,
		Message:   "Analytics event publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable confirmation mail error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Order confirmation email failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// GetRetryCount returns the recommended caller-side retry count per code.
// The coordinator itself never retries; this informs the UI layer.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderFault,
		ErrCodeSessionStoreFailed,
		ErrCodeAnalyticsPublishFailed,
		ErrCodeEmailSendFailed:
		return 3

	case ErrCodeProviderTimeout,
		ErrCodeDuplicateInFlight:
		return 1

	default:
		return 0 // declines and validation errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "STEP"):
		return "FUNNEL"
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "DUPLICATE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ANALYTICS") || strings.Contains(codeStr, "EMAIL"):
		return "SIDE_EFFECT"
	case strings.Contains(codeStr, "CATALOG"):
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}
