package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// Run-fatal codes. Any of these aborts the extraction run.
	ErrCodeEnvironment = "ENVIRONMENT_ERROR"
	ErrCodeNavigation  = "NAVIGATION_FAILED"
	ErrCodeTimeout     = "RUN_TIMEOUT"
	ErrCodeCanceled    = "RUN_CANCELED"

	// Per-item codes. The item is skipped and the run continues.
	ErrCodeInteractionTimeout = "INTERACTION_TIMEOUT"
	ErrCodeInteractionFailed  = "INTERACTION_FAILED"
	ErrCodeDetailFetchFailed  = "DETAIL_FETCH_FAILED"
	ErrCodeStaleItem          = "STALE_ITEM"
	ErrCodeMalformedPayload   = "MALFORMED_PAYLOAD"

	// Logged, never fatal.
	ErrCodeOverlayRemovalMiss = "OVERLAY_REMOVAL_MISS"
	ErrCodeResetFailure       = "RESET_FAILURE"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the outermost ScrapeError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsFatal reports whether err must abort an extraction run.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeEnvironment, ErrCodeNavigation, ErrCodeTimeout, ErrCodeCanceled, ErrCodeInvalidInput:
		return true
	}
	return false
}

// AsScrapeError returns err as a *ScrapeError, wrapping it as an internal
// error if it is not one already.
func AsScrapeError(err error) *ScrapeError {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return NewScrapeError(ErrCodeInternal, err.Error(), err)
}
