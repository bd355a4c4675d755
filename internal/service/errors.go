package service

import (
	"errors"
	"fmt"
)

// ErrorCode classifies publish pipeline failures. Retryable codes are retried
// at the step level inside a single job invocation; everything else fails the
// job on first occurrence and leaves the post untouched.
type ErrorCode string

const (
	CodePostMissing               ErrorCode = "post_missing"
	CodeNoChannel                 ErrorCode = "no_channel"
	CodeAuthFailure               ErrorCode = "auth_failure"
	CodeMediaRejected             ErrorCode = "media_rejected"
	CodeInvalidMediaCount         ErrorCode = "invalid_media_count"
	CodeContainerProcessingFailed ErrorCode = "container_processing_failed"
	CodeContainerNotReadyInTime   ErrorCode = "container_not_ready_in_time"
	CodeContainerNotPublishable   ErrorCode = "container_not_publishable"
	CodeProviderUnavailable       ErrorCode = "provider_unavailable"
)

type PublishError struct {
	Code      ErrorCode
	Retryable bool
	Err       error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

func newPublishError(code ErrorCode, retryable bool, format string, args ...any) *PublishError {
	return &PublishError{
		Code:      code,
		Retryable: retryable,
		Err:       fmt.Errorf(format, args...),
	}
}

// IsRetryable reports whether the error is a transient pipeline failure worth
// another attempt.
func IsRetryable(err error) bool {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CodeOf extracts the pipeline error code, or empty string for unclassified
// errors.
func CodeOf(err error) ErrorCode {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
