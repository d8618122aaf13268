package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/domain/version"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindParentUnavailable ErrorKind = "parent_unavailable"
	KindRemote            ErrorKind = "remote"
	KindTransport         ErrorKind = "transport"
)

const (
	CodeInvalidBody           = "TIMELINE_INVALID_BODY"
	CodeDateOutOfRange        = "TIMELINE_DATE_OUT_OF_RANGE"
	CodeDuplicateEffective    = "TIMELINE_DUPLICATE_EFFECTIVE_DATE"
	CodeParentCycle           = "TIMELINE_PARENT_CYCLE"
	CodeVersionNotFound       = "TIMELINE_VERSION_NOT_FOUND"
	CodeTransportFailure      = "TIMELINE_TRANSPORT_FAILURE"
	CodeInvalidResponse       = "TIMELINE_INVALID_RESPONSE"
	CodeRemoteFailure         = "TIMELINE_REMOTE_FAILURE"
	CodeConcurrencyConflict   = "TIMELINE_CONCURRENCY_CONFLICT"
	CodeParentUnavailable     = "TEMPORAL_PARENT_UNAVAILABLE"
	transportFailureUserText  = "the org service could not be reached, please retry"
	remoteFailureUserTemplate = "the org service rejected the request (status %d)"
)

type ServiceError struct {
	Kind          ErrorKind
	Status        int
	Code          string
	Message       string
	SuggestedDate *time.Time
	Cause         error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(kind ErrorKind, status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Status: status, Code: code, Message: message, Cause: cause}
}

func newValidationError(code, message string) *ServiceError {
	return newServiceError(KindValidation, http.StatusBadRequest, code, message, nil)
}

// NewRemoteError reports a request the remote store answered with an error status.
func NewRemoteError(status int, code, message string, cause error) *ServiceError {
	if code == "" {
		code = CodeRemoteFailure
	}
	return newServiceError(KindRemote, status, code, message, cause)
}

// NewTransportError reports a request that never got a response.
func NewTransportError(message string, cause error) *ServiceError {
	return newServiceError(KindTransport, 0, CodeTransportFailure, message, cause)
}

func NewParentUnavailableError(status int, message string, suggested *time.Time) *ServiceError {
	err := newServiceError(KindParentUnavailable, status, CodeParentUnavailable, message, nil)
	if suggested != nil {
		d := version.NormalizeDate(*suggested)
		err.SuggestedDate = &d
	}
	return err
}

// normalizeRemoteError keeps ServiceErrors and classifies everything else as
// transport (context expiry) or opaque remote failures.
func normalizeRemoteError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransportError("request timed out", err)
	}
	return NewRemoteError(0, CodeRemoteFailure, "remote request failed", err)
}

func IsKind(err error, kind ErrorKind) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

// SuggestedDate extracts the alternative effective date carried by a
// parent-unavailable rejection.
func SuggestedDate(err error) (time.Time, bool) {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || svcErr.Kind != KindParentUnavailable || svcErr.SuggestedDate == nil {
		return time.Time{}, false
	}
	return *svcErr.SuggestedDate, true
}

// UserMessage renders err as a single user-facing line.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return err.Error()
	}
	switch svcErr.Kind {
	case KindValidation:
		return svcErr.Message
	case KindParentUnavailable:
		if svcErr.SuggestedDate != nil {
			return fmt.Sprintf("%s (suggested effective date: %s)", svcErr.Message, version.FormatDate(*svcErr.SuggestedDate))
		}
		return svcErr.Message
	case KindTransport:
		return transportFailureUserText
	default:
		if svcErr.Message != "" {
			return svcErr.Message
		}
		return fmt.Sprintf(remoteFailureUserTemplate, svcErr.Status)
	}
}
