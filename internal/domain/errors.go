package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTransport          = errors.New("transport error")
	ErrAuth               = errors.New("authentication failed")
	ErrRemoteFailure      = errors.New("remote operation failed")
	ErrTimeoutExceeded    = errors.New("timeout exceeded")
	ErrProtocolViolation  = errors.New("unexpected remote state")
	ErrNotFound           = errors.New("not found")
	ErrInCooldown         = errors.New("zpool is in modification cooldown")
	ErrZpoolNotFound      = errors.New("zpool not found")
	ErrCredentialsMissing = errors.New("username or PAT is required")
	ErrTokenNotCached     = errors.New("token not cached")
)

// RemoteFailureError reports a job the service marked as failed.
type RemoteFailureError struct {
	OperationID string
	Message     string
}

func (e *RemoteFailureError) Error() string {
	message := e.Message
	if message == "" {
		message = "Unknown error"
	}
	return fmt.Sprintf("job %s failed: %s", e.OperationID, message)
}

func (e *RemoteFailureError) Is(target error) bool {
	return target == ErrRemoteFailure
}

// TimeoutError is returned when a wait outlives its deadline. The remote
// operation is unaffected and may still complete.
type TimeoutError struct {
	OperationID string
	Timeout     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s did not complete within %s", e.OperationID, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeoutExceeded
}

type ProtocolViolationError struct {
	OperationID string
	Status      string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("job %s reported unknown state %q", e.OperationID, e.Status)
}

func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

type NotFoundError struct {
	Kind       string
	ScopingKey string
}

func (e *NotFoundError) Error() string {
	if e.ScopingKey == "" {
		return fmt.Sprintf("no %s job found", e.Kind)
	}
	return fmt.Sprintf("no %s job found for zpool %s", e.Kind, e.ScopingKey)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
