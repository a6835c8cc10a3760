package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by lifecycle operations. NotFound is reported
// via store.ErrNotFound; notification failures are never surfaced at
// all (best effort).
var (
	// ErrUnauthorized marks all authorization failures. Concrete guard
	// failures carry a GuardError with the specific reason so operators
	// can diagnose misconfiguration instead of seeing a bare forbidden.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation marks requests rejected before any mutation occurs.
	ErrValidation = errors.New("validation failed")
)

// GuardKind identifies which lifecycle guard rejected a request.
type GuardKind string

const (
	// GuardLockViolation: only the current assignee may move a task
	// into RECEIVED or IN_PROGRESS.
	GuardLockViolation GuardKind = "LOCK_VIOLATION"

	// GuardOperationalBarrier: only privileged roles may complete a
	// task; even the assignee cannot self-complete.
	GuardOperationalBarrier GuardKind = "OPERATIONAL_BARRIER"

	// GuardIdentityMismatch: a non-privileged actor may only operate on
	// tasks assigned to them.
	GuardIdentityMismatch GuardKind = "IDENTITY_MISMATCH"

	// GuardPrivilegeRequired: the operation is restricted to
	// super-admin, admin, or client-service roles.
	GuardPrivilegeRequired GuardKind = "PRIVILEGE_REQUIRED"
)

// GuardError is an authorization failure with its specific reason.
// It unwraps to ErrUnauthorized.
type GuardError struct {
	Kind   GuardKind
	Reason string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("unauthorized (%s): %s", e.Kind, e.Reason)
}

func (e *GuardError) Unwrap() error {
	return ErrUnauthorized
}

func guardErr(kind GuardKind, format string, args ...interface{}) error {
	return &GuardError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
