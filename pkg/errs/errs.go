// Package errs defines the engine's error-kind taxonomy, shared by
// every package that can reject a caller at its API boundary. Each kind
// has a sentinel (ErrPrecondition, ErrLookup, ErrNotRegistered,
// ErrInvariantViolation) matched with errors.Is, and a struct type
// carrying the detail, matched with errors.As; the structs unwrap to
// their sentinel so both work on the same value.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrPrecondition       = errors.New("precondition failed")
	ErrLookup             = errors.New("not found")
	ErrNotRegistered      = errors.New("client not registered")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Precondition reports an invalid argument at an API boundary: an empty
// string, a negative capacity, an unknown key passed where a valid one
// was required. Always reported to the caller, never dropped.
type Precondition struct {
	Op     string
	Reason string
}

func (e *Precondition) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

func (e *Precondition) Unwrap() error { return ErrPrecondition }

// Lookup reports the absence of a key in a ledger or cache: an unknown
// bar type, an unknown order id.
type Lookup struct {
	Op  string
	Key string
}

func (e *Lookup) Error() string {
	return fmt.Sprintf("%s: no entry for %q", e.Op, e.Key)
}

func (e *Lookup) Unwrap() error { return ErrLookup }

// NotRegistered reports that an operation needs a data or execution
// client that has not been registered yet. The caller logs it at error
// level and suppresses the operation; the engine continues.
type NotRegistered struct {
	Client string
}

func (e *NotRegistered) Error() string {
	return fmt.Sprintf("%s client not registered", e.Client)
}

func (e *NotRegistered) Unwrap() error { return ErrNotRegistered }

// InvariantViolation reports a condition that should never occur. It
// aborts in debug builds and is logged-and-continued in release;
// callers decide which by checking a build flag before acting on it.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolation }
