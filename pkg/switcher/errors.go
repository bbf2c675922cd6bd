package switcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPinnedModel is returned by RevertGood when nothing was pinned.
	ErrNoPinnedModel = errors.New("no known good model pinned")
	// ErrRollbackFailed matches every *RollbackFailedError.
	ErrRollbackFailed = errors.New("rollback failed")
)

// ValidationError reports a candidate model that may not be activated.
type ValidationError struct {
	Model  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid model %q: %s", e.Model, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// RollbackFailedError is fatal: applying the candidate failed and restoring
// the previous model failed too. The gateway is left in an unknown state and
// needs manual attention.
type RollbackFailedError struct {
	Requested   string
	Target      string
	ApplyErr    error
	RollbackErr error
}

func (e *RollbackFailedError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("applying %q failed (%v) and no rollback target was available: %v", e.Requested, e.ApplyErr, e.RollbackErr)
	}
	return fmt.Sprintf("applying %q failed (%v) and restoring %q also failed: %v", e.Requested, e.ApplyErr, e.Target, e.RollbackErr)
}

func (e *RollbackFailedError) Is(target error) bool {
	return target == ErrRollbackFailed
}

func (e *RollbackFailedError) Unwrap() []error {
	return []error{e.ApplyErr, e.RollbackErr}
}
