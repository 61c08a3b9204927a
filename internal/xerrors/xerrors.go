// Package xerrors defines the two error kinds the runtime surfaces to
// callers: an UnsupportedError when no backend can satisfy a requested
// capability, and an OperationError when a supported backend failed to
// carry out an operation.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// OperationError wraps a failure from a supported backend (engine pull,
// create, start, exec, filesystem, ...) with the workload and phase it
// happened in.
type OperationError struct {
	Op       string
	Workload string
	Err      error
}

func NewOperationError(op, workload string, err error) *OperationError {
	return &OperationError{Op: op, Workload: workload, Err: err}
}

func (e *OperationError) Error() string {
	if e.Workload == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s workload %q: %s", e.Op, e.Workload, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Wrap annotates err with a stack-bearing message and returns it as an
// *OperationError for op/workload.
func Wrap(err error, op, workload string) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Workload: workload, Err: errors.Wrap(err, op)}
}

// Wrapf is Wrap with a formatted message appended.
func Wrapf(err error, op, workload, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Workload: workload, Err: errors.Wrapf(err, format, args...)}
}

// UnsupportedError reports that no backend can satisfy a capability:
// the engine is unreachable, or no vendor library is present.
type UnsupportedError struct {
	Capability string
	Err        error
}

func NewUnsupportedError(capability string, err error) *UnsupportedError {
	return &UnsupportedError{Capability: capability, Err: err}
}

func (e *UnsupportedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unsupported: %s", e.Capability)
	}
	return fmt.Sprintf("unsupported: %s: %s", e.Capability, e.Err)
}

func (e *UnsupportedError) Unwrap() error { return e.Err }
