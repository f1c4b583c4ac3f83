package sane

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrOperation marks a transient failure of a genetic operation. Workers
	// retry the whole unit of work when they see it.
	ErrOperation = errors.New("genetic operation failed")

	// ErrOperationsExhausted is reported when a worker ran out of retries.
	ErrOperationsExhausted = errors.New("could not perform a successful genetic operation")

	// ErrInvariant marks a defect: a broken population or generation
	// invariant. It is never retried and always aborts training.
	ErrInvariant = errors.New("invariant violation")

	// ErrTrainerClosed is returned by RunGeneration after Shutdown.
	ErrTrainerClosed = errors.New("trainer is shut down")
)

// OperationError is a recoverable failure inside crossover or mutation.
type OperationError struct {
	Msg string
}

func (e *OperationError) Error() string {
	return "operation error: " + e.Msg
}

// Is lets errors.Is(err, ErrOperation) match any OperationError.
func (e *OperationError) Is(target error) bool {
	return target == ErrOperation
}

func operationErrorf(format string, args ...any) error {
	return &OperationError{Msg: fmt.Sprintf(format, args...)}
}

func invariantErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrInvariant, format, args...)
}

// IsInvariantViolation reports whether err signals a defect that must abort training.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariant)
}
