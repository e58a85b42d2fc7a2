package game

import "fmt"

// ValidationError covers locally recoverable rejections: phase-mismatched
// actions, exhausted action points, insufficient resources, malformed
// submissions. It never halts the drain loop.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// SchedulingFault reports a timer or drift-correction failure. A single
// fault triggers a resync attempt; only repeated failure is reported upward.
type SchedulingFault struct {
	Op  string
	Err error
}

func (e *SchedulingFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scheduling fault during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("scheduling fault during %s", e.Op)
}

func (e *SchedulingFault) Unwrap() error { return e.Err }

// CombatInputError flags degenerate force compositions. Single-sided
// emptiness degrades gracefully; this error is reserved for inputs with no
// sensible outcome at all (both sides empty, nil forces).
type CombatInputError struct {
	Reason string
}

func (e *CombatInputError) Error() string { return e.Reason }

// StateConsistencyError flags a mutation attempted on an already-destroyed
// or retreated unit, or on a record that no longer exists.
type StateConsistencyError struct {
	Reason string
}

func (e *StateConsistencyError) Error() string { return e.Reason }
