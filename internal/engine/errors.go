package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StallError reports that convergence was not reached within the configured
// round cap. The run's partial fact log is still returned alongside it; the
// caller can recover by re-running with relaxed limits or fewer agents.
type StallError struct {
	Rounds    int      // Rounds completed before stalling
	FactCount int      // Facts committed at the last snapshot
	Triggered []string // Agents that remained triggered
}

func (e *StallError) Error() string {
	return fmt.Sprintf("run stalled after %d rounds with %d facts; still triggered: %s",
		e.Rounds, e.FactCount, strings.Join(e.Triggered, ", "))
}

// TimeoutError reports that the overall wall-clock budget elapsed before
// convergence. Same partial-result semantics as StallError.
type TimeoutError struct {
	Budget    time.Duration
	Rounds    int
	FactCount int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run exceeded %s budget after %d rounds with %d facts",
		e.Budget, e.Rounds, e.FactCount)
}

// IsStall returns true if the error is a run StallError.
func IsStall(err error) bool {
	var se *StallError
	return errors.As(err, &se)
}

// IsTimeout returns true if the error is a run TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
