// Package agent defines the capability contract every Rook agent implements.
// An agent is a pluggable unit of work: given a read-only snapshot of the
// blackboard it decides whether it is triggered, and if so proposes zero or
// more new facts. Agents never write to the blackboard directly - the engine
// commits their proposals at the round barrier, which is what makes concurrent
// execution within a round safe.
package agent

import (
	"context"
	"fmt"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

// Descriptor is an agent's static metadata. Reads lists the fact kinds the
// trigger predicate depends on; the engine uses it to skip re-evaluating an
// agent in rounds where none of its input kinds changed. An empty Reads set
// means the agent is evaluated every round.
type Descriptor struct {
	Name             string
	Reads            []blackboard.Kind
	Produces         []blackboard.Kind
	Nondeterministic bool // Excludes the agent from replay-equivalence checks
}

// Validate checks the descriptor for well-formedness.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}
	for _, kind := range d.Reads {
		if err := kind.Validate(); err != nil {
			return fmt.Errorf("agent %q reads: %w", d.Name, err)
		}
	}
	for _, kind := range d.Produces {
		if err := kind.Validate(); err != nil {
			return fmt.Errorf("agent %q produces: %w", d.Name, err)
		}
	}
	return nil
}

// Proposal is one fact write proposed by an agent's Run. The engine commits
// proposals in deterministic order after the round barrier.
//
// A zero Confidence means "unset" and is committed as 1.0; a contribution
// that genuinely carries no evidence should not be proposed at all.
type Proposal struct {
	Kind       blackboard.Kind
	Payload    blackboard.Payload
	Confidence float64
	DependsOn  []int64
}

// Agent is the capability interface implemented by every detector and
// generator registered with a run.
//
// Triggered must be a pure, deterministic function of the snapshot: the
// engine evaluates it repeatedly and cheaply, and convergence detection
// relies on it giving the same answer for the same snapshot.
//
// Run performs the agent's actual work. It may be arbitrarily expensive but
// must not block on unbounded external I/O, must not retain the snapshot
// beyond the call, and must return the same proposals for the same snapshot
// unless the descriptor marks the agent nondeterministic.
type Agent interface {
	Descriptor() Descriptor
	Triggered(snap *blackboard.Snapshot) bool
	Run(ctx context.Context, snap *blackboard.Snapshot) ([]Proposal, error)
}
