package blackboard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned by Append after a run has terminated and its store
// has become read-only.
var ErrClosed = errors.New("blackboard: store is closed")

// Store is the versioned, append-only collection of all facts produced in a
// run. A single mutex serializes id assignment and insertion; contention is
// bounded by agent count, not payload size. Snapshots are cheap and never
// block behind an in-progress agent.
//
// Invariants:
//   - IDs are strictly increasing, assigned exactly once per Append, never
//     reused or skipped, across concurrent appenders.
//   - Committed facts are never modified or removed.
type Store struct {
	mu     sync.RWMutex
	facts  []Fact
	byKind map[Kind][]int64
	closed bool
}

// NewStore creates an empty fact store.
func NewStore() *Store {
	return &Store{
		byKind: make(map[Kind][]int64),
	}
}

// Append validates a payload, assigns the next id, and commits the fact.
// It never fails for well-formed input; a malformed payload is rejected with
// a *ValidationError and not recorded. A confidence outside [0,1] is likewise
// rejected. Returns ErrClosed once the run has terminated.
func (s *Store) Append(kind Kind, producer string, payload Payload, confidence float64, dependsOn []int64) (Fact, error) {
	if err := kind.Validate(); err != nil {
		return Fact{}, &ValidationError{Kind: kind, Reason: err.Error()}
	}
	if producer == "" {
		return Fact{}, validationErrorf(kind, "producer cannot be empty")
	}
	if payload == nil {
		return Fact{}, validationErrorf(kind, "payload cannot be nil")
	}
	if payload.FactKind() != kind {
		return Fact{}, validationErrorf(kind, "payload is for kind %q", payload.FactKind())
	}
	if err := payload.Validate(); err != nil {
		return Fact{}, err
	}
	if confidence < 0 || confidence > 1 {
		return Fact{}, validationErrorf(kind, "confidence must be in [0,1], got %g", confidence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Fact{}, ErrClosed
	}

	// Dependencies must reference already-committed facts.
	next := int64(len(s.facts)) + 1
	deps := make([]int64, len(dependsOn))
	for i, dep := range dependsOn {
		if dep < 1 || dep >= next {
			return Fact{}, validationErrorf(kind, "depends_on references unknown fact id %d", dep)
		}
		deps[i] = dep
	}

	fact := Fact{
		ID:         next,
		Kind:       kind,
		Producer:   producer,
		Payload:    payload,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
		DependsOn:  deps,
	}

	s.facts = append(s.facts, fact)
	s.byKind[kind] = append(s.byKind[kind], next)

	return fact, nil
}

// Snapshot returns a consistent point-in-time view of the store. Facts
// appended after the call are not visible through the snapshot, even if it is
// iterated later. The returned view is safe for concurrent read access.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// The log and per-kind index are append-only, so full-capacity reslices
	// of the committed prefixes stay stable under concurrent appends.
	n := len(s.facts)
	kindIDs := make(map[Kind][]int64, len(s.byKind))
	for kind, ids := range s.byKind {
		kindIDs[kind] = ids[:len(ids):len(ids)]
	}

	return &Snapshot{
		facts:   s.facts[:n:n],
		kindIDs: kindIDs,
	}
}

// Query returns all facts of the given kind in id order, as of the calling
// moment. Equivalent to Snapshot().Query(kind).
func (s *Store) Query(kind Kind) []Fact {
	return s.Snapshot().Query(kind)
}

// Len returns the number of committed facts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// Close marks the run as terminated. The store becomes read-only; further
// Append calls return ErrClosed. Safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the store has been closed.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Snapshot is an immutable point-in-time view of a Store. Agents receive
// snapshots, never the store itself; they must treat the contained facts as
// read-only and must not retain them beyond inspection.
type Snapshot struct {
	facts   []Fact
	kindIDs map[Kind][]int64
}

// Version returns the highest fact id visible in the snapshot. A snapshot at
// version T contains exactly the facts with id <= T.
func (sn *Snapshot) Version() int64 {
	return int64(len(sn.facts))
}

// Len returns the number of facts visible in the snapshot.
func (sn *Snapshot) Len() int {
	return len(sn.facts)
}

// Facts returns all visible facts in id order.
func (sn *Snapshot) Facts() []Fact {
	out := make([]Fact, len(sn.facts))
	copy(out, sn.facts)
	return out
}

// Fact returns the fact with the given id, if visible in the snapshot.
func (sn *Snapshot) Fact(id int64) (Fact, bool) {
	if id < 1 || id > int64(len(sn.facts)) {
		return Fact{}, false
	}
	return sn.facts[id-1], true
}

// Query returns all visible facts of the given kind in id order.
func (sn *Snapshot) Query(kind Kind) []Fact {
	ids := sn.kindIDs[kind]
	out := make([]Fact, 0, len(ids))
	for _, id := range ids {
		out = append(out, sn.facts[id-1])
	}
	return out
}

// Count returns the number of visible facts of the given kind. Cheaper than
// Query when only the count matters, e.g. for trigger pruning.
func (sn *Snapshot) Count(kind Kind) int {
	return len(sn.kindIDs[kind])
}

// IsValidation returns true if the error is a payload ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// String implements fmt.Stringer for compact fact logging.
func (f Fact) String() string {
	return fmt.Sprintf("fact#%d[%s by %s]", f.ID, f.Kind, f.Producer)
}
