// Package blackboard provides the shared fact store at the heart of a Rook run.
// The blackboard is the central shared state system: every observation, risk
// signal, and generated artifact fragment is recorded as an immutable Fact with
// complete provenance, and all coordination between agents happens through it.
//
// The store is append-only. Facts are never updated or deleted during a run;
// superseding information is expressed as a new fact referencing the old one
// through its depends_on set. Snapshots are consistent point-in-time views that
// remain stable regardless of concurrent writers.
package blackboard
