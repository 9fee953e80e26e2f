package blackboard

import (
	"fmt"
	"time"
)

// Fact represents an immutable record on the blackboard.
// Facts are the fundamental unit of state in Rook - every observation,
// risk signal, and generated fragment is a fact with complete provenance.
// A fact is write-once: once appended it is never modified or removed.
type Fact struct {
	ID         int64     `json:"id"`          // Monotonic sequence number, assigned at append time
	Kind       Kind      `json:"kind"`        // Semantic type of the payload
	Producer   string    `json:"producer"`    // Name of the agent that proposed it, or "seed"
	Payload    Payload   `json:"payload"`     // Kind-specific structured data
	Confidence float64   `json:"confidence"`  // In [0,1], 1.0 unless the producer says otherwise
	CreatedAt  time.Time `json:"created_at"`  // Wall-clock append time, for auditability
	DependsOn  []int64   `json:"depends_on"`  // IDs of the facts this one was derived from
}

// Kind identifies the semantic type of a fact's payload.
// The engine and aggregator dispatch on kind; agents declare the kinds they
// read and produce in their descriptors.
type Kind string

const (
	// KindSeed is the opaque input bundle a run is initialized with.
	KindSeed Kind = "seed"

	// KindMatch records a pattern signature hit against the seed source.
	KindMatch Kind = "match"

	// KindViolation records an axiom contradiction found in the seed source.
	KindViolation Kind = "violation"

	// KindRiskContribution is a quantified risk signal consumed by the
	// forensic verdict aggregation.
	KindRiskContribution Kind = "risk_contribution"

	// KindArtifactFragment is one ordered piece of a generated artifact.
	KindArtifactFragment Kind = "artifact_fragment"

	// KindAxiomCheck records whether an assembled artifact satisfies one
	// constructive axiom.
	KindAxiomCheck Kind = "axiom_check"

	// KindAgentError records a non-fatal agent failure for the audit trail.
	KindAgentError Kind = "agent_error"

	// KindVerdict is the terminal fact closing a run.
	KindVerdict Kind = "verdict"
)

// Validate checks if the Kind is a known enum value.
func (k Kind) Validate() error {
	switch k {
	case KindSeed, KindMatch, KindViolation, KindRiskContribution,
		KindArtifactFragment, KindAxiomCheck, KindAgentError, KindVerdict:
		return nil
	default:
		return fmt.Errorf("unknown fact kind: %q", k)
	}
}

// Mode selects which verdict aggregation a run terminates with.
type Mode string

const (
	// ModeForensic reduces risk contributions to a failure probability.
	ModeForensic Mode = "forensic"

	// ModeSynthesis assembles artifact fragments and scores axiom compliance.
	ModeSynthesis Mode = "synthesis"
)

// Validate checks if the Mode is a known enum value.
func (m Mode) Validate() error {
	switch m {
	case ModeForensic, ModeSynthesis:
		return nil
	default:
		return fmt.Errorf("unknown run mode: %q", m)
	}
}

// Severity grades a finding. The grade determines the weight the finding
// contributes to the aggregated failure probability.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Validate checks if the Severity is a known enum value.
func (s Severity) Validate() error {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return nil
	default:
		return fmt.Errorf("unknown severity: %q", s)
	}
}

// Weight returns the risk weight of a severity grade.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 0.45
	case SeverityHigh:
		return 0.30
	case SeverityMedium:
		return 0.15
	default:
		return 0.05
	}
}

// ValidationError reports a malformed fact payload. The fact is not recorded;
// the condition is non-fatal to the run and the caller decides whether to
// retry with a corrected payload.
type ValidationError struct {
	Kind   Kind
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("invalid fact: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s fact: %s", e.Kind, e.Reason)
}

// validationErrorf builds a ValidationError with a formatted reason.
func validationErrorf(kind Kind, format string, a ...any) error {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, a...)}
}
