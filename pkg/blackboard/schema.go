package blackboard

import "fmt"

// Payload is the kind-specific structured data carried by a fact.
// Each payload knows its own kind and validates its own shape; Append rejects
// any payload whose kind or shape does not line up.
type Payload interface {
	FactKind() Kind
	Validate() error
}

// SeedPayload is the opaque input bundle a run is initialized with: raw source
// text for forensic runs, a synthesis request for synthesis runs, or both when
// healing existing source.
type SeedPayload struct {
	Label   string            `json:"label"`             // Human-readable identifier, e.g. "CB_001"
	Source  string            `json:"source,omitempty"`  // Raw source text under analysis
	Config  string            `json:"config,omitempty"`  // Build/linker configuration context
	Request *SynthesisRequest `json:"request,omitempty"` // Non-nil for synthesis runs
}

// SynthesisRequest describes what a synthesis run should produce.
type SynthesisRequest struct {
	Target   string          `json:"target"`             // "view", "service", or "project"
	Name     string          `json:"name"`               // e.g. "HomeView"
	Methods  []ServiceMethod `json:"methods,omitempty"`  // Service targets only
	Views    []string        `json:"views,omitempty"`    // Project targets only
	Services []string        `json:"services,omitempty"` // Project targets only
}

// ServiceMethod describes one method on a synthesized service.
type ServiceMethod struct {
	Name    string `json:"name"`
	Returns string `json:"returns"`
	Throws  bool   `json:"throws"`
}

func (p *SeedPayload) FactKind() Kind { return KindSeed }

func (p *SeedPayload) Validate() error {
	if p.Label == "" {
		return validationErrorf(KindSeed, "label cannot be empty")
	}
	if p.Source == "" && p.Request == nil {
		return validationErrorf(KindSeed, "seed must carry source text or a synthesis request")
	}
	if p.Request != nil {
		if p.Request.Name == "" {
			return validationErrorf(KindSeed, "synthesis request name cannot be empty")
		}
		switch p.Request.Target {
		case "view", "service", "project":
		default:
			return validationErrorf(KindSeed, "unknown synthesis target: %q", p.Request.Target)
		}
	}
	return nil
}

// MatchPayload records a pattern signature hit in the seed source.
type MatchPayload struct {
	Signature   string   `json:"signature"`   // Signature tag, e.g. "UNMANGLED_SYMBOL"
	Description string   `json:"description"` // What the signature indicates
	Severity    Severity `json:"severity"`
	Occurrences int      `json:"occurrences"`
	Samples     []string `json:"samples,omitempty"` // First few matched excerpts
}

func (p *MatchPayload) FactKind() Kind { return KindMatch }

func (p *MatchPayload) Validate() error {
	if p.Signature == "" {
		return validationErrorf(KindMatch, "signature cannot be empty")
	}
	if err := p.Severity.Validate(); err != nil {
		return validationErrorf(KindMatch, "%v", err)
	}
	if p.Occurrences < 1 {
		return validationErrorf(KindMatch, "occurrences must be >= 1, got %d", p.Occurrences)
	}
	return nil
}

// ViolationPayload records an axiom contradiction found in the seed source.
type ViolationPayload struct {
	Axiom       string   `json:"axiom"`  // Axiom identifier, e.g. "AXIOM_IDEMPOTENCY"
	Vector      string   `json:"vector"` // The concrete contradiction observed
	Severity    Severity `json:"severity"`
	Impact      string   `json:"impact,omitempty"`
	Remediation string   `json:"remediation,omitempty"`
}

func (p *ViolationPayload) FactKind() Kind { return KindViolation }

func (p *ViolationPayload) Validate() error {
	if p.Axiom == "" {
		return validationErrorf(KindViolation, "axiom cannot be empty")
	}
	if p.Vector == "" {
		return validationErrorf(KindViolation, "vector cannot be empty")
	}
	if err := p.Severity.Validate(); err != nil {
		return validationErrorf(KindViolation, "%v", err)
	}
	return nil
}

// RiskContributionPayload is a quantified risk signal. The effective evidence
// strength of the fact is Weight scaled by the fact's confidence.
type RiskContributionPayload struct {
	Source string  `json:"source"` // Producing analysis, e.g. "axiom" or "signature"
	Item   string  `json:"item"`   // What the contribution is about
	Weight float64 `json:"weight"` // In [0,1]
}

func (p *RiskContributionPayload) FactKind() Kind { return KindRiskContribution }

func (p *RiskContributionPayload) Validate() error {
	if p.Item == "" {
		return validationErrorf(KindRiskContribution, "item cannot be empty")
	}
	if p.Weight < 0 || p.Weight > 1 {
		return validationErrorf(KindRiskContribution, "weight must be in [0,1], got %g", p.Weight)
	}
	return nil
}

// ArtifactFragmentPayload is one ordered piece of a generated artifact.
// Fragments for the same target are assembled in ascending Order.
type ArtifactFragmentPayload struct {
	Target  string `json:"target"` // Artifact the fragment belongs to, e.g. "HomeView"
	File    string `json:"file"`   // Suggested output file name
	Order   int    `json:"order"`  // Assembly position within the target
	Content string `json:"content"`
}

func (p *ArtifactFragmentPayload) FactKind() Kind { return KindArtifactFragment }

func (p *ArtifactFragmentPayload) Validate() error {
	if p.Target == "" {
		return validationErrorf(KindArtifactFragment, "target cannot be empty")
	}
	if p.Order < 0 {
		return validationErrorf(KindArtifactFragment, "order must be >= 0, got %d", p.Order)
	}
	if p.Content == "" {
		return validationErrorf(KindArtifactFragment, "content cannot be empty")
	}
	return nil
}

// AxiomCheckPayload records whether an assembled artifact satisfies one
// constructive axiom.
type AxiomCheckPayload struct {
	Axiom     string `json:"axiom"`  // Axiom identifier, e.g. "WEAK_CAPTURE"
	Name      string `json:"name"`   // Human-readable axiom name
	Target    string `json:"target"` // Artifact that was checked
	Satisfied bool   `json:"satisfied"`
	Reason    string `json:"reason,omitempty"`
}

func (p *AxiomCheckPayload) FactKind() Kind { return KindAxiomCheck }

func (p *AxiomCheckPayload) Validate() error {
	if p.Axiom == "" {
		return validationErrorf(KindAxiomCheck, "axiom cannot be empty")
	}
	if p.Target == "" {
		return validationErrorf(KindAxiomCheck, "target cannot be empty")
	}
	return nil
}

// AgentErrorPayload records a non-fatal agent failure. The agent is skipped
// for the round that produced the error but stays in the roster.
type AgentErrorPayload struct {
	Agent   string `json:"agent"`
	Round   int    `json:"round"`
	Message string `json:"message"`
}

func (p *AgentErrorPayload) FactKind() Kind { return KindAgentError }

func (p *AgentErrorPayload) Validate() error {
	if p.Agent == "" {
		return validationErrorf(KindAgentError, "agent cannot be empty")
	}
	if p.Message == "" {
		return validationErrorf(KindAgentError, "message cannot be empty")
	}
	return nil
}

// VerdictPayload is the terminal reduction of a run's facts.
// Forensic runs populate Probability and Label; synthesis runs populate
// Compliance, Target, and Artifact.
type VerdictPayload struct {
	Mode        Mode      `json:"mode"`
	Probability float64   `json:"probability,omitempty"` // P(failure), forensic mode
	Label       RiskLabel `json:"label,omitempty"`       // Bucketed probability, forensic mode
	Compliance  float64   `json:"compliance,omitempty"`  // Satisfied/applicable axiom checks, synthesis mode
	Target      string    `json:"target,omitempty"`      // Assembled artifact name, synthesis mode
	Artifact    string    `json:"artifact,omitempty"`    // Assembled artifact text, synthesis mode
	Rounds      int       `json:"rounds"`                // Rounds the run took to converge
}

// RiskLabel buckets an aggregated failure probability.
type RiskLabel string

const (
	RiskLow      RiskLabel = "LOW"      // probability < 0.3
	RiskModerate RiskLabel = "MODERATE" // probability < 0.6
	RiskHigh     RiskLabel = "HIGH"     // probability >= 0.6
)

// LabelFor buckets a probability into a RiskLabel.
func LabelFor(probability float64) RiskLabel {
	switch {
	case probability < 0.3:
		return RiskLow
	case probability < 0.6:
		return RiskModerate
	default:
		return RiskHigh
	}
}

func (p *VerdictPayload) FactKind() Kind { return KindVerdict }

func (p *VerdictPayload) Validate() error {
	if err := p.Mode.Validate(); err != nil {
		return validationErrorf(KindVerdict, "%v", err)
	}
	if p.Probability < 0 || p.Probability > 1 {
		return validationErrorf(KindVerdict, "probability must be in [0,1], got %g", p.Probability)
	}
	if p.Compliance < 0 || p.Compliance > 1 {
		return validationErrorf(KindVerdict, "compliance must be in [0,1], got %g", p.Compliance)
	}
	return nil
}

// payloadPrototype returns a zero payload value for a kind, used when
// deserializing archived facts.
func payloadPrototype(kind Kind) (Payload, error) {
	switch kind {
	case KindSeed:
		return &SeedPayload{}, nil
	case KindMatch:
		return &MatchPayload{}, nil
	case KindViolation:
		return &ViolationPayload{}, nil
	case KindRiskContribution:
		return &RiskContributionPayload{}, nil
	case KindArtifactFragment:
		return &ArtifactFragmentPayload{}, nil
	case KindAxiomCheck:
		return &AxiomCheckPayload{}, nil
	case KindAgentError:
		return &AgentErrorPayload{}, nil
	case KindVerdict:
		return &VerdictPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown fact kind: %q", kind)
	}
}
