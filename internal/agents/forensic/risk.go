package forensic

import (
	"context"
	"math"
	"strings"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// AssessorName is the producer name recorded on risk assessor facts.
const AssessorName = "risk_assessor"

// Pattern family weights. Families are matched by substring against the
// signature tag; a tag outside every family falls back to its severity weight.
var patternFamilyWeights = []struct {
	substrings []string
	weight     float64
}{
	{[]string{"HALLUCINATION"}, 0.50},
	{[]string{"SYMBOL", "UNMANGLED"}, 0.40},
	{[]string{"LEAK", "SELF"}, 0.35},
	{[]string{"CONFIG", "INTERPOSABLE"}, 0.30},
}

// Assessor converts committed matches and violations into risk contributions.
// Each input fact yields exactly one contribution depending on it, which is
// also how the assessor knows what it has already processed.
type Assessor struct{}

// NewAssessor returns the risk assessment agent.
func NewAssessor() *Assessor { return &Assessor{} }

func (a *Assessor) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     AssessorName,
		Reads:    []blackboard.Kind{blackboard.KindMatch, blackboard.KindViolation, blackboard.KindRiskContribution},
		Produces: []blackboard.Kind{blackboard.KindRiskContribution},
	}
}

func (a *Assessor) Triggered(snap *blackboard.Snapshot) bool {
	return len(a.pending(snap)) > 0
}

func (a *Assessor) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, fact := range a.pending(snap) {
		var payload *blackboard.RiskContributionPayload

		switch p := fact.Payload.(type) {
		case *blackboard.ViolationPayload:
			payload = &blackboard.RiskContributionPayload{
				Source: "axiom",
				Item:   p.Axiom,
				Weight: p.Severity.Weight(),
			}
		case *blackboard.MatchPayload:
			payload = &blackboard.RiskContributionPayload{
				Source: "signature",
				Item:   p.Signature,
				Weight: matchWeight(p),
			}
		default:
			continue
		}

		proposals = append(proposals, agent.Proposal{
			Kind:      blackboard.KindRiskContribution,
			Payload:   payload,
			DependsOn: []int64{fact.ID},
		})
	}

	return proposals, nil
}

// pending returns matches and violations not yet referenced by any risk
// contribution, in fact id order.
func (a *Assessor) pending(snap *blackboard.Snapshot) []blackboard.Fact {
	covered := make(map[int64]bool)
	for _, fact := range snap.Query(blackboard.KindRiskContribution) {
		for _, id := range fact.DependsOn {
			covered[id] = true
		}
	}

	var pending []blackboard.Fact
	for _, fact := range snap.Facts() {
		if fact.Kind != blackboard.KindMatch && fact.Kind != blackboard.KindViolation {
			continue
		}
		if !covered[fact.ID] {
			pending = append(pending, fact)
		}
	}
	return pending
}

// matchWeight weighs a signature hit by its pattern family, scaled up for
// repeated occurrences with diminishing returns.
func matchWeight(p *blackboard.MatchPayload) float64 {
	weight := p.Severity.Weight()
	for _, family := range patternFamilyWeights {
		if containsAny(p.Signature, family.substrings) {
			weight = family.weight
			break
		}
	}

	scaled := weight * math.Log(float64(p.Occurrences)+1)
	return math.Min(scaled, 1.0)
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
