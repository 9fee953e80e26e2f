package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioForensicSingleViolation runs a minimal forensic roster: one
// detector that finds a single antipattern and contributes risk at
// confidence 0.56. The verdict must carry probability 0.56 and a MODERATE
// label.
func TestScenarioForensicSingleViolation(t *testing.T) {
	detector := &stubAgent{
		desc: agent.Descriptor{
			Name:     "detector",
			Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindViolation},
			Produces: []blackboard.Kind{blackboard.KindViolation, blackboard.KindRiskContribution},
		},
		triggerFn: func(snap *blackboard.Snapshot) bool {
			return snap.Count(blackboard.KindViolation) == 0
		},
		runFn: func(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
			seeds := snap.Query(blackboard.KindSeed)
			return []agent.Proposal{
				{
					Kind: blackboard.KindViolation,
					Payload: &blackboard.ViolationPayload{
						Axiom:    "AXIOM_IDEMPOTENCY",
						Vector:   "side-effect in init",
						Severity: blackboard.SeverityCritical,
					},
					DependsOn: []int64{seeds[0].ID},
				},
				{
					Kind: blackboard.KindRiskContribution,
					Payload: &blackboard.RiskContributionPayload{
						Source: "detector",
						Item:   "AXIOM_IDEMPOTENCY",
						Weight: 1.0,
					},
					Confidence: 0.56,
					DependsOn:  []int64{seeds[0].ID},
				},
			}, nil
		},
	}

	roster, err := agent.NewRoster(detector)
	require.NoError(t, err)

	eng, err := New(roster, Config{Mode: blackboard.ModeForensic})
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), []agent.Proposal{seedProposal("single-violation")})
	require.NoError(t, err)

	require.NotNil(t, result.Verdict)
	verdict := result.Verdict.Payload.(*blackboard.VerdictPayload)
	assert.InDelta(t, 0.56, verdict.Probability, 1e-9)
	assert.Equal(t, blackboard.RiskModerate, verdict.Label)
}

// TestScenarioSynthesisCompliantArtifact runs a minimal synthesis roster: a
// generator emitting N fragments and an enforcer emitting N satisfied checks.
// The verdict must assemble all fragments in ordering-key order with a
// compliance score of 1.0.
func TestScenarioSynthesisCompliantArtifact(t *testing.T) {
	const n = 4

	generator := &stubAgent{
		desc: agent.Descriptor{
			Name:     "generator",
			Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindArtifactFragment},
			Produces: []blackboard.Kind{blackboard.KindArtifactFragment},
		},
		triggerFn: func(snap *blackboard.Snapshot) bool {
			return snap.Count(blackboard.KindArtifactFragment) == 0
		},
		runFn: func(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
			proposals := make([]agent.Proposal, 0, n)
			// Emitted in reverse so assembly order cannot be an accident
			// of commit order.
			for i := n - 1; i >= 0; i-- {
				proposals = append(proposals, agent.Proposal{
					Kind: blackboard.KindArtifactFragment,
					Payload: &blackboard.ArtifactFragmentPayload{
						Target:  "HomeView",
						File:    "HomeView.swift",
						Order:   i,
						Content: fmt.Sprintf("// fragment %d", i),
					},
				})
			}
			return proposals, nil
		},
	}

	enforcer := &stubAgent{
		desc: agent.Descriptor{
			Name:     "enforcer",
			Reads:    []blackboard.Kind{blackboard.KindArtifactFragment, blackboard.KindAxiomCheck},
			Produces: []blackboard.Kind{blackboard.KindAxiomCheck},
		},
		triggerFn: func(snap *blackboard.Snapshot) bool {
			return snap.Count(blackboard.KindArtifactFragment) > 0 && snap.Count(blackboard.KindAxiomCheck) == 0
		},
		runFn: func(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
			var proposals []agent.Proposal
			for _, fragment := range snap.Query(blackboard.KindArtifactFragment) {
				proposals = append(proposals, agent.Proposal{
					Kind: blackboard.KindAxiomCheck,
					Payload: &blackboard.AxiomCheckPayload{
						Axiom:     "WEAK_CAPTURE",
						Name:      "Weak Self Capture",
						Target:    "HomeView",
						Satisfied: true,
					},
					DependsOn: []int64{fragment.ID},
				})
			}
			return proposals, nil
		},
	}

	roster, err := agent.NewRoster(generator, enforcer)
	require.NoError(t, err)

	eng, err := New(roster, Config{Mode: blackboard.ModeSynthesis})
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), []agent.Proposal{{
		Kind: blackboard.KindSeed,
		Payload: &blackboard.SeedPayload{
			Label:   "HomeView",
			Request: &blackboard.SynthesisRequest{Target: "view", Name: "HomeView"},
		},
	}})
	require.NoError(t, err)

	require.NotNil(t, result.Verdict)
	verdict := result.Verdict.Payload.(*blackboard.VerdictPayload)
	assert.Equal(t, 1.0, verdict.Compliance)
	assert.Equal(t, "HomeView", verdict.Target)

	expected := "// fragment 0\n// fragment 1\n// fragment 2\n// fragment 3"
	assert.Equal(t, expected, verdict.Artifact)
	assert.Len(t, factsOfKind(result.Facts, blackboard.KindAxiomCheck), n)
}
