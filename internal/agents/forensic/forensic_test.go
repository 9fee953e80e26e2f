package forensic

import (
	"context"
	"math"
	"testing"

	"github.com/corvidlabs/rook/internal/engine"
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedBoard commits the given seed payloads and returns a snapshot.
func seedBoard(t *testing.T, seeds ...*blackboard.SeedPayload) *blackboard.Snapshot {
	t.Helper()
	store := blackboard.NewStore()
	for _, seed := range seeds {
		_, err := store.Append(blackboard.KindSeed, "seed", seed, 1.0, nil)
		require.NoError(t, err)
	}
	return store.Snapshot()
}

func signatureTags(proposals []agent.Proposal) []string {
	var tags []string
	for _, p := range proposals {
		if match, ok := p.Payload.(*blackboard.MatchPayload); ok {
			tags = append(tags, match.Signature)
		}
	}
	return tags
}

// TestScannerDemoCorpus verifies the signature library recognizes each
// documented failure mode in the demo artifacts.
func TestScannerDemoCorpus(t *testing.T) {
	tests := []struct {
		label    string
		expected []string
	}{
		{
			label:    "CB_001",
			expected: []string{"INIT_LEAK", "INIT_SIDE_EFFECT", "MISSING_INTERPOSABLE"},
		},
		{
			label:    "CB_002",
			expected: []string{"UNMANGLED_SYMBOL"},
		},
		{
			label:    "CB_003",
			expected: []string{"DOTNET_HALLUCINATION", "GOLANG_HALLUCINATION"},
		},
		{
			label:    "CB_004",
			expected: []string{"NO_CONFIG"},
		},
		{
			label:    "CB_005",
			expected: []string{"STRONG_SELF_CLOSURE", "MAIN_QUEUE_SELF"},
		},
	}

	seeds := demoPayloads(t)
	scanner := NewScanner()

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			snap := seedBoard(t, seeds[tt.label])
			require.True(t, scanner.Triggered(snap))

			proposals, err := scanner.Run(context.Background(), snap)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.expected, signatureTags(proposals))

			for _, p := range proposals {
				assert.Equal(t, []int64{1}, p.DependsOn)
				require.NoError(t, p.Payload.Validate())
			}
		})
	}
}

// TestScannerCleanSeed verifies a seed with no findings is closed out with a
// zero-weight contribution, so the scanner goes quiet instead of rescanning.
func TestScannerCleanSeed(t *testing.T) {
	clean := &blackboard.SeedPayload{
		Label:  "CLEAN_001",
		Source: "struct EmptyView: View { var body: some View { Text(\"ok\") } }",
		Config: "-Xlinker -interposable",
	}
	store := blackboard.NewStore()
	seed, err := store.Append(blackboard.KindSeed, "seed", clean, 1.0, nil)
	require.NoError(t, err)

	scanner := NewScanner()
	snap := store.Snapshot()
	require.True(t, scanner.Triggered(snap))

	proposals, err := scanner.Run(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, proposals, 1)

	marker := proposals[0].Payload.(*blackboard.RiskContributionPayload)
	assert.Equal(t, blackboard.KindRiskContribution, proposals[0].Kind)
	assert.Equal(t, 0.0, marker.Weight)
	assert.Equal(t, []int64{seed.ID}, proposals[0].DependsOn)

	// Once the marker is committed the trigger must go quiet.
	_, err = store.Append(proposals[0].Kind, ScannerName, proposals[0].Payload, 1.0, proposals[0].DependsOn)
	require.NoError(t, err)
	assert.False(t, scanner.Triggered(store.Snapshot()))
}

// TestScannerOccurrenceCount verifies repeated hits are counted and sampled.
func TestScannerOccurrenceCount(t *testing.T) {
	source := "let a = x as! Foo\nlet b = y as! Bar\nlet c = z as! Baz\nlet d = w as! Qux\n"
	snap := seedBoard(t, &blackboard.SeedPayload{Label: "CASTS", Source: source, Config: "-interposable"})

	proposals, err := NewScanner().Run(context.Background(), snap)
	require.NoError(t, err)

	var forceCast *blackboard.MatchPayload
	for _, p := range proposals {
		if match, ok := p.Payload.(*blackboard.MatchPayload); ok && match.Signature == "FORCE_CAST" {
			forceCast = match
		}
	}
	require.NotNil(t, forceCast)
	assert.Equal(t, 4, forceCast.Occurrences)
	assert.Len(t, forceCast.Samples, 3, "samples are capped")
}

// TestInverterDemoCorpus verifies axiom inversion over the demo artifacts.
func TestInverterDemoCorpus(t *testing.T) {
	tests := []struct {
		label    string
		expected []string
	}{
		{label: "CB_001", expected: []string{AxiomIdempotency}},
		{label: "CB_002", expected: []string{AxiomSymbolic}},
		{label: "CB_003", expected: nil},
	}

	seeds := demoPayloads(t)
	inverter := NewInverter()

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			snap := seedBoard(t, seeds[tt.label])
			proposals, err := inverter.Run(context.Background(), snap)
			require.NoError(t, err)

			var axioms []string
			for _, p := range proposals {
				if violation, ok := p.Payload.(*blackboard.ViolationPayload); ok {
					axioms = append(axioms, violation.Axiom)
				}
			}
			assert.ElementsMatch(t, tt.expected, axioms)
		})
	}
}

// TestInverterUnmangledSymbol verifies the symbolic axiom catches unmangled
// names but accepts properly mangled ones.
func TestInverterUnmangledSymbol(t *testing.T) {
	violations := invertAxioms(`let sym = dlsym(lib, "createView")`)
	require.Len(t, violations, 1)
	assert.Equal(t, AxiomSymbolic, violations[0].Axiom)
	assert.Equal(t, blackboard.SeverityCritical, violations[0].Severity)

	mangled := invertAxioms(`let sym = dlsym(lib, "_$s7Preview10createViewAA0D0VyF")`)
	assert.Empty(t, mangled)
}

// TestInverterBodyPurity verifies heavy work inside a body computation
// violates the purity axiom, while the same work elsewhere does not.
func TestInverterBodyPurity(t *testing.T) {
	inBody := invertAxioms("var body: some View {\n    let data = try await loader.fetch()\n    Text(data)\n}")
	require.Len(t, inBody, 1)
	assert.Equal(t, AxiomPurity, inBody[0].Axiom)
	assert.Equal(t, blackboard.SeverityMedium, inBody[0].Severity)

	outside := invertAxioms("var body: some View {\n    Text(cached)\n}\n\nfunc refresh() async { data = try await loader.fetch() }")
	assert.Empty(t, outside)
}

// TestAssessorWeights verifies severity and pattern family weighting.
func TestAssessorWeights(t *testing.T) {
	store := blackboard.NewStore()
	seed, err := store.Append(blackboard.KindSeed, "seed", &blackboard.SeedPayload{Label: "W", Source: "x"}, 1.0, nil)
	require.NoError(t, err)

	violation, err := store.Append(blackboard.KindViolation, InverterName, &blackboard.ViolationPayload{
		Axiom:    AxiomIdempotency,
		Vector:   "side-effect in init",
		Severity: blackboard.SeverityCritical,
	}, 1.0, []int64{seed.ID})
	require.NoError(t, err)

	match, err := store.Append(blackboard.KindMatch, ScannerName, &blackboard.MatchPayload{
		Signature:   "UNMANGLED_SYMBOL",
		Description: "dlsym with unmangled Swift symbol",
		Severity:    blackboard.SeverityCritical,
		Occurrences: 1,
	}, 1.0, []int64{seed.ID})
	require.NoError(t, err)

	assessor := NewAssessor()
	snap := store.Snapshot()
	require.True(t, assessor.Triggered(snap))

	proposals, err := assessor.Run(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	byItem := make(map[string]agent.Proposal)
	for _, p := range proposals {
		byItem[p.Payload.(*blackboard.RiskContributionPayload).Item] = p
	}

	axiomContribution := byItem[AxiomIdempotency].Payload.(*blackboard.RiskContributionPayload)
	assert.Equal(t, blackboard.SeverityCritical.Weight(), axiomContribution.Weight)
	assert.Equal(t, []int64{violation.ID}, byItem[AxiomIdempotency].DependsOn)

	symbolContribution := byItem["UNMANGLED_SYMBOL"].Payload.(*blackboard.RiskContributionPayload)
	assert.InDelta(t, 0.40*math.Log(2), symbolContribution.Weight, 1e-9)
	assert.Equal(t, []int64{match.ID}, byItem["UNMANGLED_SYMBOL"].DependsOn)
}

// TestAssessorOccurrenceDamping verifies repeated occurrences scale the weight
// logarithmically and the result stays capped at 1.0.
func TestAssessorOccurrenceDamping(t *testing.T) {
	single := matchWeight(&blackboard.MatchPayload{Signature: "FORCE_TRY", Severity: blackboard.SeverityHigh, Occurrences: 1})
	many := matchWeight(&blackboard.MatchPayload{Signature: "FORCE_TRY", Severity: blackboard.SeverityHigh, Occurrences: 10})
	flood := matchWeight(&blackboard.MatchPayload{Signature: "FORCE_TRY", Severity: blackboard.SeverityHigh, Occurrences: 10000})

	assert.Less(t, single, many)
	assert.InDelta(t, 0.30*math.Log(2), single, 1e-9)
	assert.Equal(t, 1.0, flood)
}

// TestForensicDemoRun drives the full built-in roster over the demo corpus
// through the engine and verifies it converges on a high-risk verdict.
func TestForensicDemoRun(t *testing.T) {
	roster, err := Roster()
	require.NoError(t, err)

	eng, err := engine.New(roster, engine.Config{Mode: blackboard.ModeForensic})
	require.NoError(t, err)

	result, err := eng.Run(context.Background(), DemoSeeds())
	require.NoError(t, err)

	assert.Equal(t, engine.OutcomeConverged, result.Outcome)
	require.NotNil(t, result.Verdict)

	verdict := result.Verdict.Payload.(*blackboard.VerdictPayload)
	assert.Equal(t, blackboard.ModeForensic, verdict.Mode)
	assert.Equal(t, blackboard.RiskHigh, verdict.Label)
	assert.Greater(t, verdict.Probability, 0.9)

	// Scan round, assessment round, quiescent round.
	assert.Equal(t, 3, result.Rounds)
}

// demoPayloads indexes the demo seed payloads by label.
func demoPayloads(t *testing.T) map[string]*blackboard.SeedPayload {
	t.Helper()
	byLabel := make(map[string]*blackboard.SeedPayload)
	for _, seed := range DemoSeeds() {
		payload := seed.Payload.(*blackboard.SeedPayload)
		byLabel[payload.Label] = payload
	}
	require.Len(t, byLabel, 5)
	return byLabel
}
