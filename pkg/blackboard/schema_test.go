package blackboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		probability float64
		want        RiskLabel
	}{
		{0.0, RiskLow},
		{0.29, RiskLow},
		{0.3, RiskModerate},
		{0.59, RiskModerate},
		{0.6, RiskHigh},
		{1.0, RiskHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LabelFor(tt.probability), "probability %g", tt.probability)
	}
}

func TestSeverityWeight(t *testing.T) {
	assert.Greater(t, SeverityCritical.Weight(), SeverityHigh.Weight())
	assert.Greater(t, SeverityHigh.Weight(), SeverityMedium.Weight())
	assert.Greater(t, SeverityMedium.Weight(), SeverityLow.Weight())
	assert.InDelta(t, 0.45, SeverityCritical.Weight(), 1e-9)
}

func TestSeedPayloadValidate(t *testing.T) {
	t.Run("source only", func(t *testing.T) {
		p := &SeedPayload{Label: "A", Source: "code"}
		assert.NoError(t, p.Validate())
	})

	t.Run("request only", func(t *testing.T) {
		p := &SeedPayload{Label: "A", Request: &SynthesisRequest{Target: "view", Name: "HomeView"}}
		assert.NoError(t, p.Validate())
	})

	t.Run("neither source nor request", func(t *testing.T) {
		p := &SeedPayload{Label: "A"}
		assert.Error(t, p.Validate())
	})

	t.Run("unknown synthesis target", func(t *testing.T) {
		p := &SeedPayload{Label: "A", Request: &SynthesisRequest{Target: "widget", Name: "X"}}
		assert.Error(t, p.Validate())
	})

	t.Run("missing label", func(t *testing.T) {
		p := &SeedPayload{Source: "code"}
		assert.Error(t, p.Validate())
	})
}

func TestRiskContributionPayloadValidate(t *testing.T) {
	assert.NoError(t, (&RiskContributionPayload{Item: "x", Weight: 0}).Validate())
	assert.NoError(t, (&RiskContributionPayload{Item: "x", Weight: 1}).Validate())
	assert.Error(t, (&RiskContributionPayload{Item: "x", Weight: 1.1}).Validate())
	assert.Error(t, (&RiskContributionPayload{Item: "x", Weight: -0.1}).Validate())
	assert.Error(t, (&RiskContributionPayload{Weight: 0.5}).Validate())
}

func TestVerdictPayloadValidate(t *testing.T) {
	assert.NoError(t, (&VerdictPayload{Mode: ModeForensic, Probability: 0.5, Label: RiskModerate}).Validate())
	assert.Error(t, (&VerdictPayload{Mode: "divination"}).Validate())
	assert.Error(t, (&VerdictPayload{Mode: ModeForensic, Probability: 1.2}).Validate())
	assert.Error(t, (&VerdictPayload{Mode: ModeSynthesis, Compliance: -0.1}).Validate())
}
