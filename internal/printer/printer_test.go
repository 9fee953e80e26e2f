package printer

import (
	"strings"
	"testing"

	"github.com/corvidlabs/rook/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})

	t.Run("returns error with title when including suggestions", func(t *testing.T) {
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
	})
}

func TestRiskBar(t *testing.T) {
	t.Run("empty at zero", func(t *testing.T) {
		bar := RiskBar(0)
		assert.Contains(t, bar, "0%")
		assert.NotContains(t, bar, "█")
	})

	t.Run("full at one", func(t *testing.T) {
		bar := RiskBar(1)
		assert.Contains(t, bar, "100%")
		assert.Equal(t, 30, strings.Count(bar, "█"))
		assert.NotContains(t, bar, "░")
	})

	t.Run("half filled", func(t *testing.T) {
		bar := RiskBar(0.5)
		assert.Equal(t, 15, strings.Count(bar, "█"))
		assert.Equal(t, 15, strings.Count(bar, "░"))
	})

	t.Run("clamps out of range input", func(t *testing.T) {
		assert.Contains(t, RiskBar(1.7), "100%")
		assert.Contains(t, RiskBar(-0.2), "0%")
	})
}

func TestLabel(t *testing.T) {
	for _, label := range []blackboard.RiskLabel{blackboard.RiskLow, blackboard.RiskModerate, blackboard.RiskHigh} {
		assert.Contains(t, Label(label), string(label))
	}
}
