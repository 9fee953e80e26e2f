package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

type fakeAgent struct {
	desc Descriptor
}

func (f *fakeAgent) Descriptor() Descriptor                       { return f.desc }
func (f *fakeAgent) Triggered(*blackboard.Snapshot) bool          { return false }
func (f *fakeAgent) Run(context.Context, *blackboard.Snapshot) ([]Proposal, error) {
	return nil, nil
}

func named(name string) *fakeAgent {
	return &fakeAgent{desc: Descriptor{Name: name}}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{
			name: "minimal valid",
			desc: Descriptor{Name: "scanner"},
		},
		{
			name: "valid with kinds",
			desc: Descriptor{
				Name:     "scanner",
				Reads:    []blackboard.Kind{blackboard.KindSeed},
				Produces: []blackboard.Kind{blackboard.KindMatch},
			},
		},
		{
			name:    "empty name",
			desc:    Descriptor{},
			wantErr: true,
		},
		{
			name:    "unknown read kind",
			desc:    Descriptor{Name: "scanner", Reads: []blackboard.Kind{"gossip"}},
			wantErr: true,
		},
		{
			name:    "unknown produce kind",
			desc:    Descriptor{Name: "scanner", Produces: []blackboard.Kind{"gossip"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRoster(t *testing.T) {
	t.Run("preserves registration order", func(t *testing.T) {
		roster, err := NewRoster(named("a"), named("b"), named("c"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, roster.Names())
		assert.Equal(t, 3, roster.Len())
	})

	t.Run("rejects empty roster", func(t *testing.T) {
		_, err := NewRoster()
		require.Error(t, err)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewRoster(named("a"), named("a"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate agent name")
	})

	t.Run("rejects invalid descriptor", func(t *testing.T) {
		_, err := NewRoster(named(""))
		require.Error(t, err)
	})

	t.Run("agents slice is a copy", func(t *testing.T) {
		a, b := named("a"), named("b")
		input := []Agent{a, b}
		roster, err := NewRoster(input...)
		require.NoError(t, err)

		input[0] = named("z")
		assert.Equal(t, []string{"a", "b"}, roster.Names())
	})
}

func TestRosterDeterministic(t *testing.T) {
	deterministic, err := NewRoster(named("a"), named("b"))
	require.NoError(t, err)
	assert.True(t, deterministic.Deterministic())

	flaky := &fakeAgent{desc: Descriptor{Name: "sampler", Nondeterministic: true}}
	mixed, err := NewRoster(named("a"), flaky)
	require.NoError(t, err)
	assert.False(t, mixed.Deterministic())
}
