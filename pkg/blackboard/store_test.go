package blackboard

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayload(label string) *SeedPayload {
	return &SeedPayload{Label: label, Source: "var body: some View { Text(\"hi\") }"}
}

func mustAppend(t *testing.T, s *Store, kind Kind, producer string, payload Payload, deps ...int64) Fact {
	t.Helper()
	fact, err := s.Append(kind, producer, payload, 1.0, deps)
	require.NoError(t, err)
	return fact
}

// TestAppendAssignsMonotonicIDs verifies ids start at 1 and increase by one
// per committed fact.
func TestAppendAssignsMonotonicIDs(t *testing.T) {
	s := NewStore()

	for i := 1; i <= 5; i++ {
		fact := mustAppend(t, s, KindSeed, "seed", seedPayload(fmt.Sprintf("A_%d", i)))
		assert.Equal(t, int64(i), fact.ID)
	}
	assert.Equal(t, 5, s.Len())
}

// TestAppendValidation exercises the rejection paths. Rejected facts must
// not consume ids.
func TestAppendValidation(t *testing.T) {
	s := NewStore()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "unknown kind",
			call: func() error {
				_, err := s.Append(Kind("gossip"), "a", seedPayload("x"), 1.0, nil)
				return err
			},
		},
		{
			name: "empty producer",
			call: func() error {
				_, err := s.Append(KindSeed, "", seedPayload("x"), 1.0, nil)
				return err
			},
		},
		{
			name: "nil payload",
			call: func() error {
				_, err := s.Append(KindSeed, "a", nil, 1.0, nil)
				return err
			},
		},
		{
			name: "kind mismatch",
			call: func() error {
				_, err := s.Append(KindMatch, "a", seedPayload("x"), 1.0, nil)
				return err
			},
		},
		{
			name: "malformed payload",
			call: func() error {
				_, err := s.Append(KindSeed, "a", &SeedPayload{}, 1.0, nil)
				return err
			},
		},
		{
			name: "confidence out of range",
			call: func() error {
				_, err := s.Append(KindSeed, "a", seedPayload("x"), 1.5, nil)
				return err
			},
		},
		{
			name: "unknown dependency",
			call: func() error {
				_, err := s.Append(KindSeed, "a", seedPayload("x"), 1.0, []int64{7})
				return err
			},
		},
		{
			name: "forward dependency",
			call: func() error {
				_, err := s.Append(KindSeed, "a", seedPayload("x"), 1.0, []int64{1})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
		})
	}

	// No rejected append may have consumed an id.
	fact := mustAppend(t, s, KindSeed, "seed", seedPayload("first"))
	assert.Equal(t, int64(1), fact.ID)
}

// TestAppendConcurrent verifies id assignment stays gapless under concurrent
// appenders.
func TestAppendConcurrent(t *testing.T) {
	s := NewStore()

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.Append(KindSeed, "seed", seedPayload(fmt.Sprintf("W%d_%d", w, i)), 1.0, nil)
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	facts := s.Snapshot().Facts()
	require.Len(t, facts, writers*perWriter)
	for i, fact := range facts {
		assert.Equal(t, int64(i+1), fact.ID, "ids must be gapless in log order")
	}
}

// TestSnapshotIsolation verifies a snapshot never sees facts appended after
// it was taken.
func TestSnapshotIsolation(t *testing.T) {
	s := NewStore()
	mustAppend(t, s, KindSeed, "seed", seedPayload("A"))

	snap := s.Snapshot()
	assert.Equal(t, int64(1), snap.Version())

	mustAppend(t, s, KindSeed, "seed", seedPayload("B"))
	mustAppend(t, s, KindMatch, "scanner", &MatchPayload{
		Signature: "FORCE_CAST", Severity: SeverityHigh, Occurrences: 1,
	}, 1)

	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 0, snap.Count(KindMatch))
	assert.Empty(t, snap.Query(KindMatch))

	fresh := s.Snapshot()
	assert.Equal(t, int64(3), fresh.Version())
	assert.Equal(t, 1, fresh.Count(KindMatch))
}

// TestSnapshotLookup covers id lookup and kind queries.
func TestSnapshotLookup(t *testing.T) {
	s := NewStore()
	mustAppend(t, s, KindSeed, "seed", seedPayload("A"))
	match := mustAppend(t, s, KindMatch, "scanner", &MatchPayload{
		Signature: "FORCE_TRY", Severity: SeverityHigh, Occurrences: 2,
	}, 1)

	snap := s.Snapshot()

	got, ok := snap.Fact(match.ID)
	require.True(t, ok)
	assert.Equal(t, KindMatch, got.Kind)
	assert.Equal(t, []int64{1}, got.DependsOn)

	_, ok = snap.Fact(0)
	assert.False(t, ok)
	_, ok = snap.Fact(99)
	assert.False(t, ok)

	matches := snap.Query(KindMatch)
	require.Len(t, matches, 1)
	assert.Equal(t, "FORCE_TRY", matches[0].Payload.(*MatchPayload).Signature)
}

// TestCloseMakesStoreReadOnly verifies Append fails after Close while reads
// keep working.
func TestCloseMakesStoreReadOnly(t *testing.T) {
	s := NewStore()
	mustAppend(t, s, KindSeed, "seed", seedPayload("A"))

	s.Close()
	assert.True(t, s.Closed())

	_, err := s.Append(KindSeed, "seed", seedPayload("B"), 1.0, nil)
	assert.ErrorIs(t, err, ErrClosed)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Snapshot().Len())

	// Close is idempotent.
	s.Close()
	assert.True(t, s.Closed())
}
