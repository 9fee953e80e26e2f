// Package verdict reduces a converged run's fact set to a single terminal
// outcome: a failure probability plus label in forensic mode, or an assembled
// artifact plus compliance score in synthesis mode. Aggregation is a pure
// projection of committed facts - it never triggers further computation.
package verdict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

// Aggregate reduces the snapshot to a verdict payload plus the ids of every
// fact that contributed to it. When nothing contributed (a run that converged
// on its seeds alone) the contributing set is the seed facts.
func Aggregate(snap *blackboard.Snapshot, mode blackboard.Mode, rounds int) (*blackboard.VerdictPayload, []int64, error) {
	if err := mode.Validate(); err != nil {
		return nil, nil, err
	}

	var payload *blackboard.VerdictPayload
	var contributors []int64

	switch mode {
	case blackboard.ModeForensic:
		payload, contributors = aggregateForensic(snap)
	case blackboard.ModeSynthesis:
		payload, contributors = aggregateSynthesis(snap)
	}
	payload.Rounds = rounds

	if len(contributors) == 0 {
		for _, seed := range snap.Query(blackboard.KindSeed) {
			contributors = append(contributors, seed.ID)
		}
	}
	if len(contributors) == 0 {
		return nil, nil, fmt.Errorf("cannot aggregate an empty fact set")
	}

	return payload, contributors, nil
}

// aggregateForensic combines risk contributions into a failure probability
// with a noisy-OR: P = 1 - product(1 - weight*confidence). The combinator is
// bounded to [0,1] and monotonic - adding a positive-weight contribution can
// only raise the result - and a single contribution of strength w yields
// exactly w.
func aggregateForensic(snap *blackboard.Snapshot) (*blackboard.VerdictPayload, []int64) {
	contributions := snap.Query(blackboard.KindRiskContribution)

	survival := 1.0
	contributors := make([]int64, 0, len(contributions))
	for _, fact := range contributions {
		// The kind is validated at append time, the concrete payload type
		// is not. A non-canonical implementation is skipped, not trusted.
		payload, ok := fact.Payload.(*blackboard.RiskContributionPayload)
		if !ok {
			continue
		}
		strength := clamp01(payload.Weight * fact.Confidence)
		survival *= 1.0 - strength
		contributors = append(contributors, fact.ID)
	}

	probability := clamp01(1.0 - survival)
	return &blackboard.VerdictPayload{
		Mode:        blackboard.ModeForensic,
		Probability: probability,
		Label:       blackboard.LabelFor(probability),
	}, contributors
}

// aggregateSynthesis assembles artifact fragments in ordering-key order and
// scores compliance as satisfied/applicable axiom checks. Conflicting
// fragments for the same ordering key are both kept; the later fact id wins
// no special treatment beyond its stable position in the sort.
func aggregateSynthesis(snap *blackboard.Snapshot) (*blackboard.VerdictPayload, []int64) {
	checks := snap.Query(blackboard.KindAxiomCheck)

	// Facts whose payload is not the canonical struct are excluded from the
	// assembly rather than trusted; the kind alone does not pin the type.
	type orderedFragment struct {
		id      int64
		payload *blackboard.ArtifactFragmentPayload
	}
	var sorted []orderedFragment
	for _, fact := range snap.Query(blackboard.KindArtifactFragment) {
		if payload, ok := fact.Payload.(*blackboard.ArtifactFragmentPayload); ok {
			sorted = append(sorted, orderedFragment{id: fact.ID, payload: payload})
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].payload, sorted[j].payload
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return sorted[i].id < sorted[j].id
	})

	var assembly strings.Builder
	var target string
	contributors := make([]int64, 0, len(sorted)+len(checks))
	for i, fragment := range sorted {
		if target == "" {
			target = fragment.payload.Target
		}
		if i > 0 {
			assembly.WriteString("\n")
		}
		assembly.WriteString(fragment.payload.Content)
		contributors = append(contributors, fragment.id)
	}

	satisfied := 0
	total := 0
	for _, fact := range checks {
		payload, ok := fact.Payload.(*blackboard.AxiomCheckPayload)
		if !ok {
			continue
		}
		total++
		if payload.Satisfied {
			satisfied++
		}
		contributors = append(contributors, fact.ID)
	}

	compliance := 0.0
	if total > 0 {
		compliance = float64(satisfied) / float64(total)
	}

	sort.Slice(contributors, func(i, j int) bool { return contributors[i] < contributors[j] })

	return &blackboard.VerdictPayload{
		Mode:       blackboard.ModeSynthesis,
		Compliance: compliance,
		Target:     target,
		Artifact:   assembly.String(),
	}, contributors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
