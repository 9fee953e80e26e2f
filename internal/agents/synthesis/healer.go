package synthesis

import (
	"context"
	"regexp"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// HealerName is the producer name recorded on healer facts.
const HealerName = "pattern_healer"

// transformation rewrites one faulty pattern into its compliant form.
type transformation struct {
	re          *regexp.Regexp
	replacement string
	description string
}

// transformations are applied in order; later rules see earlier rewrites.
var transformations = []transformation{
	{
		re:          regexp.MustCompile(`(?s)\{\s*(\w+)\s+in\s*\n?\s*self\.`),
		replacement: "{ [weak self] $1 in\n        guard let self else { return }\n        self.",
		description: "add weak self capture to closure",
	},
	{
		re:          regexp.MustCompile(`(?s)try!\s+(.+)`),
		replacement: "try? $1",
		description: "replace force try with optional try",
	},
	{
		re:          regexp.MustCompile(`(\w+)\s+as!\s+(\w+)`),
		replacement: "($1 as? $2) ?? .fallback",
		description: "replace force cast with optional cast",
	},
	{
		re:          regexp.MustCompile(`(?s)DispatchQueue\.global\(\)\.async\s*\{\s*\n?\s*(.+?)\s*\}`),
		replacement: "Task {\n            $1\n        }",
		description: "convert unstructured dispatch to a task",
	},
	{
		re:          regexp.MustCompile(`(\w+)\.shared\.(\w+)`),
		replacement: "service.$2",
		description: "replace singleton access with injected dependency",
	},
	{
		re:          regexp.MustCompile(`(?s)init\(\)\s*\{\s*\n?\s*(\w+\.(?:fetch|load|start)\w*\(\))`),
		replacement: "init() { }\n\n    var body: some View {\n        content\n            .onAppear { $1 }",
		description: "move init side-effect to onAppear",
	},
}

// Healed is the result of one healing pass.
type Healed struct {
	Code    string
	Applied []string // descriptions of the rules that fired
}

// Heal rewrites faulty patterns in source text into compliant form.
func Heal(code string) Healed {
	healed := Healed{Code: code}
	for _, rule := range transformations {
		next := rule.re.ReplaceAllString(healed.Code, rule.replacement)
		if next != healed.Code {
			healed.Code = next
			healed.Applied = append(healed.Applied, rule.description)
		}
	}
	return healed
}

// Healer rewrites faulty seed source into compliant form and publishes the
// result as a single artifact fragment per seed, which the enforcer then
// validates like any generated artifact.
type Healer struct{}

// NewHealer returns the pattern healing agent.
func NewHealer() *Healer { return &Healer{} }

func (h *Healer) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     HealerName,
		Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindArtifactFragment},
		Produces: []blackboard.Kind{blackboard.KindArtifactFragment},
	}
}

func (h *Healer) Triggered(snap *blackboard.Snapshot) bool {
	return len(pendingSource(snap)) > 0
}

func (h *Healer) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, seed := range pendingSource(snap) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok {
			continue
		}
		healed := Heal(payload.Source)

		proposals = append(proposals, agent.Proposal{
			Kind: blackboard.KindArtifactFragment,
			Payload: &blackboard.ArtifactFragmentPayload{
				Target:  payload.Label,
				File:    payload.Label + ".swift",
				Order:   0,
				Content: healed.Code,
			},
			DependsOn: []int64{seed.ID},
		})
	}

	return proposals, nil
}

// pendingSource returns source-carrying seeds the healer has not yet
// rewritten, in fact id order.
func pendingSource(snap *blackboard.Snapshot) []blackboard.Fact {
	covered := make(map[int64]bool)
	for _, fact := range snap.Query(blackboard.KindArtifactFragment) {
		if fact.Producer != HealerName {
			continue
		}
		for _, id := range fact.DependsOn {
			covered[id] = true
		}
	}

	var pending []blackboard.Fact
	for _, seed := range snap.Query(blackboard.KindSeed) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok || payload.Source == "" || covered[seed.ID] {
			continue
		}
		pending = append(pending, seed)
	}
	return pending
}

// Roster returns the built-in synthesis roster. Roster order matters for
// replay: generator, healer, enforcer.
func Roster() (*agent.Roster, error) {
	return agent.NewRoster(NewGenerator(), NewHealer(), NewEnforcer())
}
