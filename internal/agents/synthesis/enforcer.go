package synthesis

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// EnforcerName is the producer name recorded on enforcer facts.
const EnforcerName = "axiom_enforcer"

// Constructive axiom identifiers. These define what correct code looks like;
// the enforcer checks assembled artifacts against each of them.
const (
	AxiomInitPurity         = "INIT_PURITY"
	AxiomWeakCapture        = "WEAK_CAPTURE"
	AxiomObservableState    = "OBSERVABLE_STATE"
	AxiomMainActor          = "MAIN_ACTOR"
	AxiomStructuredConc     = "STRUCTURED_CONCURRENCY"
	AxiomDependencyInject   = "DEPENDENCY_INJECTION"
	AxiomErrorHandling      = "ERROR_HANDLING"
	AxiomInterposableConfig = "INTERPOSABLE_CONFIG"
)

// axiomCheck is one entry in the constructive axiom battery.
type axiomCheck struct {
	id    string
	name  string
	check func(code string) (bool, string)
}

var strongSelfRe = regexp.MustCompile(`\{\s*\w+\s+in\s*\n?\s*self\.`)

func containsAnyOf(code string, patterns ...string) bool {
	for _, p := range patterns {
		if strings.Contains(code, p) {
			return true
		}
	}
	return false
}

// axiomBattery holds the heuristic compliance checks, evaluated in order.
// Axioms without a cheap textual heuristic pass by default.
var axiomBattery = []axiomCheck{
	{
		id:   AxiomInitPurity,
		name: "Initialization Purity",
		check: func(code string) (bool, string) {
			hasInit := strings.Contains(code, "init(")
			hasSideEffect := containsAnyOf(code, "fetch", "load", "start", "URLSession")
			if hasInit && hasSideEffect {
				return false, "side-effects detected in init"
			}
			return true, "init is pure"
		},
	},
	{
		id:   AxiomWeakCapture,
		name: "Weak Self Capture",
		check: func(code string) (bool, string) {
			if strongSelfRe.MatchString(code) && !strings.Contains(code, "[weak self]") {
				return false, "strong self capture in closure"
			}
			return true, "proper weak self or no closures"
		},
	},
	{
		id:   AxiomObservableState,
		name: "Observable State Management",
		check: func(code string) (bool, string) {
			hasState := strings.Contains(code, "@State")
			hasObservable := containsAnyOf(code, "@Observable", "ObservableObject")
			if hasState && !hasObservable {
				return false, "state without observable pattern"
			}
			return true, "proper observable state"
		},
	},
	{
		id:   AxiomMainActor,
		name: "Main Actor UI Updates",
		check: func(code string) (bool, string) {
			hasUIUpdate := containsAnyOf(code, "@Published", "self.items", "self.isLoading")
			hasMainActor := containsAnyOf(code, "@MainActor", "MainActor.run")
			if hasUIUpdate && strings.Contains(code, "async") && !hasMainActor {
				return false, "async UI updates without MainActor"
			}
			return true, "proper main actor usage"
		},
	},
	{
		id:   AxiomStructuredConc,
		name: "Structured Concurrency",
		check: func(code string) (bool, string) {
			if strings.Contains(code, "DispatchQueue.global()") {
				return false, "unstructured background dispatch"
			}
			return true, "no unstructured dispatch"
		},
	},
	{
		id:   AxiomDependencyInject,
		name: "Dependency Injection",
		check: func(code string) (bool, string) {
			return true, "no violations detected"
		},
	},
	{
		id:   AxiomErrorHandling,
		name: "Explicit Error Handling",
		check: func(code string) (bool, string) {
			if containsAnyOf(code, "try!", "as!") {
				return false, "force unwrap detected"
			}
			return true, "proper error handling"
		},
	},
	{
		id:   AxiomInterposableConfig,
		name: "Hot Reload Configuration",
		check: func(code string) (bool, string) {
			if strings.Contains(code, "-interposable") {
				return true, "interposable flag present"
			}
			lower := strings.ToLower(code)
			if strings.Contains(lower, "project.yml") || strings.Contains(lower, "xcodegen") {
				return false, "build configuration missing interposable flag"
			}
			return true, "not a configuration file"
		},
	},
}

// Enforcer validates assembled artifacts against the constructive axiom
// battery. For each target with unchecked fragments it assembles the target's
// fragments in order and appends one axiom_check fact per battery entry,
// each depending on every fragment of the target.
type Enforcer struct{}

// NewEnforcer returns the axiom enforcement agent.
func NewEnforcer() *Enforcer { return &Enforcer{} }

func (e *Enforcer) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     EnforcerName,
		Reads:    []blackboard.Kind{blackboard.KindArtifactFragment, blackboard.KindAxiomCheck},
		Produces: []blackboard.Kind{blackboard.KindAxiomCheck},
	}
}

func (e *Enforcer) Triggered(snap *blackboard.Snapshot) bool {
	return len(uncheckedTargets(snap)) > 0
}

func (e *Enforcer) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, target := range uncheckedTargets(snap) {
		fragments := targetFragments(snap, target)

		var assembly strings.Builder
		dependsOn := make([]int64, 0, len(fragments))
		for i, frag := range fragments {
			if i > 0 {
				assembly.WriteString("\n")
			}
			assembly.WriteString(frag.payload.Content)
			dependsOn = append(dependsOn, frag.id)
		}

		code := assembly.String()
		for _, entry := range axiomBattery {
			satisfied, reason := entry.check(code)
			proposals = append(proposals, agent.Proposal{
				Kind: blackboard.KindAxiomCheck,
				Payload: &blackboard.AxiomCheckPayload{
					Axiom:     entry.id,
					Name:      entry.name,
					Target:    target,
					Satisfied: satisfied,
					Reason:    reason,
				},
				DependsOn: dependsOn,
			})
		}
	}

	return proposals, nil
}

// fragment pairs a fragment fact id with its typed payload. Facts whose
// payload is not the canonical struct are ignored by the enforcer.
type fragment struct {
	id      int64
	payload *blackboard.ArtifactFragmentPayload
}

func fragmentFacts(snap *blackboard.Snapshot) []fragment {
	var fragments []fragment
	for _, fact := range snap.Query(blackboard.KindArtifactFragment) {
		if payload, ok := fact.Payload.(*blackboard.ArtifactFragmentPayload); ok {
			fragments = append(fragments, fragment{id: fact.ID, payload: payload})
		}
	}
	return fragments
}

// uncheckedTargets returns fragment targets with at least one fragment not
// yet referenced by an axiom_check, sorted for deterministic output.
func uncheckedTargets(snap *blackboard.Snapshot) []string {
	checked := make(map[int64]bool)
	for _, fact := range snap.Query(blackboard.KindAxiomCheck) {
		for _, id := range fact.DependsOn {
			checked[id] = true
		}
	}

	targets := make(map[string]bool)
	for _, frag := range fragmentFacts(snap) {
		if checked[frag.id] {
			continue
		}
		targets[frag.payload.Target] = true
	}

	sorted := make([]string, 0, len(targets))
	for target := range targets {
		sorted = append(sorted, target)
	}
	sort.Strings(sorted)
	return sorted
}

// targetFragments returns a target's fragments in assembly order.
func targetFragments(snap *blackboard.Snapshot, target string) []fragment {
	var fragments []fragment
	for _, frag := range fragmentFacts(snap) {
		if frag.payload.Target == target {
			fragments = append(fragments, frag)
		}
	}
	sort.SliceStable(fragments, func(i, j int) bool {
		if fragments[i].payload.Order != fragments[j].payload.Order {
			return fragments[i].payload.Order < fragments[j].payload.Order
		}
		return fragments[i].id < fragments[j].id
	})
	return fragments
}
