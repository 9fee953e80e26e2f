package forensic

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// InverterName is the producer name recorded on axiom inverter facts.
const InverterName = "axiom_inverter"

// Axiom identifiers. The inverter does not look for bugs; it looks for
// contradictions of these statements.
const (
	AxiomIdempotency   = "AXIOM_IDEMPOTENCY"   // initialization must be side-effect free
	AxiomObservability = "AXIOM_OBSERVABILITY" // state mutation must trigger view invalidation
	AxiomSymbolic      = "AXIOM_SYMBOLIC"      // symbols must be resolvable via dlsym
	AxiomPurity        = "AXIOM_PURITY"        // body computation must stay cheap
)

// sideEffectPatterns are calls that violate idempotency when reachable from an
// initializer.
var sideEffectPatterns = []string{
	"fetchData", "loadData", "startTimer", "beginRequest",
	"URLSession", "network", "download", "upload",
	"Timer.scheduledTimer", "DispatchQueue.main.async",
	"NotificationCenter.default.post", "UserDefaults.standard.set",
	"FileManager", "write(", "save(",
}

// referencePatterns indicate reference types, which silently break @State.
var referencePatterns = []string{
	"class ", "AnyObject", "NSObject", "UIViewController",
}

// heavyBodyPatterns are operations too expensive for a body computation.
var heavyBodyPatterns = []string{
	"URLSession.shared", "try await", "Actor", "MainActor",
}

var (
	dlsymSymbolRe = regexp.MustCompile(`dlsym\s*\([^,]+,\s*"([^"]+)"`)
	// Body scope approximated as text up to the first closing brace.
	bodyRe = regexp.MustCompile(`(?s)var body:\s*some View\s*\{[^}]*`)
)

// Inverter applies boolean inversion to the axiom set: for each axiom it
// searches the seed source for evidence of the negated statement and records
// a violation fact when found. A seed with no contradictions is closed out
// with a zero-weight risk contribution.
type Inverter struct{}

// NewInverter returns the axiom inversion agent.
func NewInverter() *Inverter { return &Inverter{} }

func (a *Inverter) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     InverterName,
		Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindViolation, blackboard.KindRiskContribution},
		Produces: []blackboard.Kind{blackboard.KindViolation, blackboard.KindRiskContribution},
	}
}

func (a *Inverter) Triggered(snap *blackboard.Snapshot) bool {
	return len(unscannedSeeds(snap, InverterName)) > 0
}

func (a *Inverter) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, seed := range unscannedSeeds(snap, InverterName) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok {
			continue
		}
		violations := invertAxioms(payload.Source)

		if len(violations) == 0 {
			proposals = append(proposals, cleanMarker("axiom", payload.Label, seed.ID))
			continue
		}
		for _, violation := range violations {
			proposals = append(proposals, agent.Proposal{
				Kind:      blackboard.KindViolation,
				Payload:   violation,
				DependsOn: []int64{seed.ID},
			})
		}
	}

	return proposals, nil
}

func invertAxioms(code string) []*blackboard.ViolationPayload {
	var violations []*blackboard.ViolationPayload

	if strings.Contains(code, "init") {
		for _, pattern := range sideEffectPatterns {
			if strings.Contains(code, pattern) {
				violations = append(violations, &blackboard.ViolationPayload{
					Axiom:       AxiomIdempotency,
					Vector:      "side-effect '" + pattern + "' reachable from init",
					Severity:    blackboard.SeverityCritical,
					Impact:      "memory explosion under hot reload",
					Remediation: "move '" + pattern + "' to onAppear() or a task modifier",
				})
				break
			}
		}
	}

	if strings.Contains(code, "@State var") {
		for _, pattern := range referencePatterns {
			if strings.Contains(code, pattern) {
				violations = append(violations, &blackboard.ViolationPayload{
					Axiom:       AxiomObservability,
					Vector:      "reference type used with @State",
					Severity:    blackboard.SeverityHigh,
					Impact:      "state changes may not trigger view updates",
					Remediation: "use @StateObject for class instances",
				})
				break
			}
		}
	}

	if strings.Contains(code, "dlsym") && !strings.Contains(code, "_$s") {
		if m := dlsymSymbolRe.FindStringSubmatch(code); m != nil && !strings.HasPrefix(m[1], "_$s") {
			violations = append(violations, &blackboard.ViolationPayload{
				Axiom:       AxiomSymbolic,
				Vector:      "dlsym called with unmangled name '" + m[1] + "'",
				Severity:    blackboard.SeverityCritical,
				Impact:      "runtime crash, symbol not found",
				Remediation: "use swift demangle or @_cdecl for stable symbols",
			})
		}
	}

	if body := bodyRe.FindString(code); body != "" {
		for _, pattern := range heavyBodyPatterns {
			if strings.Contains(body, pattern) {
				violations = append(violations, &blackboard.ViolationPayload{
					Axiom:       AxiomPurity,
					Vector:      "heavy operation '" + pattern + "' in body computation",
					Severity:    blackboard.SeverityMedium,
					Impact:      "UI stuttering and excessive recomputation",
					Remediation: "move async work to a .task {} modifier",
				})
				break
			}
		}
	}

	return violations
}
