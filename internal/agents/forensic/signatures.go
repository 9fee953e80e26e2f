// Package forensic provides the built-in forensic roster: a signature scanner
// that greps seed source for known failure signatures, an axiom inverter that
// flags logical contradictions, and a risk assessor that converts both into
// quantified risk contributions. The agents coordinate only through committed
// facts; each one marks the inputs it has covered by depending on them.
package forensic

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// ScannerName is the producer name recorded on signature scanner facts.
const ScannerName = "signature_scanner"

// signature is one entry in the failure signature library.
type signature struct {
	re          *regexp.Regexp
	tag         string
	description string
	severity    blackboard.Severity
	good        bool // a hit indicates healthy code and is not reported
}

// signatureLibrary holds the documented failure vectors. Good-pattern entries
// stay in the library so a scan can distinguish "clean" from "unscanned".
var signatureLibrary = []signature{
	{
		re:          regexp.MustCompile(`(?ims)dlsym\s*\([^,]+,\s*"[a-zA-Z][a-zA-Z0-9_]*"`),
		tag:         "UNMANGLED_SYMBOL",
		description: "dlsym with unmangled Swift symbol",
		severity:    blackboard.SeverityCritical,
	},
	{
		re:          regexp.MustCompile(`(?ims)XCTAssertEqual\s*\([^)]*analytics`),
		tag:         "GIANT_TEST",
		description: "Assertion roulette on analytics in test",
		severity:    blackboard.SeverityMedium,
	},
	{
		re:          regexp.MustCompile(`(?ims)Aspnet_regiis`),
		tag:         "DOTNET_HALLUCINATION",
		description: "Windows IIS command in Swift code",
		severity:    blackboard.SeverityHigh,
	},
	{
		re:          regexp.MustCompile(`(?ims)GOPATH|GOROOT|go\s+build`),
		tag:         "GOLANG_HALLUCINATION",
		description: "GoLang environment or command in Swift",
		severity:    blackboard.SeverityHigh,
	},
	{
		re:          regexp.MustCompile(`(?ims)@StateObject\s+var\s+\w+\s*=\s*\w+\(\)`),
		tag:         "INIT_LEAK",
		description: "StateObject initialized inline in declaration",
		severity:    blackboard.SeverityHigh,
	},
	{
		re:          regexp.MustCompile(`(?ims)@State\s+var\s+\w+\s*:\s*\w+\s*=\s*\w+\(\)`),
		tag:         "STATE_INIT",
		description: "@State with inline class initialization",
		severity:    blackboard.SeverityMedium,
	},
	{
		re:          regexp.MustCompile(`(?ims)init\s*\([^)]*\)\s*\{[^}]*(?:fetch|load|start|request)`),
		tag:         "INIT_SIDE_EFFECT",
		description: "Side-effect detected in initializer",
		severity:    blackboard.SeverityCritical,
	},
	{
		re:          regexp.MustCompile(`(?ims)force_cast|as!`),
		tag:         "FORCE_CAST",
		description: "Force cast can cause runtime crash",
		severity:    blackboard.SeverityHigh,
	},
	{
		re:          regexp.MustCompile(`(?ms)try!`),
		tag:         "FORCE_TRY",
		description: "Force try can cause runtime crash",
		severity:    blackboard.SeverityHigh,
	},
	{
		re:          regexp.MustCompile(`(?ims)\[\s*weak\s+self\s*\]`),
		tag:         "WEAK_SELF",
		description: "Weak self in closure",
		severity:    blackboard.SeverityLow,
		good:        true,
	},
	{
		re:          regexp.MustCompile(`(?ims)\{\s*self\.`),
		tag:         "STRONG_SELF_CLOSURE",
		description: "Strong self capture in closure",
		severity:    blackboard.SeverityMedium,
	},
	{
		re:          regexp.MustCompile(`(?ims)DispatchQueue\.main\.async\s*\{[^}]*self\.`),
		tag:         "MAIN_QUEUE_SELF",
		description: "Main queue async with strong self",
		severity:    blackboard.SeverityMedium,
	},
	{
		re:          regexp.MustCompile(`(?ims)Timer\.scheduledTimer.*selector`),
		tag:         "TIMER_SELECTOR",
		description: "Timer with selector, potential retain cycle",
		severity:    blackboard.SeverityMedium,
	},
}

// maxSamples caps the matched excerpts carried per finding.
const maxSamples = 3

// Scanner greps seed source against the signature library and checks the
// build configuration for the interposable linker flag. Each finding becomes
// a match fact depending on its seed; a seed with no findings is closed out
// with a zero-weight risk contribution so it is never rescanned.
type Scanner struct{}

// NewScanner returns the signature scanning agent.
func NewScanner() *Scanner { return &Scanner{} }

func (s *Scanner) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     ScannerName,
		Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindMatch, blackboard.KindRiskContribution},
		Produces: []blackboard.Kind{blackboard.KindMatch, blackboard.KindRiskContribution},
	}
}

func (s *Scanner) Triggered(snap *blackboard.Snapshot) bool {
	return len(unscannedSeeds(snap, ScannerName)) > 0
}

func (s *Scanner) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, seed := range unscannedSeeds(snap, ScannerName) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok {
			continue
		}
		findings := scanSource(payload)

		if len(findings) == 0 {
			proposals = append(proposals, cleanMarker("signature", payload.Label, seed.ID))
			continue
		}
		for _, finding := range findings {
			proposals = append(proposals, agent.Proposal{
				Kind:      blackboard.KindMatch,
				Payload:   finding,
				DependsOn: []int64{seed.ID},
			})
		}
	}

	return proposals, nil
}

func scanSource(seed *blackboard.SeedPayload) []*blackboard.MatchPayload {
	var findings []*blackboard.MatchPayload

	for _, sig := range signatureLibrary {
		matches := sig.re.FindAllString(seed.Source, -1)
		if len(matches) == 0 || sig.good {
			continue
		}

		samples := matches
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}
		trimmed := make([]string, len(samples))
		for i, sample := range samples {
			trimmed[i] = strings.TrimSpace(sample)
		}

		findings = append(findings, &blackboard.MatchPayload{
			Signature:   sig.tag,
			Description: sig.description,
			Severity:    sig.severity,
			Occurrences: len(matches),
			Samples:     trimmed,
		})
	}

	// Hot reload silently fails without the interposable linker flag, so the
	// configuration context is part of the scan surface.
	switch {
	case seed.Config == "":
		findings = append(findings, &blackboard.MatchPayload{
			Signature:   "NO_CONFIG",
			Description: "No linker configuration provided",
			Severity:    blackboard.SeverityHigh,
			Occurrences: 1,
		})
	case !strings.Contains(seed.Config, "-interposable"):
		findings = append(findings, &blackboard.MatchPayload{
			Signature:   "MISSING_INTERPOSABLE",
			Description: "Missing -Xlinker -interposable flag",
			Severity:    blackboard.SeverityCritical,
			Occurrences: 1,
			Samples:     []string{"current flags: " + seed.Config},
		})
	}

	return findings
}

// cleanMarker closes out a seed that produced no findings: a zero-weight risk
// contribution that depends on the seed, so the producing agent's trigger
// goes quiet without skewing the verdict.
func cleanMarker(source, label string, seedID int64) agent.Proposal {
	return agent.Proposal{
		Kind: blackboard.KindRiskContribution,
		Payload: &blackboard.RiskContributionPayload{
			Source: source,
			Item:   label + ": clean",
			Weight: 0,
		},
		DependsOn: []int64{seedID},
	}
}

// unscannedSeeds returns seeds carrying source text that the given producer
// has not yet covered, in fact id order. A seed is covered once any fact from
// that producer depends on it.
func unscannedSeeds(snap *blackboard.Snapshot, producer string) []blackboard.Fact {
	covered := make(map[int64]bool)
	for _, fact := range snap.Facts() {
		if fact.Producer != producer {
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
