package commands

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corvidlabs/rook/internal/archive"
	"github.com/corvidlabs/rook/internal/config"
	"github.com/corvidlabs/rook/internal/engine"
	"github.com/corvidlabs/rook/internal/printer"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to project configuration file")
}

// loadConfig reads the project configuration. A missing rook.yml is only an
// error when --config was set explicitly; otherwise built-in defaults apply,
// so rook works in a directory that was never initialized.
func loadConfig() (*config.RookConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) && configPath == config.DefaultPath {
		return config.Default(), nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Run 'rook init' to create a fresh rook.yml"},
		)
	}
	return cfg, nil
}

// archiveClient connects to the configured archive Redis.
func archiveClient(cfg *config.RookConfig) *archive.Client {
	return archive.NewClient(&redis.Options{Addr: cfg.Archive.Addr})
}

// exportRun archives a finished run. Archive failures degrade to a warning:
// the verdict has already been printed and a missing export should not turn
// a successful analysis into a failed command.
func exportRun(ctx context.Context, cfg *config.RookConfig, result *engine.Result, skip bool) {
	if skip {
		return
	}

	client := archiveClient(cfg)
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		printer.Warning("archive unreachable at %s, run not exported (%v)\n", cfg.Archive.Addr, err)
		return
	}

	if err := client.ArchiveRun(ctx, result, time.Now().UnixMilli()); err != nil {
		printer.Warning("failed to archive run: %v\n", err)
		return
	}
	printer.Success("Run archived, inspect it with 'rook log %s'\n", result.RunID[:8])
}

// printForensicVerdict renders a forensic run's verdict with the risk bar
// and the individual contributions behind it.
func printForensicVerdict(verdict *blackboard.VerdictPayload, facts []blackboard.Fact) {
	printer.Println()
	printer.Printf("Failure risk: %s %s\n", printer.RiskBar(verdict.Probability), printer.Label(verdict.Label))
	printer.Println()

	var contributions []blackboard.Fact
	for _, fact := range facts {
		if fact.Kind == blackboard.KindRiskContribution {
			contributions = append(contributions, fact)
		}
	}
	if len(contributions) == 0 {
		return
	}

	printer.Printf("%-28s %-10s %-8s %s\n", "ITEM", "SOURCE", "WEIGHT", "CONF")
	for _, fact := range contributions {
		payload, ok := fact.Payload.(*blackboard.RiskContributionPayload)
		if !ok || payload.Weight == 0 {
			continue
		}
		printer.Printf("%-28s %-10s %-8.2f %.2f\n", payload.Item, payload.Source, payload.Weight, fact.Confidence)
	}
}

// printSynthesisVerdict renders a synthesis run's verdict: compliance,
// failed axiom checks if any, and the assembled artifact.
func printSynthesisVerdict(verdict *blackboard.VerdictPayload, facts []blackboard.Fact) {
	printer.Println()
	printer.Printf("Axiom compliance: %.0f%% (target: %s)\n", verdict.Compliance*100, verdict.Target)

	for _, fact := range facts {
		if fact.Kind != blackboard.KindAxiomCheck {
			continue
		}
		payload, ok := fact.Payload.(*blackboard.AxiomCheckPayload)
		if !ok || payload.Satisfied {
			continue
		}
		printer.Warning("%s (%s): %s\n", payload.Name, payload.Target, payload.Reason)
	}

	printer.Println()
	printer.Println(verdict.Artifact)
}

// reportOutcome prints the terminal state of a run that did not converge.
func reportOutcome(result *engine.Result) error {
	switch result.Outcome {
	case engine.OutcomeStalled:
		return printer.Error(
			"run stalled",
			"The round cap was reached with agents still triggered.",
			[]string{"Raise run.max_rounds in rook.yml", "Inspect the fact log with 'rook log' after archiving"},
		)
	case engine.OutcomeTimedOut:
		return printer.Error(
			"run timed out",
			"The wall-clock budget elapsed before the run converged.",
			[]string{"Raise run.run_timeout in rook.yml"},
		)
	case engine.OutcomeCancelled:
		return printer.Error("run cancelled", "The run was interrupted before convergence.", nil)
	default:
		return nil
	}
}
