package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/corvidlabs/rook/internal/config"
	"github.com/corvidlabs/rook/internal/engine"
	"github.com/corvidlabs/rook/internal/printer"
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// executeRun drives one engine run end to end: construct, run, print the
// verdict, export to the archive. Non-convergence is reported as a command
// error after the partial fact log has been archived.
func executeRun(cfg *config.RookConfig, roster *agent.Roster, seeds []agent.Proposal, skipArchive bool) error {
	engineCfg := cfg.EngineConfig()

	eng, err := engine.New(roster, engineCfg)
	if err != nil {
		return printer.Error("invalid run configuration", err.Error(), nil)
	}

	// Ctrl-C cancels at the next round boundary, leaving a clean fact log.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printer.Step("Starting %s run %s with agents: %v\n", engineCfg.Mode, eng.RunID()[:8], roster.Names())

	result, runErr := eng.Run(ctx, seeds)
	if result == nil {
		return printer.Error("run failed", runErr.Error(), nil)
	}

	printer.Info("Run %s %s after %d rounds (%d facts)\n", result.RunID[:8], result.Outcome, result.Rounds, len(result.Facts))

	if result.Verdict != nil {
		verdict, ok := result.Verdict.Payload.(*blackboard.VerdictPayload)
		if ok {
			switch result.Mode {
			case blackboard.ModeSynthesis:
				printSynthesisVerdict(verdict, result.Facts)
			default:
				printForensicVerdict(verdict, result.Facts)
			}
		}
	}

	exportRun(context.Background(), cfg, result, skipArchive)

	if runErr != nil {
		return reportOutcome(result)
	}
	return nil
}
