package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvidlabs/rook/internal/archive"
	"github.com/corvidlabs/rook/internal/printer"
	"github.com/corvidlabs/rook/internal/resolver"
)

var (
	logOutputFormat string
	logSince        string
	logUntil        string
	logKind         string
	logProducer     string
)

var logCmd = &cobra.Command{
	Use:   "log [RUN_ID] [FACT_ID]",
	Short: "Inspect archived runs and their fact logs",
	Long: `Inspect archived runs in list, log, or get mode.

List Mode (no arguments):
  Displays every archived run with its outcome and round count.

Log Mode (with RUN_ID):
  Displays the run's facts in commit order as a table or JSONL stream.
  Supports short run IDs (e.g., "abc123" instead of the full UUID).

Get Mode (with RUN_ID and FACT_ID):
  Displays complete details of a single fact as pretty-printed JSON.

Time Filters (log mode only):
  --since  - Show facts created after this time
  --until  - Show facts created before this time

Content Filters (log mode only):
  --kind     - Filter by fact kind (glob pattern: "risk_*", "verdict")
  --producer - Filter by producing agent (exact match: "signature_scanner")

Examples:
  # List all archived runs
  rook log

  # Show a run's fact log by short ID
  rook log 550e84

  # Filter to risk contributions from the last hour
  rook log 550e84 --kind="risk_*" --since=1h

  # Stream facts as JSONL for piping to jq
  rook log 550e84 --output=jsonl | jq 'select(.kind=="verdict")'

  # Show one fact in full
  rook log 550e84 7`,
	Args: cobra.MaximumNArgs(2),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVarP(&logOutputFormat, "output", "o", "default", "Output format: default or jsonl (ignored in get mode)")

	// Time-based filters
	logCmd.Flags().StringVar(&logSince, "since", "", "Show facts after time (duration or RFC3339)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "Show facts before time (duration or RFC3339)")

	// Content-based filters
	logCmd.Flags().StringVar(&logKind, "kind", "", "Filter by fact kind (glob pattern)")
	logCmd.Flags().StringVar(&logProducer, "producer", "", "Filter by producing agent (exact match)")

	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var outputFormat archive.OutputFormat
	switch logOutputFormat {
	case "default":
		outputFormat = archive.OutputFormatDefault
	case "jsonl":
		outputFormat = archive.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", logOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	client := archiveClient(cfg)
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return printer.Error(
			"archive unreachable",
			fmt.Sprintf("Could not connect to Redis at %s: %v", cfg.Archive.Addr, err),
			[]string{"Check the archive.addr setting in rook.yml", "Start Redis:\n  docker run -p 6379:6379 redis:7-alpine"},
		)
	}

	if len(args) == 0 {
		return listRuns(ctx, client)
	}

	// Resolve the run, by full UUID or short prefix.
	runID, err := resolver.ResolveRunID(ctx, client, args[0])
	if err != nil {
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				fmt.Sprintf("run '%s' not found", args[0]),
				"No archived run matches that ID.",
				[]string{"List archived runs:\n  rook log"},
			)
		}
		if resolver.IsAmbiguousError(err) {
			ambigErr := err.(*resolver.AmbiguousError)
			fmt.Fprintln(os.Stderr, resolver.FormatAmbiguousError(ambigErr))
			return fmt.Errorf("ambiguous short ID")
		}
		return fmt.Errorf("failed to resolve run ID: %w", err)
	}

	if len(args) == 2 {
		return getFact(ctx, client, runID, args[1])
	}

	return listFacts(ctx, client, runID, outputFormat)
}

// listRuns prints the archived run index.
func listRuns(ctx context.Context, client *archive.Client) error {
	runs, err := client.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		printer.Println("No archived runs found")
		return nil
	}

	printer.Printf("%-10s %-10s %-10s %-7s %-6s %s\n", "RUN", "MODE", "OUTCOME", "ROUNDS", "FACTS", "ARCHIVED")
	for _, run := range runs {
		printer.Printf("%-10s %-10s %-10s %-7d %-6d %s\n",
			run.RunID[:8],
			run.Mode,
			run.Outcome,
			run.Rounds,
			run.Facts,
			time.UnixMilli(run.ArchivedAt).Format(time.RFC3339),
		)
	}
	printer.Printf("\n%d runs found\n", len(runs))
	return nil
}

// listFacts prints a run's fact log with filters applied.
func listFacts(ctx context.Context, client *archive.Client, runID string, format archive.OutputFormat) error {
	sinceMS, untilMS, err := archive.ParseTimeRange(logSince, logUntil)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	facts, err := client.ListFacts(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list facts: %w", err)
	}

	facts = archive.Filter(facts, &archive.FilterCriteria{
		SinceTimestampMs: sinceMS,
		UntilTimestampMs: untilMS,
		KindGlob:         logKind,
		Producer:         logProducer,
	})

	switch format {
	case archive.OutputFormatJSONL:
		return archive.FormatJSONL(os.Stdout, facts)
	default:
		archive.FormatTable(os.Stdout, facts, runID)
		return nil
	}
}

// getFact prints one fact in full.
func getFact(ctx context.Context, client *archive.Client, runID, factArg string) error {
	factID, err := strconv.ParseInt(factArg, 10, 64)
	if err != nil || factID < 1 {
		return printer.Error(
			"invalid fact ID",
			fmt.Sprintf("Fact IDs are positive integers, got %q", factArg),
			nil,
		)
	}

	fact, err := client.GetFact(ctx, runID, factID)
	if err != nil {
		if archive.IsNotFound(err) {
			return printer.Error(
				fmt.Sprintf("fact %d not found in run '%s'", factID, runID[:8]),
				"The run exists but has no fact with that ID.",
				[]string{fmt.Sprintf("List the run's facts:\n  rook log %s", runID[:8])},
			)
		}
		return fmt.Errorf("failed to get fact: %w", err)
	}

	return archive.FormatSingleJSON(os.Stdout, fact)
}
