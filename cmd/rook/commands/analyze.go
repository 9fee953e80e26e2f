package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corvidlabs/rook/internal/agents/forensic"
	"github.com/corvidlabs/rook/internal/config"
	"github.com/corvidlabs/rook/internal/printer"
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

var (
	analyzeDemo      bool
	analyzeNoArchive bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [FILE...]",
	Short: "Run the forensic detector suite over source artifacts",
	Long: `Run the forensic roster (signature scanner, axiom inverter, risk assessor)
over one or more source files and aggregate the findings into a
failure-probability verdict.

Each FILE becomes one seed artifact; the file name is its label.

Examples:
  # Analyze a generated source file
  rook analyze HomeView.swift

  # Analyze several artifacts in one run
  rook analyze Views/*.swift

  # Run the built-in demo corpus of known failure modes
  rook analyze --demo`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDemo, "demo", false, "Analyze the built-in corpus of documented failure modes")
	analyzeCmd.Flags().BoolVar(&analyzeNoArchive, "no-archive", false, "Skip exporting the run to the archive")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var seeds []agent.Proposal
	switch {
	case analyzeDemo:
		if len(args) > 0 {
			return printer.Error("conflicting arguments", "--demo cannot be combined with FILE arguments", nil)
		}
		seeds = forensic.DemoSeeds()
	case len(args) > 0:
		seeds, err = seedsFromFiles(args)
		if err != nil {
			return err
		}
	default:
		return printer.Error(
			"nothing to analyze",
			"No source files were given.",
			[]string{"Analyze a file:\n  rook analyze HomeView.swift", "Try the demo corpus:\n  rook analyze --demo"},
		)
	}

	roster, err := forensicRoster(cfg)
	if err != nil {
		return err
	}

	return executeRun(cfg, roster, seeds, analyzeNoArchive)
}

// seedsFromFiles reads each file into a seed proposal labeled by base name.
func seedsFromFiles(paths []string) ([]agent.Proposal, error) {
	seeds := make([]agent.Proposal, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, printer.Error(
				fmt.Sprintf("cannot read %s", path),
				err.Error(),
				nil,
			)
		}
		seeds = append(seeds, agent.Proposal{
			Kind:    blackboard.KindSeed,
			Payload: &blackboard.SeedPayload{Label: filepath.Base(path), Source: string(content)},
		})
	}
	return seeds, nil
}

// forensicRoster builds the forensic roster, honoring per-agent toggles.
func forensicRoster(cfg *config.RookConfig) (*agent.Roster, error) {
	var agents []agent.Agent
	if cfg.AgentEnabled(forensic.ScannerName) {
		agents = append(agents, forensic.NewScanner())
	}
	if cfg.AgentEnabled(forensic.InverterName) {
		agents = append(agents, forensic.NewInverter())
	}
	if cfg.AgentEnabled(forensic.AssessorName) {
		agents = append(agents, forensic.NewAssessor())
	}

	roster, err := agent.NewRoster(agents...)
	if err != nil {
		return nil, printer.Error(
			"no agents enabled",
			"Every forensic agent is disabled in rook.yml.",
			[]string{"Enable at least one agent under 'agents:' in rook.yml"},
		)
	}
	return roster, nil
}
