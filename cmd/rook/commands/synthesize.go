package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corvidlabs/rook/internal/agents/synthesis"
	"github.com/corvidlabs/rook/internal/config"
	"github.com/corvidlabs/rook/internal/printer"
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

var (
	synthNoArchive  bool
	serviceMethods  []string
	projectViews    []string
	projectServices []string
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate axiom-compliant scaffolding",
	Long: `Generate scaffolding through the synthesis roster: the generator emits
ordered artifact fragments, the enforcer checks the assembled artifact
against the constructive axiom battery, and the verdict reports compliance
alongside the assembled source.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var synthesizeViewCmd = &cobra.Command{
	Use:   "view NAME",
	Short: "Generate a SwiftUI view with its view model and preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSynthesize(&blackboard.SynthesisRequest{Target: "view", Name: args[0]})
	},
}

var synthesizeServiceCmd = &cobra.Command{
	Use:   "service NAME",
	Short: "Generate a protocol-backed service with a debug mock",
	Long: `Generate a service protocol, implementation, and debug mock.

Methods are declared with --method NAME:RETURNS[:throws]:

  rook synthesize service UserService --method "fetchUsers:[User]:throws"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		methods, err := parseServiceMethods(serviceMethods)
		if err != nil {
			return err
		}
		return runSynthesize(&blackboard.SynthesisRequest{Target: "service", Name: args[0], Methods: methods})
	},
}

var synthesizeProjectCmd = &cobra.Command{
	Use:   "project NAME",
	Short: "Generate a project skeleton with views, services, and build config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSynthesize(&blackboard.SynthesisRequest{
			Target:   "project",
			Name:     args[0],
			Views:    projectViews,
			Services: projectServices,
		})
	},
}

var synthesizeHealCmd = &cobra.Command{
	Use:   "heal FILE...",
	Short: "Rewrite existing source through the pattern healer",
	Long: `Run existing source files through the healing transformations (weak
capture insertion, force-unwrap removal, structured concurrency) and check
the result against the axiom battery.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := synthesisConfig()
		if err != nil {
			return err
		}

		seeds, err := seedsFromFiles(args)
		if err != nil {
			return err
		}

		roster, err := synthesisRoster(cfg)
		if err != nil {
			return err
		}
		return executeRun(cfg, roster, seeds, synthNoArchive)
	},
}

func init() {
	synthesizeCmd.PersistentFlags().BoolVar(&synthNoArchive, "no-archive", false, "Skip exporting the run to the archive")
	synthesizeServiceCmd.Flags().StringArrayVar(&serviceMethods, "method", nil, "Service method as NAME:RETURNS[:throws] (repeatable)")
	synthesizeProjectCmd.Flags().StringSliceVar(&projectViews, "views", nil, "View names to generate")
	synthesizeProjectCmd.Flags().StringSliceVar(&projectServices, "services", nil, "Service names to generate")

	synthesizeCmd.AddCommand(synthesizeViewCmd)
	synthesizeCmd.AddCommand(synthesizeServiceCmd)
	synthesizeCmd.AddCommand(synthesizeProjectCmd)
	synthesizeCmd.AddCommand(synthesizeHealCmd)
	rootCmd.AddCommand(synthesizeCmd)
}

// synthesisConfig loads the project configuration with the run mode forced to
// synthesis. The configured mode is advisory; every synthesize subcommand,
// heal included, must aggregate through the synthesis verdict or the
// assembled artifact never reaches the output.
func synthesisConfig() (*config.RookConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Run.Mode = string(blackboard.ModeSynthesis)
	return cfg, nil
}

func runSynthesize(request *blackboard.SynthesisRequest) error {
	cfg, err := synthesisConfig()
	if err != nil {
		return err
	}

	roster, err := synthesisRoster(cfg)
	if err != nil {
		return err
	}

	seeds := []agent.Proposal{{
		Kind:    blackboard.KindSeed,
		Payload: &blackboard.SeedPayload{Label: request.Name, Request: request},
	}}

	return executeRun(cfg, roster, seeds, synthNoArchive)
}

// synthesisRoster builds the synthesis roster, honoring per-agent toggles.
func synthesisRoster(cfg *config.RookConfig) (*agent.Roster, error) {
	var agents []agent.Agent
	if cfg.AgentEnabled(synthesis.GeneratorName) {
		agents = append(agents, synthesis.NewGenerator())
	}
	if cfg.AgentEnabled(synthesis.HealerName) {
		agents = append(agents, synthesis.NewHealer())
	}
	if cfg.AgentEnabled(synthesis.EnforcerName) {
		agents = append(agents, synthesis.NewEnforcer())
	}

	roster, err := agent.NewRoster(agents...)
	if err != nil {
		return nil, printer.Error(
			"no agents enabled",
			"Every synthesis agent is disabled in rook.yml.",
			[]string{"Enable at least one agent under 'agents:' in rook.yml"},
		)
	}
	return roster, nil
}

// parseServiceMethods parses --method flags of the form NAME:RETURNS[:throws].
func parseServiceMethods(specs []string) ([]blackboard.ServiceMethod, error) {
	methods := make([]blackboard.ServiceMethod, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, printer.Error(
				"invalid method specification",
				fmt.Sprintf("Cannot parse %q", spec),
				[]string{"Use NAME:RETURNS[:throws], e.g. \"fetchUsers:[User]:throws\""},
			)
		}
		method := blackboard.ServiceMethod{Name: parts[0], Returns: parts[1]}
		if len(parts) > 2 {
			if parts[2] != "throws" {
				return nil, printer.Error(
					"invalid method specification",
					fmt.Sprintf("Unknown modifier %q in %q", parts[2], spec),
					[]string{"The only supported modifier is 'throws'"},
				)
			}
			method.Throws = true
		}
		methods = append(methods, method)
	}
	return methods, nil
}
