package engine

import (
	"fmt"
	"time"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

// DefaultMaxRounds is the round cap applied when the config does not set one.
const DefaultMaxRounds = 50

// Config holds the run-level knobs recognized by the engine. The zero value
// is usable: forensic mode, the default round cap, no time budgets.
type Config struct {
	// Mode selects the verdict aggregation. Defaults to forensic.
	Mode blackboard.Mode

	// MaxRounds caps scheduling rounds before the run is declared stalled.
	// 0 means DefaultMaxRounds.
	MaxRounds int

	// RunTimeout is the overall wall-clock budget for the run. 0 disables it.
	RunTimeout time.Duration

	// AgentTimeout is the per-agent, per-round budget. A slow agent's
	// proposals are discarded for that round; the round still commits the
	// rest. 0 disables it.
	AgentTimeout time.Duration
}

// Validate applies defaults and rejects configurations the engine cannot run
// with. Configuration errors are the only fatal errors in normal operation,
// and they surface here, at run construction time.
func (c *Config) Validate() error {
	if c.Mode == "" {
		c.Mode = blackboard.ModeForensic
	}
	if err := c.Mode.Validate(); err != nil {
		return err
	}

	if c.MaxRounds == 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be > 0, got %d", c.MaxRounds)
	}

	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout cannot be negative, got %s", c.RunTimeout)
	}
	if c.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout cannot be negative, got %s", c.AgentTimeout)
	}

	return nil
}
