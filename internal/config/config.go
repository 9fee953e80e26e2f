// Package config loads and validates rook.yml, the project-level run
// configuration. Validation applies defaults in place, so a loaded config is
// always complete.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvidlabs/rook/internal/engine"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// DefaultPath is where commands look for the configuration file.
const DefaultPath = "rook.yml"

// RookConfig represents the top-level rook.yml configuration.
type RookConfig struct {
	Version string            `yaml:"version"`
	Run     *RunConfig        `yaml:"run,omitempty"`
	Archive *ArchiveConfig    `yaml:"archive,omitempty"`
	Agents  map[string]Toggle `yaml:"agents,omitempty"`
}

// RunConfig specifies engine behavior. Durations are YAML strings in
// time.ParseDuration syntax ("30s", "2m").
type RunConfig struct {
	Mode         string `yaml:"mode,omitempty"`
	MaxRounds    int    `yaml:"max_rounds,omitempty"`
	RunTimeout   string `yaml:"run_timeout,omitempty"`
	AgentTimeout string `yaml:"agent_timeout,omitempty"`
}

// ArchiveConfig specifies where closed runs are exported.
type ArchiveConfig struct {
	Addr string `yaml:"addr,omitempty"` // Redis address, host:port
}

// Toggle enables or disables one built-in agent.
type Toggle struct {
	Enabled *bool `yaml:"enabled,omitempty"` // nil means enabled
}

// On reports whether the toggle leaves the agent enabled.
func (t Toggle) On() bool {
	return t.Enabled == nil || *t.Enabled
}

// Validate performs strict validation on the configuration and fills in
// defaults for omitted sections.
func (c *RookConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Run == nil {
		c.Run = &RunConfig{}
	}
	if c.Run.Mode == "" {
		c.Run.Mode = string(blackboard.ModeForensic)
	}
	if err := blackboard.Mode(c.Run.Mode).Validate(); err != nil {
		return fmt.Errorf("run.mode: %w", err)
	}
	if c.Run.MaxRounds < 0 {
		return fmt.Errorf("run.max_rounds must be >= 0, got %d", c.Run.MaxRounds)
	}
	if _, err := parseDuration(c.Run.RunTimeout); err != nil {
		return fmt.Errorf("run.run_timeout: %w", err)
	}
	if _, err := parseDuration(c.Run.AgentTimeout); err != nil {
		return fmt.Errorf("run.agent_timeout: %w", err)
	}

	if c.Archive == nil {
		c.Archive = &ArchiveConfig{}
	}
	if c.Archive.Addr == "" {
		c.Archive.Addr = "localhost:6379"
	}

	return nil
}

// EngineConfig converts the validated run section into an engine Config.
func (c *RookConfig) EngineConfig() engine.Config {
	runTimeout, _ := parseDuration(c.Run.RunTimeout)
	agentTimeout, _ := parseDuration(c.Run.AgentTimeout)
	return engine.Config{
		Mode:         blackboard.Mode(c.Run.Mode),
		MaxRounds:    c.Run.MaxRounds,
		RunTimeout:   runTimeout,
		AgentTimeout: agentTimeout,
	}
}

// AgentEnabled reports whether a built-in agent is enabled. Agents absent
// from the map are enabled.
func (c *RookConfig) AgentEnabled(name string) bool {
	toggle, ok := c.Agents[name]
	if !ok {
		return true
	}
	return toggle.On()
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}

// Load reads and validates a rook.yml file.
func Load(path string) (*RookConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg RookConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no rook.yml exists.
func Default() *RookConfig {
	cfg := &RookConfig{Version: "1.0"}
	// Validation only fills defaults here.
	_ = cfg.Validate()
	return cfg
}
