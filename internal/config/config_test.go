package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corvidlabs/rook/pkg/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rook.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadFullConfig verifies a complete rook.yml round-trips into an engine
// configuration.
func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
run:
  mode: synthesis
  max_rounds: 10
  run_timeout: 2m
  agent_timeout: 30s
archive:
  addr: redis.internal:6380
agents:
  pattern_healer:
    enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	engineCfg := cfg.EngineConfig()
	assert.Equal(t, blackboard.ModeSynthesis, engineCfg.Mode)
	assert.Equal(t, 10, engineCfg.MaxRounds)
	assert.Equal(t, 2*time.Minute, engineCfg.RunTimeout)
	assert.Equal(t, 30*time.Second, engineCfg.AgentTimeout)

	assert.Equal(t, "redis.internal:6380", cfg.Archive.Addr)
	assert.False(t, cfg.AgentEnabled("pattern_healer"))
	assert.True(t, cfg.AgentEnabled("code_generator"))
}

// TestLoadMinimalConfig verifies defaults fill every omitted section.
func TestLoadMinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)

	assert.Equal(t, string(blackboard.ModeForensic), cfg.Run.Mode)
	assert.Equal(t, "localhost:6379", cfg.Archive.Addr)
	assert.Equal(t, time.Duration(0), cfg.EngineConfig().RunTimeout)
	assert.True(t, cfg.AgentEnabled("signature_scanner"))
}

// TestLoadValidationErrors exercises the rejection paths.
func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing version",
			content: "run:\n  mode: forensic\n",
			wantErr: "unsupported version",
		},
		{
			name:    "wrong version",
			content: `version: "2.0"`,
			wantErr: "unsupported version",
		},
		{
			name:    "bad mode",
			content: "version: \"1.0\"\nrun:\n  mode: divination\n",
			wantErr: "run.mode",
		},
		{
			name:    "bad duration",
			content: "version: \"1.0\"\nrun:\n  run_timeout: soon\n",
			wantErr: "run.run_timeout",
		},
		{
			name:    "negative duration",
			content: "version: \"1.0\"\nrun:\n  agent_timeout: -5s\n",
			wantErr: "run.agent_timeout",
		},
		{
			name:    "negative rounds",
			content: "version: \"1.0\"\nrun:\n  max_rounds: -2\n",
			wantErr: "run.max_rounds",
		},
		{
			name:    "malformed yaml",
			content: "version: [unclosed",
			wantErr: "invalid YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestLoadMissingFile verifies the not-found error names the path.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "rook.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

// TestDefault verifies the fallback configuration is valid and forensic.
func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, string(blackboard.ModeForensic), cfg.Run.Mode)
	assert.Equal(t, "localhost:6379", cfg.Archive.Addr)
}
