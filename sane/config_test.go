package sane

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	assert.Equal(t, 8, cfg.Network.IOCount())
	assert.Equal(t, 4, cfg.Network.ChromosomeLength())
}

func TestLoadConfigINI(t *testing.T) {
	path := writeFile(t, "sane-config", `
[SANE]
blueprint_population_size = 40
neuron_population_size    = 80
thread_count              = 2
elite_rate                = 0.2
validation_mode           = true
seed                      = 99

[Network]
num_inputs        = 4
num_outputs       = 2
num_hidden        = 6
hidden_activation = tanh   # inline comment

[Selection]
selection_type    = Tournament
tournament_rounds = 3
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Sane.BlueprintPopulationSize)
	assert.Equal(t, 80, cfg.Sane.NeuronPopulationSize)
	assert.Equal(t, 2, cfg.Sane.ThreadCount)
	assert.InDelta(t, 0.2, cfg.Sane.EliteRate, 1e-12)
	assert.True(t, cfg.Sane.ValidationMode)
	assert.Equal(t, int64(99), cfg.Sane.Seed)
	assert.Equal(t, 6, cfg.Network.NumHidden)
	assert.Equal(t, "tanh", cfg.Network.HiddenActivation)
	assert.Equal(t, "tournament", cfg.Selection.SelectionType)
	assert.Equal(t, 3, cfg.Selection.TournamentRounds)

	// Sections that are absent keep their defaults.
	assert.Equal(t, 500, cfg.Sane.MaxOperationErrors)
	assert.InDelta(t, 0.1, cfg.Neuron.MutationRate, 1e-12)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "sane.yaml", `
sane:
  blueprint_population_size: 30
  ignore_exceptions: true
network:
  num_inputs: 2
  num_outputs: 1
  num_hidden: 3
stagnation:
  max_stagnation: 12
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Sane.BlueprintPopulationSize)
	assert.Equal(t, 20, cfg.Sane.NeuronPopulationSize)
	assert.True(t, cfg.Sane.IgnoreExceptions)
	assert.Equal(t, 3, cfg.Network.IOCount())
	assert.Equal(t, 12, cfg.Stagnation.MaxStagnation)
	assert.Equal(t, "sigmoid", cfg.Network.OutputActivation)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "sane: [unterminated"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "invalid", "[SANE]\nelite_rate = 1.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elite_rate")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"tiny blueprint population", func(c *Config) { c.Sane.BlueprintPopulationSize = 1 }, "blueprint_population_size"},
		{"tiny neuron population", func(c *Config) { c.Sane.NeuronPopulationSize = 0 }, "neuron_population_size"},
		{"negative threads", func(c *Config) { c.Sane.ThreadCount = -1 }, "thread_count"},
		{"no tries", func(c *Config) { c.Sane.MaxTries = 0 }, "max_tries"},
		{"no hidden units", func(c *Config) { c.Network.NumHidden = 0 }, "num_hidden"},
		{"too few labels", func(c *Config) { c.Network.NumInputs, c.Network.NumOutputs = 1, 0 }, "num_outputs"},
		{"mutation rate", func(c *Config) { c.Neuron.MutationRate = 2 }, "mutation_rate"},
		{"weight range", func(c *Config) { c.Neuron.WeightInitMin = 2 }, "weight_init_max"},
		{"blueprint random rate", func(c *Config) { c.Blueprint.MutationRateRandom = -0.1 }, "mutation_rate_random"},
		{"truncation percent", func(c *Config) { c.Selection.TruncationPercent = 0 }, "truncation_percent"},
		{"tournament rounds", func(c *Config) {
			c.Selection.SelectionType = "tournament"
			c.Selection.TournamentRounds = 0
		}, "tournament_rounds"},
		{"unknown selection", func(c *Config) { c.Selection.SelectionType = "roulette" }, "selection_type"},
		{"negative stagnation", func(c *Config) { c.Stagnation.MaxStagnation = -1 }, "max_stagnation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
