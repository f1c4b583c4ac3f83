package sane

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Config stores the configuration parameters for the SANE trainer.
type Config struct {
	Sane       TrainerConfig    `yaml:"sane"`
	Network    NetworkConfig    `yaml:"network"`
	Neuron     NeuronConfig     `yaml:"neuron_genome"`
	Blueprint  BlueprintConfig  `yaml:"blueprint"`
	Selection  SelectionConfig  `yaml:"selection"`
	Stagnation StagnationConfig `yaml:"stagnation"`
}

// TrainerConfig holds parameters for the co-evolutionary loop itself.
type TrainerConfig struct {
	BlueprintPopulationSize int     `ini:"blueprint_population_size" yaml:"blueprint_population_size"`
	NeuronPopulationSize    int     `ini:"neuron_population_size" yaml:"neuron_population_size"`
	ThreadCount             int     `ini:"thread_count" yaml:"thread_count"` // 0 means runtime.NumCPU()
	EliteRate               float64 `ini:"elite_rate" yaml:"elite_rate"`
	MaxOperationErrors      int     `ini:"max_operation_errors" yaml:"max_operation_errors"`
	MaxTries                int     `ini:"max_tries" yaml:"max_tries"` // attempts at picking a distinct second parent
	IgnoreExceptions        bool    `ini:"ignore_exceptions" yaml:"ignore_exceptions"`
	ValidationMode          bool    `ini:"validation_mode" yaml:"validation_mode"`
	Seed                    int64   `ini:"seed" yaml:"seed"` // 0 seeds from the clock
}

// NetworkConfig describes the phenotype dimensions shared by both populations.
type NetworkConfig struct {
	NumInputs         int    `ini:"num_inputs" yaml:"num_inputs"`
	NumOutputs        int    `ini:"num_outputs" yaml:"num_outputs"`
	NumHidden         int    `ini:"num_hidden" yaml:"num_hidden"` // blueprint length
	HiddenActivation  string `ini:"hidden_activation" yaml:"hidden_activation"`
	OutputActivation  string `ini:"output_activation" yaml:"output_activation"`
	HiddenAggregation string `ini:"hidden_aggregation" yaml:"hidden_aggregation"`
}

// NeuronConfig holds neuron genome initialisation and mutation parameters.
type NeuronConfig struct {
	MutationRate  float64 `ini:"mutation_rate" yaml:"mutation_rate"`
	WeightInitMin float64 `ini:"weight_init_min" yaml:"weight_init_min"`
	WeightInitMax float64 `ini:"weight_init_max" yaml:"weight_init_max"`
}

// BlueprintConfig holds blueprint mutation parameters.
type BlueprintConfig struct {
	MutationRateRandom    float64 `ini:"mutation_rate_random" yaml:"mutation_rate_random"`
	MutationRateOffspring float64 `ini:"mutation_rate_offspring" yaml:"mutation_rate_offspring"`
}

// SelectionConfig picks the parent selection strategy.
type SelectionConfig struct {
	SelectionType     string  `ini:"selection_type" yaml:"selection_type"` // "truncation" or "tournament"
	TruncationPercent float64 `ini:"truncation_percent" yaml:"truncation_percent"`
	TournamentRounds  int     `ini:"tournament_rounds" yaml:"tournament_rounds"`
}

// StagnationConfig controls early stopping at generation boundaries.
type StagnationConfig struct {
	MaxStagnation int `ini:"max_stagnation" yaml:"max_stagnation"` // 0 disables
}

// DefaultConfig returns the configuration used when no file overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Sane: TrainerConfig{
			BlueprintPopulationSize: 20,
			NeuronPopulationSize:    20,
			EliteRate:               0.3,
			MaxOperationErrors:      500,
			MaxTries:                5,
		},
		Network: NetworkConfig{
			NumInputs:         6,
			NumOutputs:        2,
			NumHidden:         5,
			HiddenActivation:  "sigmoid",
			OutputActivation:  "sigmoid",
			HiddenAggregation: "sum",
		},
		Neuron: NeuronConfig{
			MutationRate:  0.1,
			WeightInitMin: 0,
			WeightInitMax: 1,
		},
		Blueprint: BlueprintConfig{
			MutationRateRandom:    0.1,
			MutationRateOffspring: 0.1,
		},
		Selection: SelectionConfig{
			SelectionType:     "truncation",
			TruncationPercent: 0.25,
			TournamentRounds:  4,
		},
	}
}

// IOCount is the number of labels a connection gene can address.
func (c *NetworkConfig) IOCount() int {
	return c.NumInputs + c.NumOutputs
}

// ChromosomeLength is the number of connection genes in each neuron genome.
func (c *NetworkConfig) ChromosomeLength() int {
	return c.IOCount() / 2
}

// LoadConfig loads configuration parameters from an INI file, or from YAML
// when the path ends in .yaml or .yml. Missing keys keep DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return loadYAMLConfig(filePath)
	}

	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()
	sections := []struct {
		name   string
		target any
	}{
		{"SANE", &config.Sane},
		{"Network", &config.Network},
		{"NeuronGenome", &config.Neuron},
		{"Blueprint", &config.Blueprint},
		{"Selection", &config.Selection},
		{"Stagnation", &config.Stagnation},
	}
	for _, s := range sections {
		if !cfg.HasSection(s.name) {
			continue
		}
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	config.clean()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadYAMLConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config '%s': %w", filePath, err)
	}
	config.clean()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Sane.BlueprintPopulationSize <= 1 {
		return fmt.Errorf("config error: blueprint_population_size must be greater than 1")
	}
	if c.Sane.NeuronPopulationSize <= 1 {
		return fmt.Errorf("config error: neuron_population_size must be greater than 1")
	}
	if c.Sane.ThreadCount < 0 {
		return fmt.Errorf("config error: thread_count cannot be negative")
	}
	if c.Sane.EliteRate < 0 || c.Sane.EliteRate > 1 {
		return fmt.Errorf("config error: elite_rate must be between 0 and 1")
	}
	if c.Sane.MaxOperationErrors < 0 {
		return fmt.Errorf("config error: max_operation_errors cannot be negative")
	}
	if c.Sane.MaxTries <= 0 {
		return fmt.Errorf("config error: max_tries must be positive")
	}

	if c.Network.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Network.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	if c.Network.NumHidden <= 0 {
		return fmt.Errorf("config error: num_hidden must be positive")
	}
	if c.Network.ChromosomeLength() < 1 {
		return fmt.Errorf("config error: num_inputs + num_outputs must be at least 2")
	}

	if c.Neuron.MutationRate < 0 || c.Neuron.MutationRate > 1 {
		return fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if c.Neuron.WeightInitMax < c.Neuron.WeightInitMin {
		return fmt.Errorf("config error: weight_init_max cannot be less than weight_init_min")
	}
	if c.Blueprint.MutationRateRandom < 0 || c.Blueprint.MutationRateRandom > 1 {
		return fmt.Errorf("config error: mutation_rate_random must be between 0 and 1")
	}
	if c.Blueprint.MutationRateOffspring < 0 || c.Blueprint.MutationRateOffspring > 1 {
		return fmt.Errorf("config error: mutation_rate_offspring must be between 0 and 1")
	}

	switch c.Selection.SelectionType {
	case "truncation":
		if c.Selection.TruncationPercent <= 0 || c.Selection.TruncationPercent > 1 {
			return fmt.Errorf("config error: truncation_percent must be in (0, 1]")
		}
	case "tournament":
		if c.Selection.TournamentRounds <= 0 {
			return fmt.Errorf("config error: tournament_rounds must be positive")
		}
	default:
		return fmt.Errorf("config error: invalid selection_type '%s', must be one of 'truncation', 'tournament'", c.Selection.SelectionType)
	}

	if c.Stagnation.MaxStagnation < 0 {
		return fmt.Errorf("config error: max_stagnation cannot be negative")
	}
	return nil
}

func (c *Config) clean() {
	c.Network.HiddenActivation = cleanIniString(c.Network.HiddenActivation)
	c.Network.OutputActivation = cleanIniString(c.Network.OutputActivation)
	c.Network.HiddenAggregation = cleanIniString(c.Network.HiddenAggregation)
	c.Selection.SelectionType = strings.ToLower(cleanIniString(c.Selection.SelectionType))
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
