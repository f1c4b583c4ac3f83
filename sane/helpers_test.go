package sane

import (
	"io"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// testConfig is small and deterministic: one worker thread and a fixed seed.
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Sane.ThreadCount = 1
	cfg.Sane.Seed = 42
	cfg.Network.NumInputs = 3
	cfg.Network.NumOutputs = 3
	cfg.Network.NumHidden = 4
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// weightSumDecoder turns a blueprint into the sum of the weights of its
// neurons. It fails on slots outside the neuron list.
type weightSumDecoder struct{}

func (weightSumDecoder) Decode(bp *BlueprintGenome, neurons []*NeuronGenome) (Phenotype, error) {
	total := 0.0
	for _, idx := range bp.Slots {
		if idx < 0 || idx >= len(neurons) {
			return nil, errors.Errorf("slot %d out of range", idx)
		}
		for _, c := range neurons[idx].Connections {
			total += c.Weight
		}
	}
	return total, nil
}

// countingScorer scores a weightSumDecoder phenotype by its value and counts calls.
type countingScorer struct {
	calls    atomic.Int64
	minimize bool
	fn       func(sum float64) (float64, error)
}

func (s *countingScorer) Score(p Phenotype) (float64, error) {
	s.calls.Add(1)
	sum := p.(float64)
	if s.fn != nil {
		return s.fn(sum)
	}
	return sum, nil
}

func (s *countingScorer) ShouldMinimize() bool {
	return s.minimize
}

func newPopulations(cfg *Config, seed int64) (*Population[*NeuronGenome], *Population[*BlueprintGenome]) {
	rng := rand.New(rand.NewSource(seed))
	keys := NewKeyGenerator(1)
	neurons := CreateNeuronPopulation(cfg, rng, keys)
	blueprints := CreateBlueprintPopulation(cfg, rng, neurons.Size(), keys)
	return neurons, blueprints
}

func newTestTrainer(t *testing.T, cfg *Config, scorer Scorer, opts ...Option) *Trainer {
	t.Helper()
	neurons, blueprints := newPopulations(cfg, 1)
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithRandomFactory(NewSeededRandomFactory(7)),
	}, opts...)
	trainer, err := NewTrainer(cfg, blueprints, neurons, scorer, weightSumDecoder{}, opts...)
	require.NoError(t, err)
	t.Cleanup(trainer.Shutdown)
	return trainer
}

// failingSelection counts calls and always fails with a non-operation error.
type failingSelection struct {
	calls atomic.Int64
}

func (*failingSelection) Name() string { return "failing" }

func (s *failingSelection) Select(*rand.Rand, int) (int, error) {
	s.calls.Add(1)
	return 0, errors.New("selection broken")
}

// constantSelection always picks the same index, so no distinct second parent exists.
type constantSelection struct{}

func (constantSelection) Name() string { return "constant" }

func (constantSelection) Select(*rand.Rand, int) (int, error) {
	return 0, nil
}
