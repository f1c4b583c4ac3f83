package sane

import (
	"math/rand"
	"sync"
	"time"
)

// Phenotype is a runnable network produced by a Decoder. The trainer never
// looks inside it; it only hands it to the Scorer.
type Phenotype any

// ContextClearer is implemented by phenotypes that carry state between
// activations. The trainer clears the context before scoring.
type ContextClearer interface {
	ClearContext()
}

// Scorer evaluates phenotypes. Score is called concurrently from several
// workers with different phenotypes and must be safe for that.
type Scorer interface {
	Score(phenotype Phenotype) (float64, error)
	ShouldMinimize() bool
}

// Decoder builds a phenotype from a blueprint and the neuron list its slots
// address. A decode error marks the blueprint as undecodable; it then gets
// the worst score and the Scorer is not called.
type Decoder interface {
	Decode(blueprint *BlueprintGenome, neurons []*NeuronGenome) (Phenotype, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc struct {
	Fn       func(Phenotype) (float64, error)
	Minimize bool
}

func (f ScorerFunc) Score(p Phenotype) (float64, error) {
	return f.Fn(p)
}

func (f ScorerFunc) ShouldMinimize() bool {
	return f.Minimize
}

// RandomFactory produces an independent random source for each worker.
type RandomFactory interface {
	Factor() *rand.Rand
}

// SeededRandomFactory derives worker sources from a base seed and a
// sequence number, so a run with one thread is reproducible.
type SeededRandomFactory struct {
	mu   sync.Mutex
	seed int64
	next int64
}

// NewSeededRandomFactory creates a deterministic factory.
func NewSeededRandomFactory(seed int64) *SeededRandomFactory {
	return &SeededRandomFactory{seed: seed}
}

// NewRandomFactory creates a factory seeded from the clock.
func NewRandomFactory() *SeededRandomFactory {
	return NewSeededRandomFactory(time.Now().UnixNano())
}

// Factor returns a new source. Sources are not safe for concurrent use; each
// worker owns the one it receives.
func (f *SeededRandomFactory) Factor() *rand.Rand {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return rand.New(rand.NewSource(f.seed + f.next*7919))
}
