package sane

import (
	"fmt"
	"math/rand"
)

// Genome is implemented by both genome types so that comparators, selection
// and speciation can work on either population without type switches.
type Genome interface {
	Base() *GenomeBase
}

// GenomeBase holds the bookkeeping shared by neuron and blueprint genomes.
type GenomeBase struct {
	Key             int     // Unique identifier for this genome within a training run.
	Score           float64 // Raw score (accumulated sum for neurons before finalisation).
	AdjustedScore   float64 // Score used for ranking and selection.
	BirthGeneration int     // Generation in which the genome was created.
}

// Base returns the shared bookkeeping fields.
func (b *GenomeBase) Base() *GenomeBase {
	return b
}

// SetScore sets both the raw and the adjusted score.
func (b *GenomeBase) SetScore(score float64) {
	b.Score = score
	b.AdjustedScore = score
}

// --------------------------- NeuronGenome ---------------------------

// NeuronGenome is one candidate hidden unit: a fixed-length list of
// connection genes into the input/output slots of the phenotype.
type NeuronGenome struct {
	GenomeBase
	Connections   []ConnectionGene
	Participation int   // Number of blueprints that referenced this neuron this generation.
	Children      []int // Keys of offspring produced from this neuron; bookkeeping only.
}

// NewNeuronGenome creates a neuron genome with a zeroed chromosome of the given length.
func NewNeuronGenome(key, length int) *NeuronGenome {
	return &NeuronGenome{
		GenomeBase:  GenomeBase{Key: key},
		Connections: make([]ConnectionGene, length),
	}
}

// RandomInit fills the chromosome with unique labels drawn from [0, IOCount)
// and weights drawn uniformly from the configured init range.
func (n *NeuronGenome) RandomInit(rng *rand.Rand, config *Config) {
	labels := rng.Perm(config.Network.IOCount())
	span := config.Neuron.WeightInitMax - config.Neuron.WeightInitMin
	for i := range n.Connections {
		n.Connections[i] = ConnectionGene{
			Label:  labels[i],
			Weight: config.Neuron.WeightInitMin + rng.Float64()*span,
		}
	}
}

// Copy creates a deep copy of the genome, including its scores. Children are not copied.
func (n *NeuronGenome) Copy() *NeuronGenome {
	c := &NeuronGenome{
		GenomeBase:    n.GenomeBase,
		Connections:   make([]ConnectionGene, len(n.Connections)),
		Participation: n.Participation,
	}
	copy(c.Connections, n.Connections)
	return c
}

// AddScore accumulates the score of a blueprint this neuron participated in.
func (n *NeuronGenome) AddScore(score float64) {
	n.Score += score
}

// IncrementParticipation records one more referencing blueprint.
func (n *NeuronGenome) IncrementParticipation() {
	n.Participation++
}

// ClearParticipation forgets the participation count.
func (n *NeuronGenome) ClearParticipation() {
	n.Participation = 0
}

// ResetFitness clears participation, both scores and the children list.
func (n *NeuronGenome) ResetFitness() {
	n.ClearParticipation()
	n.Score = 0
	n.AdjustedScore = 0
	n.Children = n.Children[:0]
}

// FinalizeScore averages the accumulated score over the participation count.
// A neuron nobody used keeps a score of zero.
func (n *NeuronGenome) FinalizeScore() {
	if n.Participation > 0 {
		n.Score = n.Score / float64(n.Participation)
	}
	n.AdjustedScore = n.Score
}

// String returns a string representation of the NeuronGenome.
func (n *NeuronGenome) String() string {
	return fmt.Sprintf("NeuronGenome(Key: %d, Score: %.4f, Participation: %d, Connections: %v)",
		n.Key, n.Score, n.Participation, n.Connections)
}

// --------------------------- BlueprintGenome ---------------------------

// BlueprintGenome assembles a network from neuron genomes. Each slot holds a
// position in the flattened neuron population, one slot per hidden unit.
type BlueprintGenome struct {
	GenomeBase
	Slots []int
}

// NewBlueprintGenome creates a blueprint with the given number of hidden slots.
func NewBlueprintGenome(key, hidden int) *BlueprintGenome {
	return &BlueprintGenome{
		GenomeBase: GenomeBase{Key: key},
		Slots:      make([]int, hidden),
	}
}

// RandomInit points every slot at a uniformly random neuron position.
func (b *BlueprintGenome) RandomInit(rng *rand.Rand, neuronCount int) {
	for i := range b.Slots {
		b.Slots[i] = rng.Intn(neuronCount)
	}
}

// Copy creates a copy of the blueprint, including its scores.
func (b *BlueprintGenome) Copy() *BlueprintGenome {
	c := &BlueprintGenome{
		GenomeBase: b.GenomeBase,
		Slots:      make([]int, len(b.Slots)),
	}
	copy(c.Slots, b.Slots)
	return c
}

// References reports whether every slot addresses a live neuron position.
func (b *BlueprintGenome) References(neuronCount int) bool {
	for _, idx := range b.Slots {
		if idx < 0 || idx >= neuronCount {
			return false
		}
	}
	return true
}

// String returns a string representation of the BlueprintGenome.
func (b *BlueprintGenome) String() string {
	return fmt.Sprintf("BlueprintGenome(Key: %d, Score: %.4f, Birth: %d, Slots: %v)",
		b.Key, b.Score, b.BirthGeneration, b.Slots)
}
