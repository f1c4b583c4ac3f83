package sane

import (
	"math"
	"math/rand"
	"sync/atomic"
)

// eliteMinMembers is the species size above which elites are carried over.
const eliteMinMembers = 5

// KeyGenerator hands out sequential genome keys. It is safe for concurrent use.
type KeyGenerator struct {
	next atomic.Int64
}

// NewKeyGenerator creates a generator whose first key is start.
func NewKeyGenerator(start int) *KeyGenerator {
	k := &KeyGenerator{}
	k.next.Store(int64(start))
	return k
}

// Next returns the next key.
func (k *KeyGenerator) Next() int {
	return int(k.next.Add(1) - 1)
}

// CreateNeuronPopulation creates an initial neuron population of random genomes.
func CreateNeuronPopulation(config *Config, rng *rand.Rand, keys *KeyGenerator) *Population[*NeuronGenome] {
	size := config.Sane.NeuronPopulationSize
	length := config.Network.ChromosomeLength()
	members := make([]*NeuronGenome, 0, size)
	for i := 0; i < size; i++ {
		n := NewNeuronGenome(keys.Next(), length)
		n.RandomInit(rng, config)
		members = append(members, n)
	}
	return NewPopulation("neurons", size, members)
}

// CreateBlueprintPopulation creates an initial blueprint population whose
// slots point at random positions of a neuron population of neuronCount genomes.
func CreateBlueprintPopulation(config *Config, rng *rand.Rand, neuronCount int, keys *KeyGenerator) *Population[*BlueprintGenome] {
	size := config.Sane.BlueprintPopulationSize
	members := make([]*BlueprintGenome, 0, size)
	for i := 0; i < size; i++ {
		b := NewBlueprintGenome(keys.Next(), config.Network.NumHidden)
		b.RandomInit(rng, neuronCount)
		members = append(members, b)
	}
	return NewPopulation("blueprints", size, members)
}

// reproductionPlan is how one species fills its offspring quota.
type reproductionPlan struct {
	Elites int // members copied unchanged, best first
	Units  int // worker units, each producing up to two children
}

// planReproduction splits a species' quota between elites and worker units.
// Elites are only taken from species with more than five members.
func planReproduction(members, quota int, eliteRate float64) reproductionPlan {
	if quota <= 0 {
		return reproductionPlan{}
	}
	elites := 0
	if members > eliteMinMembers {
		elites = int(math.Ceil(float64(members) * eliteRate))
		elites = min(elites, quota, members)
	}
	remaining := quota - elites
	return reproductionPlan{
		Elites: elites,
		Units:  (remaining + 1) / 2,
	}
}

// selectParents picks two distinct members of a ranked species. It gives up
// with an OperationError after maxTries draws of the second parent.
func selectParents[G Genome](rng *rand.Rand, sel Selection, members []G, maxTries int) (G, G, error) {
	var zero G
	if len(members) < 2 {
		return zero, zero, operationErrorf("species has %d members, need two parents", len(members))
	}
	first, err := sel.Select(rng, len(members))
	if err != nil {
		return zero, zero, err
	}
	for try := 0; try < maxTries; try++ {
		second, err := sel.Select(rng, len(members))
		if err != nil {
			return zero, zero, err
		}
		if second != first {
			return members[first], members[second], nil
		}
	}
	return zero, zero, operationErrorf("no distinct second parent after %d tries", maxTries)
}
