package sane

import (
	"math/rand"
)

// KeyFunc hands out unique genome keys.
type KeyFunc func() int

// --------------------------- Neuron operators ---------------------------

// NeuronCrossover performs uniform crossover of two neuron chromosomes and
// produces two complementary children of the parents' length.
type NeuronCrossover struct {
	IOCount int
}

// Perform combines the parents. Label collisions inside a child are resolved
// by taking the other parent's gene at that position, and failing that by a
// fresh unused label.
func (op NeuronCrossover) Perform(rng *rand.Rand, p1, p2 *NeuronGenome, nextKey KeyFunc) ([2]*NeuronGenome, error) {
	var children [2]*NeuronGenome
	if len(p1.Connections) != len(p2.Connections) {
		return children, operationErrorf("neuron parents differ in length: %d vs %d", len(p1.Connections), len(p2.Connections))
	}
	length := len(p1.Connections)
	if length > op.IOCount {
		return children, operationErrorf("chromosome length %d exceeds label space %d", length, op.IOCount)
	}

	children[0] = NewNeuronGenome(nextKey(), length)
	children[1] = NewNeuronGenome(nextKey(), length)
	used := [2]map[int]struct{}{make(map[int]struct{}, length), make(map[int]struct{}, length)}

	for i := 0; i < length; i++ {
		a, b := p1.Connections[i], p2.Connections[i]
		if rng.Float64() < 0.5 {
			a, b = b, a
		}
		for c, pick := range [2][2]ConnectionGene{{a, b}, {b, a}} {
			gene := pick[0]
			if _, taken := used[c][gene.Label]; taken {
				gene = pick[1]
			}
			if _, taken := used[c][gene.Label]; taken {
				gene.Label = freshLabel(rng, used[c], op.IOCount)
			}
			used[c][gene.Label] = struct{}{}
			children[c].Connections[i] = gene
		}
	}
	return children, nil
}

// NeuronMutate perturbs connection labels and weights.
type NeuronMutate struct {
	Rate    float64
	IOCount int
}

// Perform mutates each gene with probability Rate: the label moves to one
// not present in the neuron and the weight is scaled by U[-2, 2].
func (op NeuronMutate) Perform(rng *rand.Rand, n *NeuronGenome) error {
	if len(n.Connections) >= op.IOCount && op.Rate > 0 {
		// No label is free to move to.
		return operationErrorf("no free label for neuron %d", n.Key)
	}
	for i := range n.Connections {
		if rng.Float64() >= op.Rate {
			continue
		}
		label := freshLabel(rng, labelSet(n.Connections), op.IOCount)
		n.Connections[i] = ConnectionGene{
			Label:  label,
			Weight: n.Connections[i].Weight * (rng.Float64()*4 - 2),
		}
	}
	return nil
}

// freshLabel rejection-samples a label in [0, ioCount) not in used.
// Callers guarantee at least one free label exists.
func freshLabel(rng *rand.Rand, used map[int]struct{}, ioCount int) int {
	for {
		label := rng.Intn(ioCount)
		if _, taken := used[label]; !taken {
			return label
		}
	}
}

// --------------------------- Blueprint operators ---------------------------

// BlueprintCrossover performs one-point crossover over assembly slots.
type BlueprintCrossover struct{}

// Perform produces two children swapping slot tails after a random cut point.
func (BlueprintCrossover) Perform(rng *rand.Rand, p1, p2 *BlueprintGenome, nextKey KeyFunc) ([2]*BlueprintGenome, error) {
	var children [2]*BlueprintGenome
	if len(p1.Slots) != len(p2.Slots) {
		return children, operationErrorf("blueprint parents differ in length: %d vs %d", len(p1.Slots), len(p2.Slots))
	}
	length := len(p1.Slots)
	if length < 2 {
		return children, operationErrorf("blueprint of length %d cannot be crossed over", length)
	}

	cut := 1 + rng.Intn(length-1)
	children[0] = NewBlueprintGenome(nextKey(), length)
	children[1] = NewBlueprintGenome(nextKey(), length)
	copy(children[0].Slots, p1.Slots[:cut])
	copy(children[0].Slots[cut:], p2.Slots[cut:])
	copy(children[1].Slots, p2.Slots[:cut])
	copy(children[1].Slots[cut:], p1.Slots[cut:])
	return children, nil
}

// BlueprintMutateSwitchToRandom points slots at random neurons of the gene pool.
type BlueprintMutateSwitchToRandom struct {
	Rate float64
}

// Perform replaces each slot with probability Rate by a position drawn
// uniformly from [0, poolSize). Slots inherited from a parent whose neuron
// died (negative) are always replaced.
func (op BlueprintMutateSwitchToRandom) Perform(rng *rand.Rand, poolSize int, child *BlueprintGenome) error {
	if poolSize <= 0 {
		return operationErrorf("empty neuron gene pool")
	}
	for i := range child.Slots {
		if child.Slots[i] < 0 || rng.Float64() < op.Rate {
			child.Slots[i] = rng.Intn(poolSize)
		}
	}
	return nil
}

// BlueprintMutateSwitchToOffspring points slots at neurons already used by a parent.
type BlueprintMutateSwitchToOffspring struct {
	Rate float64
}

// Perform replaces each slot with probability Rate by a live slot of either
// parent. It does nothing when neither parent has one.
func (op BlueprintMutateSwitchToOffspring) Perform(rng *rand.Rand, parents [2]*BlueprintGenome, child *BlueprintGenome) error {
	pool := make([]int, 0, len(parents[0].Slots)+len(parents[1].Slots))
	for _, p := range parents {
		for _, s := range p.Slots {
			if s >= 0 {
				pool = append(pool, s)
			}
		}
	}
	if len(pool) == 0 {
		return nil
	}
	for i := range child.Slots {
		if rng.Float64() < op.Rate {
			child.Slots[i] = pool[rng.Intn(len(pool))]
		}
	}
	return nil
}

// Operators bundles the genetic operators used by the workers.
type Operators struct {
	NeuronCrossover          NeuronCrossover
	NeuronMutate             NeuronMutate
	BlueprintCrossover       BlueprintCrossover
	BlueprintMutateRandom    BlueprintMutateSwitchToRandom
	BlueprintMutateOffspring BlueprintMutateSwitchToOffspring
}

// NewOperators builds the operators from the config.
func NewOperators(config *Config) Operators {
	io := config.Network.IOCount()
	return Operators{
		NeuronCrossover:          NeuronCrossover{IOCount: io},
		NeuronMutate:             NeuronMutate{Rate: config.Neuron.MutationRate, IOCount: io},
		BlueprintMutateRandom:    BlueprintMutateSwitchToRandom{Rate: config.Blueprint.MutationRateRandom},
		BlueprintMutateOffspring: BlueprintMutateSwitchToOffspring{Rate: config.Blueprint.MutationRateOffspring},
	}
}
