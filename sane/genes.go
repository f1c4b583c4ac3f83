package sane

import (
	"fmt"
	"math"
)

// ConnectionGene wires a hidden unit to one input or output slot.
// Labels in [0, NumInputs) address inputs, the rest address outputs.
type ConnectionGene struct {
	Label  int
	Weight float64
}

// String returns a string representation of the ConnectionGene.
func (c ConnectionGene) String() string {
	return fmt.Sprintf("ConnectionGene(Label: %d, Weight: %.3f)", c.Label, c.Weight)
}

// IsFinite reports whether the weight is a usable number.
func (c ConnectionGene) IsFinite() bool {
	return !math.IsNaN(c.Weight) && !math.IsInf(c.Weight, 0)
}

// labelSet collects the labels used by a chromosome.
func labelSet(genes []ConnectionGene) map[int]struct{} {
	set := make(map[int]struct{}, len(genes))
	for _, g := range genes {
		set[g.Label] = struct{}{}
	}
	return set
}
