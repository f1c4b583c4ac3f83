package sane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeuronRules(t *testing.T) {
	network := &NetworkConfig{NumInputs: 3, NumOutputs: 3}
	rules := NewNeuronRules(network)

	valid := &NeuronGenome{Connections: []ConnectionGene{{Label: 0, Weight: 1}, {Label: 5, Weight: -1}, {Label: 2, Weight: 0}}}
	assert.True(t, rules.IsValid(valid))

	tests := []struct {
		name  string
		genes []ConnectionGene
	}{
		{"wrong length", []ConnectionGene{{Label: 0}, {Label: 1}}},
		{"duplicate label", []ConnectionGene{{Label: 0}, {Label: 0}, {Label: 1}}},
		{"label out of range", []ConnectionGene{{Label: 0}, {Label: 6}, {Label: 1}}},
		{"negative label", []ConnectionGene{{Label: -1}, {Label: 2}, {Label: 1}}},
		{"non-finite weight", []ConnectionGene{{Label: 0}, {Label: 1, Weight: math.Inf(1)}, {Label: 2}}},
		{"NaN weight", []ConnectionGene{{Label: 0}, {Label: 1, Weight: math.NaN()}, {Label: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, rules.IsValid(&NeuronGenome{Connections: tt.genes}))
		})
	}
}

func TestBlueprintRulesFollowNeuronCount(t *testing.T) {
	count := 5
	rules := NewBlueprintRules(&NetworkConfig{NumHidden: 3}, func() int { return count })

	bp := &BlueprintGenome{Slots: []int{0, 4, 2}}
	assert.True(t, rules.IsValid(bp))

	count = 4
	assert.False(t, rules.IsValid(bp))

	assert.False(t, rules.IsValid(&BlueprintGenome{Slots: []int{0, 1}}))
	assert.False(t, rules.IsValid(&BlueprintGenome{Slots: []int{0, -1, 1}}))
}

func TestRuleHolderRewritesInOrder(t *testing.T) {
	rules := NewRuleHolder[*BlueprintGenome]()
	assert.True(t, rules.IsValid(&BlueprintGenome{}))

	rules.AddRewriteRule(func(b *BlueprintGenome) { b.Slots = append(b.Slots, 1) })
	rules.AddRewriteRule(func(b *BlueprintGenome) { b.Slots[0] *= 10 })
	rules.AddConstraintRule(func(b *BlueprintGenome) bool { return len(b.Slots) == 1 })

	bp := &BlueprintGenome{}
	rules.Rewrite(bp)
	assert.Equal(t, []int{10}, bp.Slots)
	assert.True(t, rules.IsValid(bp))
}

func TestCustomBlueprintRulesStillCheckReferences(t *testing.T) {
	cfg := testConfig()
	permissive := NewRuleHolder[*BlueprintGenome]()
	trainer := newTestTrainer(t, cfg, &countingScorer{}, WithBlueprintRules(permissive))

	bp := &BlueprintGenome{Slots: []int{0, 1, 2, len(trainer.GeneNeurons())}}
	assert.False(t, trainer.isValidBlueprint(bp))
	bp.Slots[3] = 0
	assert.True(t, trainer.isValidBlueprint(bp))
}
