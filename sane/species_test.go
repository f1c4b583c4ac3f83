package sane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredBlueprints(scores ...float64) []*BlueprintGenome {
	out := make([]*BlueprintGenome, len(scores))
	for i, s := range scores {
		out[i] = NewBlueprintGenome(i+1, 2)
		out[i].SetScore(s)
	}
	return out
}

func TestComputeOffspringQuotas(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int
		popSize int
		want    []int
	}{
		{"single species", []int{8}, 20, []int{20}},
		{"even split", []int{5, 5}, 10, []int{5, 5}},
		{"largest remainder", []int{1, 1, 1}, 10, []int{4, 3, 3}},
		{"empty", []int{0, 0}, 10, []int{0, 0}},
		{"zero population", []int{3}, 0, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeOffspringQuotas(tt.sizes, tt.popSize)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSingleSpeciationRanksAndTrims(t *testing.T) {
	genomes := scoredBlueprints(1, 5, 3, 4, 2)
	sp := SingleSpeciation[*BlueprintGenome]{Comparator: NewSelectionComparator(false)}

	species, overflow := sp.Speciate(genomes, 3)
	require.Len(t, species, 1)
	assert.Equal(t, 3, species[0].OffspringCount)

	var kept []float64
	for _, g := range species[0].Members {
		kept = append(kept, g.Score)
	}
	assert.Equal(t, []float64{5, 4, 3}, kept)
	require.Len(t, overflow, 2)
	assert.Equal(t, 2.0, overflow[0].Score)
	assert.Equal(t, 1.0, overflow[1].Score)

	// The input slice is left untouched.
	assert.Equal(t, 1.0, genomes[0].Score)
}

func TestSingleSpeciationMinimizeAndNaN(t *testing.T) {
	genomes := scoredBlueprints(math.NaN(), 2, -1, math.Inf(1))
	sp := SingleSpeciation[*BlueprintGenome]{Comparator: NewSelectionComparator(true)}

	species, overflow := sp.Speciate(genomes, 10)
	require.Len(t, species, 1)
	assert.Empty(t, overflow)

	members := species[0].Members
	assert.Equal(t, -1.0, members[0].Score)
	assert.Equal(t, 2.0, members[1].Score)
	assert.True(t, math.IsInf(members[2].Score, 1))
	assert.True(t, math.IsNaN(members[3].Score))
	assert.Same(t, members[0], species[0].Leader())
}

func TestSingleSpeciationEmpty(t *testing.T) {
	sp := SingleSpeciation[*NeuronGenome]{Comparator: NewSelectionComparator(false)}
	species, overflow := sp.Speciate(nil, 10)
	assert.Nil(t, species)
	assert.Nil(t, overflow)
}

func TestSortRankedIsStable(t *testing.T) {
	genomes := scoredBlueprints(1, 1, 1)
	sortRanked(genomes, NewSelectionComparator(false))
	assert.Equal(t, []int{1, 2, 3}, []int{genomes[0].Key, genomes[1].Key, genomes[2].Key})
}

func TestPopulationPurgeDropsEmptySpecies(t *testing.T) {
	p := &Population[*BlueprintGenome]{
		PopulationSize: 10,
		Species: []*Species[*BlueprintGenome]{
			{Key: 1, Members: scoredBlueprints(1, math.NaN())},
			{Key: 2, Members: scoredBlueprints(math.NaN())},
		},
	}
	purged := p.PurgeInvalidGenomes(func(b *BlueprintGenome) bool { return isUsableScore(b.Score) })

	assert.Equal(t, 2, purged)
	require.Len(t, p.Species, 1)
	assert.Equal(t, 1, p.Size())
	assert.False(t, p.FirstSpeciesEmpty())
}

func TestPopulationMaxima(t *testing.T) {
	members := scoredBlueprints(1, 2, 3)
	members[1].BirthGeneration = 4
	p := NewPopulation("blueprints", 3, members)

	assert.Equal(t, 4, p.MaxBirthGeneration())
	assert.Equal(t, 3, p.MaxKey())
	assert.Len(t, p.Flatten(), 3)

	empty := NewPopulation[*BlueprintGenome]("blueprints", 3, nil)
	assert.True(t, empty.FirstSpeciesEmpty())
	assert.Zero(t, empty.Size())
}
