package sane

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeGenerationStats(t *testing.T) {
	blueprints := scoredBlueprints(1, 2, 3, 4, math.NaN(), math.Inf(1))
	neurons := []*NeuronGenome{NewNeuronGenome(1, 1), NewNeuronGenome(2, 1)}
	neurons[0].SetScore(2)
	neurons[1].SetScore(4)

	s := computeGenerationStats(7, blueprints, neurons, 4, time.Second)

	assert.Equal(t, 7, s.Generation)
	assert.Equal(t, 4.0, s.BestScore)
	assert.Equal(t, 6, s.BlueprintCount)
	assert.Equal(t, 2, s.NeuronCount)
	assert.Equal(t, 2, s.NonFinite)
	assert.InDelta(t, 2.5, s.BlueprintMean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.BlueprintStdDev, 1e-12)
	assert.InDelta(t, 2.0, s.BlueprintMedian, 1e-12)
	assert.InDelta(t, 3.0, s.NeuronMean, 1e-12)
	assert.Contains(t, s.String(), "gen 7")

	// The input scores keep their order.
	assert.Equal(t, 1.0, blueprints[0].Score)
}

func TestMeanStdDevEdgeCases(t *testing.T) {
	m, sd := meanStdDev(nil)
	assert.Zero(t, m)
	assert.Zero(t, sd)

	m, sd = meanStdDev([]float64{3})
	assert.Equal(t, 3.0, m)
	assert.Zero(t, sd)
}

func TestComputeGenerationStatsAllNonFinite(t *testing.T) {
	s := computeGenerationStats(1, scoredBlueprints(math.NaN()), nil, math.Inf(-1), 0)
	assert.Equal(t, 1, s.NonFinite)
	assert.Zero(t, s.BlueprintMean)
	assert.Zero(t, s.BlueprintMedian)
}
