package sane

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarises one completed generation.
type GenerationStats struct {
	Generation      int
	BestScore       float64
	BlueprintMean   float64
	BlueprintStdDev float64
	BlueprintMedian float64
	NeuronMean      float64
	BlueprintCount  int
	NeuronCount     int
	NonFinite       int // blueprints whose score is NaN or infinite
	Duration        time.Duration
}

func (s GenerationStats) String() string {
	return fmt.Sprintf("gen %d: best %.4f mean %.4f sd %.4f median %.4f (blueprints %d, neurons %d) in %s",
		s.Generation, s.BestScore, s.BlueprintMean, s.BlueprintStdDev, s.BlueprintMedian,
		s.BlueprintCount, s.NeuronCount, s.Duration.Round(time.Millisecond))
}

func computeGenerationStats(generation int, blueprints []*BlueprintGenome, neurons []*NeuronGenome, best float64, d time.Duration) GenerationStats {
	bpScores := finiteScores(blueprints)
	s := GenerationStats{
		Generation:     generation,
		BestScore:      best,
		BlueprintCount: len(blueprints),
		NeuronCount:    len(neurons),
		NonFinite:      len(blueprints) - len(bpScores),
		Duration:       d,
	}
	s.BlueprintMean, s.BlueprintStdDev = meanStdDev(bpScores)
	if len(bpScores) > 0 {
		sort.Float64s(bpScores)
		s.BlueprintMedian = stat.Quantile(0.5, stat.Empirical, bpScores, nil)
	}
	s.NeuronMean, _ = meanStdDev(finiteScores(neurons))
	return s
}

// meanStdDev returns zeros for empty input and a zero deviation for a single value.
func meanStdDev(x []float64) (float64, float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

func finiteScores[G Genome](genomes []G) []float64 {
	out := make([]float64, 0, len(genomes))
	for _, g := range genomes {
		if score := g.Base().Score; isUsableScore(score) {
			out = append(out, score)
		}
	}
	return out
}
