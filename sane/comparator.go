package sane

import "math"

// ScoreComparator orders genomes by score under a minimize or maximize
// polarity. NaN always loses: it is never better than anything, and any
// number is better than NaN.
type ScoreComparator struct {
	Minimize bool
	Adjusted bool // compare AdjustedScore instead of Score
}

// NewBestComparator compares raw scores; used to track the best genome.
func NewBestComparator(minimize bool) ScoreComparator {
	return ScoreComparator{Minimize: minimize}
}

// NewSelectionComparator compares adjusted scores; used for ranking species members.
func NewSelectionComparator(minimize bool) ScoreComparator {
	return ScoreComparator{Minimize: minimize, Adjusted: true}
}

// ShouldMinimize reports the polarity.
func (c ScoreComparator) ShouldMinimize() bool {
	return c.Minimize
}

func (c ScoreComparator) value(g Genome) float64 {
	if c.Adjusted {
		return g.Base().AdjustedScore
	}
	return g.Base().Score
}

// IsBetterThan reports whether a strictly beats b.
func (c ScoreComparator) IsBetterThan(a, b Genome) bool {
	return c.betterValue(c.value(a), c.value(b))
}

func (c ScoreComparator) betterValue(x, y float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if math.IsNaN(y) {
		return true
	}
	if c.Minimize {
		return x < y
	}
	return x > y
}

// Compare returns a negative number when a ranks before b, positive when
// after, and zero when they tie.
func (c ScoreComparator) Compare(a, b Genome) int {
	switch {
	case c.IsBetterThan(a, b):
		return -1
	case c.IsBetterThan(b, a):
		return 1
	default:
		return 0
	}
}

// WorstScore is the sentinel every real score beats.
func (c ScoreComparator) WorstScore() float64 {
	if c.Minimize {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// isUsableScore reports whether a score may become the best score.
func isUsableScore(score float64) bool {
	return !math.IsNaN(score) && !math.IsInf(score, 0)
}
