package sane

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Selection picks a parent from a species whose members are ranked best
// first. It returns an index into that ranked list.
type Selection interface {
	Name() string
	Select(rng *rand.Rand, rankedCount int) (int, error)
}

// TruncationSelection picks uniformly among the top Percent of the species.
type TruncationSelection struct {
	Percent float64
}

func (TruncationSelection) Name() string {
	return "truncation"
}

func (s TruncationSelection) Select(rng *rand.Rand, rankedCount int) (int, error) {
	if rng == nil {
		return 0, errors.New("random source is required")
	}
	if rankedCount <= 0 {
		return 0, operationErrorf("cannot select from an empty species")
	}
	cutoff := int(math.Ceil(s.Percent * float64(rankedCount)))
	// Need at least two candidates to find two distinct parents.
	if cutoff < 2 {
		cutoff = 2
	}
	if cutoff > rankedCount {
		cutoff = rankedCount
	}
	return rng.Intn(cutoff), nil
}

// TournamentSelection samples Rounds members and keeps the best ranked one.
type TournamentSelection struct {
	Rounds int
}

func (TournamentSelection) Name() string {
	return "tournament"
}

func (s TournamentSelection) Select(rng *rand.Rand, rankedCount int) (int, error) {
	if rng == nil {
		return 0, errors.New("random source is required")
	}
	if rankedCount <= 0 {
		return 0, operationErrorf("cannot select from an empty species")
	}
	rounds := s.Rounds
	if rounds <= 0 {
		rounds = 1
	}
	best := rng.Intn(rankedCount)
	for i := 1; i < rounds; i++ {
		// Members are ranked, so a lower index is a fitter genome.
		if candidate := rng.Intn(rankedCount); candidate < best {
			best = candidate
		}
	}
	return best, nil
}

// NewSelection builds the selection strategy named in the config.
func NewSelection(config *SelectionConfig) (Selection, error) {
	switch config.SelectionType {
	case "", "truncation":
		return TruncationSelection{Percent: config.TruncationPercent}, nil
	case "tournament":
		return TournamentSelection{Rounds: config.TournamentRounds}, nil
	default:
		return nil, errors.Errorf("unknown selection type: %s", config.SelectionType)
	}
}
