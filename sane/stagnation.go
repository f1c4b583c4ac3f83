package sane

// StagnationTracker detects when the best blueprint score stops improving.
// Training can only stop at generation boundaries, so callers feed it once
// per completed generation.
type StagnationTracker struct {
	Config       *StagnationConfig
	comparator   ScoreComparator
	best         float64
	seen         bool
	LastImproved int
	History      []float64 // best score per update
}

// NewStagnationTracker creates a tracker for the given polarity.
func NewStagnationTracker(config *StagnationConfig, minimize bool) *StagnationTracker {
	return &StagnationTracker{
		Config:     config,
		comparator: NewBestComparator(minimize),
	}
}

// Update records the best score of a generation and reports whether the run
// has now gone MaxStagnation generations without improving. A zero
// MaxStagnation never reports stagnation.
func (s *StagnationTracker) Update(generation int, best float64) bool {
	s.History = append(s.History, best)
	if len(s.History) == 1 {
		s.LastImproved = generation
	}
	if isUsableScore(best) && (!s.seen || s.comparator.betterValue(best, s.best)) {
		s.best = best
		s.seen = true
		s.LastImproved = generation
	}
	if s.Config == nil || s.Config.MaxStagnation <= 0 {
		return false
	}
	return s.StagnantFor(generation) >= s.Config.MaxStagnation
}

// StagnantFor returns how many generations passed since the last improvement.
func (s *StagnationTracker) StagnantFor(generation int) int {
	return generation - s.LastImproved
}

// Best returns the best usable score seen, and false if none was seen.
func (s *StagnationTracker) Best() (float64, bool) {
	return s.best, s.seen
}
