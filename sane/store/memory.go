package store

import (
	"context"
	"sort"
	"sync"

	"github.com/baldhumanity/sane-go/sane"
	"github.com/pkg/errors"
)

// MemoryStore keeps encoded snapshots in memory. Loaded snapshots never
// share genomes with saved ones.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string][]byte
	stats       map[string]map[int]sane.GenerationStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string][]byte)
	s.stats = make(map[string]map[int]sane.GenerationStats)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, runID string, snapshot *sane.Snapshot) error {
	payload, err := sane.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("memory store is not initialized")
	}
	s.snapshots[runID] = payload
	return nil
}

func (s *MemoryStore) LoadSnapshot(_ context.Context, runID string) (*sane.Snapshot, bool, error) {
	s.mu.RLock()
	payload, ok := s.snapshots[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	snapshot, err := sane.UnmarshalSnapshot(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode snapshot %s", runID)
	}
	return snapshot, true, nil
}

func (s *MemoryStore) SaveGenerationStats(_ context.Context, runID string, stats sane.GenerationStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("memory store is not initialized")
	}

	byGeneration, ok := s.stats[runID]
	if !ok {
		byGeneration = make(map[int]sane.GenerationStats)
		s.stats[runID] = byGeneration
	}
	byGeneration[stats.Generation] = stats
	return nil
}

func (s *MemoryStore) ListGenerationStats(_ context.Context, runID string) ([]sane.GenerationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]sane.GenerationStats, 0, len(s.stats[runID]))
	for _, st := range s.stats[runID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Generation < out[j].Generation
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
