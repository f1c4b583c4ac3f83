package store

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	"github.com/baldhumanity/sane-go/sane"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots and statistics in a SQLite database.
// Non-finite statistics are stored as NULL and read back as NaN.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping sqlite")
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, snapshot *sane.Snapshot) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := sane.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, generation, saved_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			generation = excluded.generation,
			saved_at = excluded.saved_at,
			payload = excluded.payload
	`, runID, snapshot.Generation, snapshot.SavedAt.UTC().Format(time.RFC3339Nano), payload)
	return errors.Wrapf(err, "save snapshot %s", runID)
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, runID string) (*sane.Snapshot, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE run_id = ?`, runID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "load snapshot %s", runID)
	}

	snapshot, err := sane.UnmarshalSnapshot(payload)
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode snapshot %s", runID)
	}
	return snapshot, true, nil
}

func (s *SQLiteStore) SaveGenerationStats(ctx context.Context, runID string, stats sane.GenerationStats) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generation_stats (
			run_id, generation, best, mean, stddev, median, neuron_mean,
			blueprints, neurons, non_finite, duration_ns
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			best = excluded.best,
			mean = excluded.mean,
			stddev = excluded.stddev,
			median = excluded.median,
			neuron_mean = excluded.neuron_mean,
			blueprints = excluded.blueprints,
			neurons = excluded.neurons,
			non_finite = excluded.non_finite,
			duration_ns = excluded.duration_ns
	`, runID, stats.Generation,
		nullFloat(stats.BestScore), nullFloat(stats.BlueprintMean), nullFloat(stats.BlueprintStdDev),
		nullFloat(stats.BlueprintMedian), nullFloat(stats.NeuronMean),
		stats.BlueprintCount, stats.NeuronCount, stats.NonFinite, int64(stats.Duration))
	return errors.Wrapf(err, "save generation %d stats", stats.Generation)
}

func (s *SQLiteStore) ListGenerationStats(ctx context.Context, runID string) ([]sane.GenerationStats, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT generation, best, mean, stddev, median, neuron_mean,
			blueprints, neurons, non_finite, duration_ns
		FROM generation_stats
		WHERE run_id = ?
		ORDER BY generation
	`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "list stats for %s", runID)
	}
	defer rows.Close()

	var out []sane.GenerationStats
	for rows.Next() {
		var (
			st                                   sane.GenerationStats
			best, mean, stddev, median, neurMean sql.NullFloat64
			duration                             int64
		)
		if err := rows.Scan(&st.Generation, &best, &mean, &stddev, &median, &neurMean,
			&st.BlueprintCount, &st.NeuronCount, &st.NonFinite, &duration); err != nil {
			return nil, errors.Wrap(err, "scan generation stats")
		}
		st.BestScore = floatOrNaN(best)
		st.BlueprintMean = floatOrNaN(mean)
		st.BlueprintStdDev = floatOrNaN(stddev)
		st.BlueprintMedian = floatOrNaN(median)
		st.NeuronMean = floatOrNaN(neurMean)
		st.Duration = time.Duration(duration)
		out = append(out, st)
	}
	return out, errors.Wrap(rows.Err(), "iterate generation stats")
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT PRIMARY KEY,
			generation INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generation_stats (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			best REAL,
			mean REAL,
			stddev REAL,
			median REAL,
			neuron_mean REAL,
			blueprints INTEGER NOT NULL,
			neurons INTEGER NOT NULL,
			non_finite INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
