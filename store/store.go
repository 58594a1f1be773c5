// Package store provides SQLite-backed persistence for finished
// trajectories. The engine itself performs no I/O; the store is the
// caller-side collaborator the CLI uses to keep projections inspectable
// after the fact.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

// ErrNotFound is returned when a trajectory ID has no row.
var ErrNotFound = errors.New("store: trajectory not found")

const schema = `
CREATE TABLE IF NOT EXISTS trajectories (
    id                TEXT PRIMARY KEY,
    counterfactual_id TEXT NOT NULL,
    label             TEXT NOT NULL DEFAULT '',
    seed              INTEGER NOT NULL,
    horizon           INTEGER NOT NULL,
    granularity       TEXT NOT NULL,
    parent_id         TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL,
    payload           BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trajectories_cf ON trajectories(counterfactual_id);
`

// Summary is one row of trajectory metadata, without the payload.
type Summary struct {
	ID               string    `json:"id"`
	CounterfactualID string    `json:"counterfactualId"`
	Label            string    `json:"label"`
	Seed             uint64    `json:"seed"`
	Horizon          int       `json:"horizon"`
	Granularity      string    `json:"granularity"`
	ParentID         string    `json:"parentId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Store handles SQLite operations for trajectory records.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save persists a trajectory, replacing any existing row with the same ID.
func (s *Store) Save(t *trajectory.Trajectory) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trajectory: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO trajectories
		(id, counterfactual_id, label, seed, horizon, granularity, parent_id, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Counterfactual.ID, t.Counterfactual.Label, int64(t.Provenance.Seed),
		t.Horizon, string(t.Granularity), t.Provenance.ParentID,
		t.Provenance.CreatedAt.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("insert trajectory: %w", err)
	}
	return nil
}

// Load retrieves a full trajectory by ID.
func (s *Store) Load(id string) (*trajectory.Trajectory, error) {
	var payload []byte
	err := s.db.QueryRow("SELECT payload FROM trajectories WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	var t trajectory.Trajectory
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	return &t, nil
}

// List returns trajectory summaries, newest first, up to limit (0 means
// all).
func (s *Store) List(limit int) ([]Summary, error) {
	q := `SELECT id, counterfactual_id, label, seed, horizon, granularity, parent_id, created_at
		FROM trajectories ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("list trajectories: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var seed int64
		var created string
		if err := rows.Scan(&sum.ID, &sum.CounterfactualID, &sum.Label, &seed,
			&sum.Horizon, &sum.Granularity, &sum.ParentID, &created); err != nil {
			return nil, fmt.Errorf("scan trajectory row: %w", err)
		}
		sum.Seed = uint64(seed)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			sum.CreatedAt = ts
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a trajectory by ID. Deleting a missing ID is not an
// error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM trajectories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete trajectory: %w", err)
	}
	return nil
}
