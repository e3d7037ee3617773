package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/movers/internal/movers"
)

// Snapshot kinds recorded in history
const (
	KindLive        = "live"
	KindStale       = "stale"
	KindPlaceholder = "placeholder"
)

// Kind classifies a stored snapshot by its degradation markers
func Kind(s *movers.MarketSnapshot) string {
	switch {
	case movers.IsPlaceholder(s):
		return KindPlaceholder
	case movers.IsDegraded(s):
		return KindStale
	default:
		return KindLive
	}
}

// HistoryEntry is one row of the snapshot history
type HistoryEntry struct {
	RunID      string                 `json:"run_id"`
	Kind       string                 `json:"kind"`
	UpdateTime string                 `json:"update_time"`
	IsClosed   bool                   `json:"is_closed"`
	CreatedAt  time.Time              `json:"created_at"`
	Snapshot   *movers.MarketSnapshot `json:"snapshot,omitempty"`
}

// PostgresStore appends every snapshot to movers.snapshots
// ⭐ SSOT: 스냅샷 이력 저장/조회
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new history store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the schema and table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS movers;
		CREATE TABLE IF NOT EXISTS movers.snapshots (
			run_id      UUID PRIMARY KEY,
			kind        TEXT NOT NULL,
			update_time TEXT NOT NULL,
			is_closed   BOOLEAN NOT NULL,
			payload     JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS snapshots_created_at_idx ON movers.snapshots (created_at DESC);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Save inserts the snapshot tagged with the run id carried by ctx
func (s *PostgresStore) Save(ctx context.Context, snapshot *movers.MarketSnapshot) error {
	runID := movers.RunIDFrom(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	query := `
		INSERT INTO movers.snapshots (run_id, kind, update_time, is_closed, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			update_time = EXCLUDED.update_time,
			is_closed = EXCLUDED.is_closed,
			payload = EXCLUDED.payload
	`
	_, err = s.pool.Exec(ctx, query, runID, Kind(snapshot), snapshot.UpdateTime, snapshot.IsClosed, payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadLast returns the newest snapshot, or nil when the table is empty
func (s *PostgresStore) LoadLast(ctx context.Context) (*movers.MarketSnapshot, error) {
	query := `
		SELECT payload
		FROM movers.snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payload []byte
	err := s.pool.QueryRow(ctx, query).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last snapshot: %w", err)
	}

	var snapshot movers.MarketSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// History lists the newest snapshots first, without payloads
func (s *PostgresStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id::text, kind, update_time, is_closed, created_at
		FROM movers.snapshots
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.RunID, &e.Kind, &e.UpdateTime, &e.IsClosed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot history: %w", err)
	}
	return entries, nil
}
