package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"zonemeter/internal/models"
)

// AppendSnapshot writes one accounting snapshot at the end of the log and
// fills in its assigned ID. Prior snapshots are never touched.
func (s *Store) AppendSnapshot(ctx context.Context, snap *models.AccountingSnapshot) error {
	payload, err := json.Marshal(snap.Meters)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	result, err := s.ExecContext(ctx,
		`INSERT INTO snapshots (created_at, source, payload) VALUES (?, ?, ?)`,
		createdAt.UTC().Format(timeFormat), string(snap.Source), string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		snap.ID = id
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot overall.
func (s *Store) LatestSnapshot(ctx context.Context) (*models.AccountingSnapshot, error) {
	row := s.QueryRowContext(ctx,
		`SELECT id, created_at, source, payload FROM snapshots ORDER BY id DESC LIMIT 1`)
	return scanSnapshot(row)
}

// SnapshotBefore returns the most recent snapshot created at or before t.
func (s *Store) SnapshotBefore(ctx context.Context, t time.Time) (*models.AccountingSnapshot, error) {
	row := s.QueryRowContext(ctx,
		`SELECT id, created_at, source, payload FROM snapshots
		 WHERE created_at <= ? ORDER BY id DESC LIMIT 1`,
		t.UTC().Format(timeFormat))
	return scanSnapshot(row)
}

// SnapshotsForMeter walks the whole log in order and extracts the states
// recorded for one meter, as the audit history query needs them.
func (s *Store) SnapshotsForMeter(ctx context.Context, meterID string) ([]models.AccountingSnapshot, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, created_at, source, payload FROM snapshots ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var history []models.AccountingSnapshot
	for rows.Next() {
		snap, err := scanSnapshotRow(rows)
		if err != nil {
			return nil, err
		}
		state, ok := snap.Meters[meterID]
		if !ok {
			continue
		}
		snap.Meters = map[string]models.MeterState{meterID: state}
		history = append(history, *snap)
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row *sql.Row) (*models.AccountingSnapshot, error) {
	snap, err := scanSnapshotRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	return snap, err
}

func scanSnapshotRow(row rowScanner) (*models.AccountingSnapshot, error) {
	var (
		snap      models.AccountingSnapshot
		createdAt string
		source    string
		payload   string
	)
	if err := row.Scan(&snap.ID, &createdAt, &source, &payload); err != nil {
		return nil, err
	}

	ts, err := time.ParseInLocation(timeFormat, createdAt, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
	}
	snap.CreatedAt = ts
	snap.Source = models.SnapshotSource(source)

	if err := json.Unmarshal([]byte(payload), &snap.Meters); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	if snap.Meters == nil {
		snap.Meters = make(map[string]models.MeterState)
	}
	return &snap, nil
}
