package store

import (
	"context"
	"fmt"
	"time"

	"zonemeter/internal/models"
)

// InsertReadings archives one poll's worth of raw counter readings. The
// archive feeds the reporting path; accounting never reads it back.
func (s *Store) InsertReadings(ctx context.Context, readings []models.MeterReading) error {
	if len(readings) == 0 {
		return nil
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO readings (meter_id, taken_at, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.MeterID, r.TakenAt.UTC().Format(timeFormat), r.Value); err != nil {
			return fmt.Errorf("failed to insert reading for %s: %w", r.MeterID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit readings: %w", err)
	}
	return nil
}

// ReadingsInWindow returns one meter's archived readings inside [from, to],
// oldest first.
func (s *Store) ReadingsInWindow(ctx context.Context, meterID string, from, to time.Time) ([]models.MeterReading, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT meter_id, taken_at, value FROM readings
		 WHERE meter_id = ? AND taken_at >= ? AND taken_at <= ?
		 ORDER BY taken_at ASC`,
		meterID, from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []models.MeterReading
	for rows.Next() {
		var (
			r       models.MeterReading
			takenAt string
		)
		if err := rows.Scan(&r.MeterID, &takenAt, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.TakenAt, err = time.ParseInLocation(timeFormat, takenAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reading timestamp: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
