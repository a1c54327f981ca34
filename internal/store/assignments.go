package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"zonemeter/internal/models"
)

// Reassign appends a new assignment record for the meter and closes the
// previous open record's effective_to, both inside one transaction. The
// history itself is never rewritten.
func (s *Store) Reassign(ctx context.Context, meterID string, zone models.Zone, requestedBy string, at time.Time) (*models.ZoneAssignment, error) {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stamp := at.UTC().Format(timeFormat)
	_, err = tx.ExecContext(ctx,
		`UPDATE assignments SET effective_to = ? WHERE meter_id = ? AND effective_to IS NULL`,
		stamp, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to close previous assignment: %w", err)
	}

	assignment := &models.ZoneAssignment{
		ID:            uuid.NewString(),
		MeterID:       meterID,
		Zone:          zone,
		RequestedBy:   requestedBy,
		EffectiveFrom: at.UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO assignments (id, meter_id, zone, requested_by, effective_from) VALUES (?, ?, ?, ?, ?)`,
		assignment.ID, meterID, string(zone), nullString(requestedBy), stamp)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}
	return assignment, nil
}

// CurrentAssignments returns the open assignment per meter.
func (s *Store) CurrentAssignments(ctx context.Context) (map[string]models.Zone, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT meter_id, zone FROM assignments WHERE effective_to IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query current assignments: %w", err)
	}
	defer rows.Close()

	current := make(map[string]models.Zone)
	for rows.Next() {
		var meterID, zone string
		if err := rows.Scan(&meterID, &zone); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		current[meterID] = models.Zone(zone)
	}
	return current, rows.Err()
}

// AssignmentsAt returns the meter -> zone mapping in force at instant t.
func (s *Store) AssignmentsAt(ctx context.Context, t time.Time) (map[string]models.Zone, error) {
	stamp := t.UTC().Format(timeFormat)
	rows, err := s.QueryContext(ctx,
		`SELECT meter_id, zone FROM assignments
		 WHERE effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)`,
		stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments at %s: %w", stamp, err)
	}
	defer rows.Close()

	at := make(map[string]models.Zone)
	for rows.Next() {
		var meterID, zone string
		if err := rows.Scan(&meterID, &zone); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		at[meterID] = models.Zone(zone)
	}
	return at, rows.Err()
}

// AssignmentHistory returns all assignment records for a meter, oldest first.
func (s *Store) AssignmentHistory(ctx context.Context, meterID string) ([]models.ZoneAssignment, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, meter_id, zone, requested_by, effective_from, effective_to
		 FROM assignments WHERE meter_id = ? ORDER BY effective_from ASC`,
		meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment history: %w", err)
	}
	defer rows.Close()

	var history []models.ZoneAssignment
	for rows.Next() {
		var (
			a           models.ZoneAssignment
			zone        string
			requestedBy sql.NullString
			from        string
			to          sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.MeterID, &zone, &requestedBy, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.Zone = models.Zone(zone)
		a.RequestedBy = requestedBy.String

		a.EffectiveFrom, err = time.ParseInLocation(timeFormat, from, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse effective_from: %w", err)
		}
		if to.Valid {
			ts, err := time.ParseInLocation(timeFormat, to.String, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("failed to parse effective_to: %w", err)
			}
			a.EffectiveTo = &ts
		}
		history = append(history, a)
	}
	return history, rows.Err()
}
