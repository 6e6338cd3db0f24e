package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"hoslink/internal/availability/models"
	hosmodels "hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

// PostgresStore persists the projection in driver_availability.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const availabilityColumns = `driver_id, status, driving_minutes_remaining, duty_minutes_remaining,
	cycle_minutes_remaining, latitude, longitude, location_updated_at, hos_recorded_at,
	available_from, available_until, max_distance_miles, endorsements, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id domain.DriverID) (*models.DriverAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM driver_availability WHERE driver_id = $1`
	a, err := scanAvailability(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Put(ctx context.Context, a *models.DriverAvailability) error {
	query := `
		INSERT INTO driver_availability (` + availabilityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (driver_id) DO UPDATE SET
			status = EXCLUDED.status,
			driving_minutes_remaining = EXCLUDED.driving_minutes_remaining,
			duty_minutes_remaining = EXCLUDED.duty_minutes_remaining,
			cycle_minutes_remaining = EXCLUDED.cycle_minutes_remaining,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			location_updated_at = EXCLUDED.location_updated_at,
			hos_recorded_at = EXCLUDED.hos_recorded_at,
			available_from = EXCLUDED.available_from,
			available_until = EXCLUDED.available_until,
			max_distance_miles = EXCLUDED.max_distance_miles,
			endorsements = EXCLUDED.endorsements,
			updated_at = EXCLUDED.updated_at
	`
	var lat, lon sql.NullFloat64
	if a.Location != nil {
		lat = sql.NullFloat64{Float64: a.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: a.Location.Longitude, Valid: true}
	}
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		a.DriverID.String(),
		string(a.Status),
		a.DrivingMinutesRemaining,
		a.DutyMinutesRemaining,
		a.CycleMinutesRemaining,
		lat,
		lon,
		nullTime(a.LocationUpdatedAt),
		nullTime(a.HOSRecordedAt),
		nullTime(a.AvailableFrom),
		nullTime(a.AvailableUntil),
		a.MaxDistanceMiles,
		pq.Array(a.Endorsements),
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.DriverID) error {
	if _, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM driver_availability WHERE driver_id = $1`, id.String()); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*models.DriverAvailability, error) {
	var statuses []string
	for _, st := range f.Statuses {
		statuses = append(statuses, string(st))
	}
	query := `
		SELECT ` + availabilityColumns + `
		FROM driver_availability
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		  AND driving_minutes_remaining >= $2
		ORDER BY driver_id
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, pq.Array(statuses), f.MinDrivingMinutes)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	out := []*models.DriverAvailability{}
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAvailability(row rowScanner) (*models.DriverAvailability, error) {
	var (
		a                         models.DriverAvailability
		id, status                string
		lat, lon                  sql.NullFloat64
		locAt, hosAt, from, until sql.NullTime
	)
	err := row.Scan(
		&id,
		&status,
		&a.DrivingMinutesRemaining,
		&a.DutyMinutesRemaining,
		&a.CycleMinutesRemaining,
		&lat,
		&lon,
		&locAt,
		&hosAt,
		&from,
		&until,
		&a.MaxDistanceMiles,
		pq.Array(&a.Endorsements),
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.DriverID = domain.DriverID(id)
	a.Status = hosmodels.Status(status)
	if lat.Valid && lon.Valid {
		a.Location = &geo.Point{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	a.LocationUpdatedAt = timePtr(locAt)
	a.HOSRecordedAt = timePtr(hosAt)
	a.AvailableFrom = timePtr(from)
	a.AvailableUntil = timePtr(until)
	a.UpdatedAt = a.UpdatedAt.UTC()
	if a.Endorsements == nil {
		a.Endorsements = []string{}
	}
	return &a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
