package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hoslink/internal/hos/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/geo"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

// PostgresRecordStore persists HOS history in hos_records. Calls join the unit of
// work transaction when one is in ctx.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

const recordColumns = `id, driver_id, status, status_since, driving_minutes_remaining, duty_minutes_remaining,
	cycle_minutes_remaining, latitude, longitude, vehicle_id, eld_log_id, recorded_at`

func (s *PostgresRecordStore) Append(ctx context.Context, rec *models.HOSRecord) error {
	query := `
		INSERT INTO hos_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		rec.ID,
		rec.DriverID.String(),
		string(rec.Status),
		rec.StatusSince,
		rec.DrivingMinutesRemaining,
		rec.DutyMinutesRemaining,
		rec.CycleMinutesRemaining,
		rec.Location.Latitude,
		rec.Location.Longitude,
		rec.VehicleID.String(),
		rec.EldLogID.String(),
		rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append hos record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Latest(ctx context.Context, driverID domain.DriverID) (*models.HOSRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM hos_records
		WHERE driver_id = $1
		ORDER BY recorded_at DESC, seq DESC
		LIMIT 1
	`
	rec, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, driverID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("latest hos record: %w", err)
	}
	return rec, nil
}

func (s *PostgresRecordStore) History(ctx context.Context, driverID domain.DriverID, from, to time.Time) ([]*models.HOSRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM hos_records
		WHERE driver_id = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at DESC, seq DESC
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, driverID.String(), from, to)
	if err != nil {
		return nil, fmt.Errorf("query hos history: %w", err)
	}
	defer rows.Close()

	out := []*models.HOSRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hos record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hos history: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.HOSRecord, error) {
	var (
		rec                 models.HOSRecord
		driverID, status    string
		lat, lon            float64
		vehicleID, eldLogID sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&driverID,
		&status,
		&rec.StatusSince,
		&rec.DrivingMinutesRemaining,
		&rec.DutyMinutesRemaining,
		&rec.CycleMinutesRemaining,
		&lat,
		&lon,
		&vehicleID,
		&eldLogID,
		&rec.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.DriverID = domain.DriverID(driverID)
	rec.Status = models.Status(status)
	rec.Location = geo.Point{Latitude: lat, Longitude: lon}
	rec.VehicleID = domain.VehicleID(vehicleID.String)
	rec.EldLogID = domain.EldLogID(eldLogID.String)
	rec.StatusSince = rec.StatusSince.UTC()
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}
