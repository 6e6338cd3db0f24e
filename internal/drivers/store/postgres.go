package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"hoslink/internal/drivers/models"
	"hoslink/pkg/domain"
	"hoslink/pkg/platform/sentinel"
	txcontext "hoslink/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists drivers in the drivers table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Driver) error {
	query := `
		INSERT INTO drivers (id, name, endorsements, max_distance_miles, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		d.ID.String(), d.Name, pq.Array(d.Endorsements), d.MaxDistanceMiles, d.Score, d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.DriverID) (*models.Driver, error) {
	query := `
		SELECT id, name, endorsements, max_distance_miles, score, created_at, deleted_at
		FROM drivers
		WHERE id = $1
	`
	var (
		d         models.Driver
		rawID     string
		deletedAt sql.NullTime
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id.String()).Scan(
		&rawID, &d.Name, pq.Array(&d.Endorsements), &d.MaxDistanceMiles, &d.Score, &d.CreatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find driver: %w", err)
	}
	d.ID = domain.DriverID(rawID)
	d.CreatedAt = d.CreatedAt.UTC()
	if d.Endorsements == nil {
		d.Endorsements = []string{}
	}
	if deletedAt.Valid {
		at := deletedAt.Time.UTC()
		d.DeletedAt = &at
	}
	return &d, nil
}

func (s *PostgresStore) UpdateScore(ctx context.Context, id domain.DriverID, score float64) error {
	return s.execActive(ctx, "update driver score",
		`UPDATE drivers SET score = $2 WHERE id = $1 AND deleted_at IS NULL`, id.String(), score)
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id domain.DriverID, at time.Time) error {
	return s.execActive(ctx, "delete driver",
		`UPDATE drivers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id.String(), at)
}

func (s *PostgresStore) execActive(ctx context.Context, op, query string, args ...any) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
