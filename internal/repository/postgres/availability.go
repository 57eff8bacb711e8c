package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
)

// Slot times are selected as to_char(..., 'HH24:MI') so they arrive as
// plain text and scan straight into HourMinute.
const availabilityColumns = `id, slot_date, to_char(slot_time, 'HH24:MI'), is_taken`

type AvailabilityStore struct {
	pool *pgxpool.Pool
}

func NewAvailabilityStore(pool *pgxpool.Pool) *AvailabilityStore {
	return &AvailabilityStore{pool: pool}
}

func scanAvailability(row pgx.Row) (*models.Availability, error) {
	var (
		a     models.Availability
		date  time.Time
		heure string
	)
	if err := row.Scan(&a.ID, &date, &heure, &a.IsTaken); err != nil {
		return nil, err
	}
	a.Date = models.NewDate(date)
	a.Heure = models.HourMinute(heure)
	return &a, nil
}

func (s *AvailabilityStore) Create(ctx context.Context, date models.Date, heure models.HourMinute, isTaken bool) (*models.Availability, error) {
	query := `
		INSERT INTO availabilities (slot_date, slot_time, is_taken)
		VALUES ($1, $2::time, $3)
		RETURNING ` + availabilityColumns

	a, err := scanAvailability(s.pool.QueryRow(ctx, query, date.Time, string(heure), isTaken))
	if err != nil {
		return nil, fmt.Errorf("insert availability: %w", err)
	}
	return a, nil
}

func (s *AvailabilityStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE id = $1`

	a, err := scanAvailability(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability: %w", err)
	}
	return a, nil
}

func (s *AvailabilityStore) List(ctx context.Context) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities ORDER BY slot_date, slot_time`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	slots := make([]models.Availability, 0)
	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		slots = append(slots, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availabilities: %w", err)
	}
	return slots, nil
}

func (s *AvailabilityStore) Update(ctx context.Context, a *models.Availability) (*models.Availability, error) {
	query := `
		UPDATE availabilities
		SET slot_date = $2, slot_time = $3::time, is_taken = $4
		WHERE id = $1
		RETURNING ` + availabilityColumns

	updated, err := scanAvailability(s.pool.QueryRow(ctx, query, a.ID, a.Date.Time, string(a.Heure), a.IsTaken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update availability: %w", err)
	}
	return updated, nil
}

func (s *AvailabilityStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
