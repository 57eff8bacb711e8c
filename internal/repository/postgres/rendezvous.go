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

// Every read joins the user and availability rows so API responses can
// embed the full objects instead of bare ids.
const rendezvousSelect = `
	SELECT r.id, r.user_id, r.availability_id, r.degree,
		u.id, u.email, u.first_name, u.last_name, u.telephone, u.profile_image,
		u.password_hash, u.is_premium, u.is_active, u.is_staff, u.is_superuser, u.created_at,
		a.id, a.slot_date, to_char(a.slot_time, 'HH24:MI'), a.is_taken
	FROM rendezvous r
	JOIN users u ON u.id = r.user_id
	JOIN availabilities a ON a.id = r.availability_id`

type RendezVousStore struct {
	pool *pgxpool.Pool
}

func NewRendezVousStore(pool *pgxpool.Pool) *RendezVousStore {
	return &RendezVousStore{pool: pool}
}

func scanRendezVous(row pgx.Row) (*models.RendezVous, error) {
	var (
		r     models.RendezVous
		u     models.User
		a     models.Availability
		date  time.Time
		heure string
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.AvailabilityID, &r.Degree,
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Telephone, &u.ProfileImage,
		&u.PasswordHash, &u.IsPremium, &u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt,
		&a.ID, &date, &heure, &a.IsTaken,
	)
	if err != nil {
		return nil, err
	}
	a.Date = models.NewDate(date)
	a.Heure = models.HourMinute(heure)
	r.User = &u
	r.Availability = &a
	return &r, nil
}

// Create runs the booking transition as a single transaction: validate
// both references, insert the rendezvous, set the slot's taken flag.
// Either all of it commits or none of it is visible.
//
// An already-taken slot is not rejected: a second booking for the same
// slot goes through and re-sets a flag that is already true.
func (s *RendezVousStore) Create(ctx context.Context, userID, availabilityID uuid.UUID, degree string) (*models.RendezVous, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM availabilities WHERE id = $1)`, availabilityID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("availability %s: %w", availabilityID, repository.ErrNotFound)
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO rendezvous (user_id, availability_id, degree)
		VALUES ($1, $2, $3)
		RETURNING id`, userID, availabilityID, degree).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert rendezvous: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE availabilities SET is_taken = true WHERE id = $1`, availabilityID)
	if err != nil {
		return nil, fmt.Errorf("mark availability taken: %w", err)
	}

	rdv, err := scanRendezVous(tx.QueryRow(ctx, rendezvousSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get created rendezvous: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return rdv, nil
}

func (s *RendezVousStore) GetByID(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.RendezVous, error) {
	query := rendezvousSelect + ` WHERE r.id = $1`
	args := []any{id}
	if owner != nil {
		query += ` AND r.user_id = $2`
		args = append(args, *owner)
	}

	rdv, err := scanRendezVous(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rendezvous: %w", err)
	}
	return rdv, nil
}

func (s *RendezVousStore) List(ctx context.Context, owner *uuid.UUID, availabilityID *uuid.UUID) ([]models.RendezVous, error) {
	query := rendezvousSelect + ` WHERE true`
	args := []any{}
	if owner != nil {
		args = append(args, *owner)
		query += fmt.Sprintf(" AND r.user_id = $%d", len(args))
	}
	if availabilityID != nil {
		args = append(args, *availabilityID)
		query += fmt.Sprintf(" AND r.availability_id = $%d", len(args))
	}
	query += ` ORDER BY a.slot_date, a.slot_time`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rendezvous: %w", err)
	}
	defer rows.Close()

	rdvs := make([]models.RendezVous, 0)
	for rows.Next() {
		rdv, err := scanRendezVous(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rendezvous: %w", err)
		}
		rdvs = append(rdvs, *rdv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rendezvous: %w", err)
	}
	return rdvs, nil
}

func (s *RendezVousStore) UpdateDegree(ctx context.Context, id uuid.UUID, degree string, owner *uuid.UUID) (*models.RendezVous, error) {
	query := `UPDATE rendezvous SET degree = $2 WHERE id = $1`
	args := []any{id, degree}
	if owner != nil {
		query += ` AND user_id = $3`
		args = append(args, *owner)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update rendezvous: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id, owner)
}

// Delete removes the booking only. The availability keeps is_taken set:
// nothing ever clears the flag once a slot has been booked.
// TODO: slots booked once can never be re-offered; needs a product
// decision before changing the flag semantics.
func (s *RendezVousStore) Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	query := `DELETE FROM rendezvous WHERE id = $1`
	args := []any{id}
	if owner != nil {
		query += ` AND user_id = $2`
		args = append(args, *owner)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete rendezvous: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
