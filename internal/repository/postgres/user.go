package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
)

const userColumns = `id, email, first_name, last_name, telephone, profile_image,
	password_hash, is_premium, is_active, is_staff, is_superuser, created_at`

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.Telephone,
		&u.ProfileImage,
		&u.PasswordHash,
		&u.IsPremium,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (email, first_name, last_name, telephone, password_hash,
			is_premium, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + userColumns

	created, err := scanUser(s.pool.QueryRow(ctx, query,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Telephone,
		u.PasswordHash,
		u.IsPremium,
		u.IsActive,
		u.IsStaff,
		u.IsSuperuser,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// CreateSuperuser is the privileged creation path. The three flags come
// as a bundle: there is no way to get is_staff or is_premium through
// this path without is_superuser.
func (s *UserStore) CreateSuperuser(ctx context.Context, email, firstName, lastName, passwordHash string) (*models.User, error) {
	return s.Create(ctx, &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsPremium:    true,
		IsStaff:      true,
		IsSuperuser:  true,
	})
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u, err := scanUser(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, telephone = $5, profile_image = $6
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(s.pool.QueryRow(ctx, query,
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Telephone,
		u.ProfileImage,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the user together with their bookings and the booked
// slots, as one explicit transaction so the ordering is visible:
//
//  1. delete the availability rows referenced by the user's rendezvous
//  2. delete the user (rendezvous follow by FK cascade, messages
//     follow the rendezvous, other messages keep a null sender)
//
// Slot inventory booked by the user is destroyed, not freed.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM availabilities
		WHERE id IN (SELECT availability_id FROM rendezvous WHERE user_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("delete booked availabilities: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
