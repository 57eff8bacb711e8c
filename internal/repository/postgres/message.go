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

// Sender columns come from a LEFT JOIN: they are all NULL once the
// sending account has been deleted, so everything scans through
// pointers.
const messageSelect = `
	SELECT m.id, m.rdv_id, m.sender_id, m.content, m.date_time,
		u.id, u.email, u.first_name, u.last_name, u.telephone, u.profile_image,
		u.password_hash, u.is_premium, u.is_active, u.is_staff, u.is_superuser, u.created_at
	FROM messages m
	LEFT JOIN users u ON u.id = m.sender_id`

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		m        models.Message
		senderID *uuid.UUID

		sID                       *uuid.UUID
		sEmail, sFirst, sLast     *string
		sTelephone, sImage, sHash *string
		sPremium, sActive         *bool
		sStaff, sSuper            *bool
		sCreated                  *time.Time
	)
	err := row.Scan(
		&m.ID, &m.RdvID, &senderID, &m.Content, &m.DateTime,
		&sID, &sEmail, &sFirst, &sLast, &sTelephone, &sImage,
		&sHash, &sPremium, &sActive, &sStaff, &sSuper, &sCreated,
	)
	if err != nil {
		return nil, err
	}
	if senderID != nil {
		m.SenderID = *senderID
	}
	if sID != nil {
		m.Sender = &models.User{
			ID:           *sID,
			Email:        *sEmail,
			FirstName:    *sFirst,
			LastName:     *sLast,
			Telephone:    sTelephone,
			ProfileImage: *sImage,
			PasswordHash: *sHash,
			IsPremium:    *sPremium,
			IsActive:     *sActive,
			IsStaff:      *sStaff,
			IsSuperuser:  *sSuper,
			CreatedAt:    *sCreated,
		}
	}
	return &m, nil
}

func (s *MessageStore) Create(ctx context.Context, rdvID uuid.UUID, senderID uuid.UUID, content string, dateTime time.Time) (*models.Message, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (rdv_id, sender_id, content, date_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, rdvID, senderID, content, dateTime).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	msg, err := scanMessage(s.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get created message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) GetByID(ctx context.Context, id int64, owner *uuid.UUID) (*models.Message, error) {
	query := messageSelect + ` WHERE m.id = $1`
	args := []any{id}
	if owner != nil {
		query += ` AND m.rdv_id IN (SELECT id FROM rendezvous WHERE user_id = $2)`
		args = append(args, *owner)
	}

	msg, err := scanMessage(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) List(ctx context.Context, owner *uuid.UUID, rdvID *uuid.UUID) ([]models.Message, error) {
	query := messageSelect + ` WHERE true`
	args := []any{}
	if owner != nil {
		args = append(args, *owner)
		query += fmt.Sprintf(" AND m.rdv_id IN (SELECT id FROM rendezvous WHERE user_id = $%d)", len(args))
	}
	if rdvID != nil {
		args = append(args, *rdvID)
		query += fmt.Sprintf(" AND m.rdv_id = $%d", len(args))
	}
	query += ` ORDER BY m.date_time`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *MessageStore) UpdateContent(ctx context.Context, id int64, content string, owner *uuid.UUID) (*models.Message, error) {
	query := `UPDATE messages SET content = $2 WHERE id = $1`
	args := []any{id, content}
	if owner != nil {
		query += ` AND rdv_id IN (SELECT id FROM rendezvous WHERE user_id = $3)`
		args = append(args, *owner)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id, owner)
}

func (s *MessageStore) Delete(ctx context.Context, id int64, owner *uuid.UUID) error {
	query := `DELETE FROM messages WHERE id = $1`
	args := []any{id}
	if owner != nil {
		query += ` AND rdv_id IN (SELECT id FROM rendezvous WHERE user_id = $2)`
		args = append(args, *owner)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
