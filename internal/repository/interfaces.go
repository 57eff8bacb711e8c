package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/quietude83/quietude/internal/models"
)

// Sentinel errors the stores translate database outcomes into, so
// handlers map them to status codes without knowing pgx.
var (
	// ErrNotFound is returned by mutating methods when no row matched —
	// either the id is unknown or an ownership filter excluded it.
	// Read methods return nil, nil instead, like the rest of the
	// codebase.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is the unique-constraint violation on
	// users.email surfacing from a create or profile update.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Ownership scoping: methods that take an `owner *uuid.UUID` restrict
// the query to rows belonging to that user when non-nil, and see
// everything when nil. Handlers derive the pointer from the policy
// scope — ScopeOwn passes the caller's id, ScopeAll passes nil. The
// restriction lives in SQL, never in Go post-filtering.

// UserRepository handles accounts.
type UserRepository interface {
	// Create inserts a new account. The caller provides the bcrypt
	// hash; flags default per schema. Returns ErrDuplicateEmail when
	// the email is taken.
	Create(ctx context.Context, u *models.User) (*models.User, error)

	// CreateSuperuser is the privileged creation path: is_superuser,
	// is_staff and is_premium are set true as a bundle.
	CreateSuperuser(ctx context.Context, email, firstName, lastName, passwordHash string) (*models.User, error)

	// GetByID returns a user. Returns nil, nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail looks a user up by their credential key.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns every account, newest first.
	List(ctx context.Context) ([]models.User, error)

	// Update persists profile fields (email, names, telephone,
	// profile_image). Flags and password are not touched.
	Update(ctx context.Context, u *models.User) (*models.User, error)

	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Delete removes the user and, in the same transaction, every
	// rendezvous they own and each of those rendezvous' availability
	// rows. Deleting a user removes inventory, not just their claim
	// on it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AvailabilityRepository handles slot inventory.
type AvailabilityRepository interface {
	Create(ctx context.Context, date models.Date, heure models.HourMinute, isTaken bool) (*models.Availability, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error)

	// List returns all slots ordered by date then time.
	List(ctx context.Context) ([]models.Availability, error)

	Update(ctx context.Context, a *models.Availability) (*models.Availability, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RendezVousRepository handles bookings. Read results embed the user
// and availability rows.
type RendezVousRepository interface {
	// Create runs the booking transition: inserts the rendezvous and
	// sets the slot's is_taken flag in one transaction. Nothing
	// rejects a slot that is already taken.
	Create(ctx context.Context, userID, availabilityID uuid.UUID, degree string) (*models.RendezVous, error)

	GetByID(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.RendezVous, error)

	// List orders by slot date then time. availabilityID narrows to
	// one slot when non-nil.
	List(ctx context.Context, owner *uuid.UUID, availabilityID *uuid.UUID) ([]models.RendezVous, error)

	UpdateDegree(ctx context.Context, id uuid.UUID, degree string, owner *uuid.UUID) (*models.RendezVous, error)

	// Delete removes the booking. The slot's is_taken flag is left
	// untouched.
	Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error
}

// MessageRepository handles the per-booking message log. Ownership
// follows the rendezvous: a message is "owned" by the booking's user,
// not its sender.
type MessageRepository interface {
	Create(ctx context.Context, rdvID uuid.UUID, senderID uuid.UUID, content string, dateTime time.Time) (*models.Message, error)

	GetByID(ctx context.Context, id int64, owner *uuid.UUID) (*models.Message, error)

	// List orders by date_time. rdvID narrows to one booking when
	// non-nil.
	List(ctx context.Context, owner *uuid.UUID, rdvID *uuid.UUID) ([]models.Message, error)

	UpdateContent(ctx context.Context, id int64, content string, owner *uuid.UUID) (*models.Message, error)
	Delete(ctx context.Context, id int64, owner *uuid.UUID) error
}
