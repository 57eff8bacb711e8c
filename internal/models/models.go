package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account identified by email. Email is the sole credential
// key and is globally unique.
//
// PasswordHash never leaves the server: json:"-" keeps it out of every
// response no matter which handler serializes the struct.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Telephone    *string   `json:"telephone"`
	ProfileImage string    `json:"profile_image"`
	PasswordHash string    `json:"-"`
	IsPremium    bool      `json:"is_premium"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
}

// Availability is a bookable slot: one date, one time of day, and a
// taken flag. The flag is set when a rendezvous is created for the slot
// and is never cleared afterwards.
type Availability struct {
	ID      uuid.UUID  `json:"id"`
	Date    Date       `json:"date"`
	Heure   HourMinute `json:"heure"`
	IsTaken bool       `json:"is_taken"`
}

// RendezVous links one user to one availability, with a free-text
// degree tag ("terminale S", "3ème"...).
//
// User and Availability carry the embedded rows for API responses;
// list/get queries join them in. They are nil only on write paths that
// never serialize the struct.
type RendezVous struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"-"`
	AvailabilityID uuid.UUID `json:"-"`
	Degree         string    `json:"degree"`

	User         *User         `json:"user"`
	Availability *Availability `json:"availability"`
}

// Message is a text entry on a rendezvous. Sender goes nil when the
// sending account is deleted; the message itself survives.
type Message struct {
	ID       int64     `json:"id"`
	RdvID    uuid.UUID `json:"rdv"`
	SenderID uuid.UUID `json:"-"`
	Content  string    `json:"content"`
	DateTime time.Time `json:"date_time"`

	Sender *User `json:"sender"`
}
