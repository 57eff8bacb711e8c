package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
	"github.com/quietude83/quietude/internal/ws"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memSessions is an in-memory auth.Sessions with the same
// one-token-per-user semantics as the Redis store.
type memSessions struct {
	byToken map[string]uuid.UUID
	byUser  map[uuid.UUID]string
}

func newMemSessions() *memSessions {
	return &memSessions{
		byToken: make(map[string]uuid.UUID),
		byUser:  make(map[uuid.UUID]string),
	}
}

func (s *memSessions) GetOrCreate(_ context.Context, userID uuid.UUID) (string, error) {
	if token, ok := s.byUser[userID]; ok {
		return token, nil
	}
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	s.byUser[userID] = token
	s.byToken[token] = userID
	return token, nil
}

func (s *memSessions) Resolve(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := s.byToken[token]
	if !ok {
		return uuid.Nil, auth.ErrUnknownToken
	}
	return id, nil
}

func (s *memSessions) Revoke(_ context.Context, userID uuid.UUID) error {
	if token, ok := s.byUser[userID]; ok {
		delete(s.byUser, userID)
		delete(s.byToken, token)
	}
	return nil
}

// memStore backs all four repositories with maps, reproducing the
// store semantics the handlers rely on: ownership filters, the booking
// transition, the user-deletion cascade.
type memStore struct {
	users     map[uuid.UUID]*models.User
	slots     map[uuid.UUID]*models.Availability
	rdvs      map[uuid.UUID]*models.RendezVous
	msgs      map[int64]*models.Message
	nextMsgID int64
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*models.User),
		slots: make(map[uuid.UUID]*models.Availability),
		rdvs:  make(map[uuid.UUID]*models.RendezVous),
		msgs:  make(map[int64]*models.Message),
	}
}

// ── UserRepository ──

func (m *memStore) Create(_ context.Context, u *models.User) (*models.User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}
	created := *u
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	if created.ProfileImage == "" {
		created.ProfileImage = "default_images/user.png"
	}
	m.users[created.ID] = &created
	return &created, nil
}

func (m *memStore) CreateSuperuser(ctx context.Context, email, firstName, lastName, passwordHash string) (*models.User, error) {
	return m.Create(ctx, &models.User{
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

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) List(_ context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *memStore) Update(_ context.Context, u *models.User) (*models.User, error) {
	existing, ok := m.users[u.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && other.Email == u.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}
	existing.Email = u.Email
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Telephone = u.Telephone
	existing.ProfileImage = u.ProfileImage
	copied := *existing
	return &copied, nil
}

func (m *memStore) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	for rdvID, rdv := range m.rdvs {
		if rdv.UserID == id {
			delete(m.slots, rdv.AvailabilityID)
			delete(m.rdvs, rdvID)
			for msgID, msg := range m.msgs {
				if msg.RdvID == rdvID {
					delete(m.msgs, msgID)
				}
			}
		}
	}
	for _, msg := range m.msgs {
		if msg.SenderID == id {
			msg.Sender = nil
			msg.SenderID = uuid.Nil
		}
	}
	delete(m.users, id)
	return nil
}

// ── AvailabilityRepository ──

func (m *memStore) CreateAvailability(_ context.Context, date models.Date, heure models.HourMinute, isTaken bool) (*models.Availability, error) {
	a := &models.Availability{ID: uuid.New(), Date: date, Heure: heure, IsTaken: isTaken}
	m.slots[a.ID] = a
	copied := *a
	return &copied, nil
}

func (m *memStore) GetAvailability(_ context.Context, id uuid.UUID) (*models.Availability, error) {
	a, ok := m.slots[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (m *memStore) ListAvailabilities(_ context.Context) ([]models.Availability, error) {
	slots := make([]models.Availability, 0, len(m.slots))
	for _, a := range m.slots {
		slots = append(slots, *a)
	}
	return slots, nil
}

func (m *memStore) UpdateAvailability(_ context.Context, a *models.Availability) (*models.Availability, error) {
	existing, ok := m.slots[a.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	*existing = *a
	copied := *existing
	return &copied, nil
}

func (m *memStore) DeleteAvailability(_ context.Context, id uuid.UUID) error {
	if _, ok := m.slots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.slots, id)
	return nil
}

// ── RendezVousRepository ──

func (m *memStore) embedRdv(rdv *models.RendezVous) *models.RendezVous {
	copied := *rdv
	if u, ok := m.users[rdv.UserID]; ok {
		userCopy := *u
		copied.User = &userCopy
	}
	if a, ok := m.slots[rdv.AvailabilityID]; ok {
		slotCopy := *a
		copied.Availability = &slotCopy
	}
	return &copied
}

func (m *memStore) CreateRendezVous(_ context.Context, userID, availabilityID uuid.UUID, degree string) (*models.RendezVous, error) {
	if _, ok := m.users[userID]; !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	slot, ok := m.slots[availabilityID]
	if !ok {
		return nil, fmt.Errorf("availability %s: %w", availabilityID, repository.ErrNotFound)
	}
	rdv := &models.RendezVous{
		ID:             uuid.New(),
		UserID:         userID,
		AvailabilityID: availabilityID,
		Degree:         degree,
	}
	m.rdvs[rdv.ID] = rdv
	slot.IsTaken = true
	return m.embedRdv(rdv), nil
}

func (m *memStore) GetRendezVous(_ context.Context, id uuid.UUID, owner *uuid.UUID) (*models.RendezVous, error) {
	rdv, ok := m.rdvs[id]
	if !ok || (owner != nil && rdv.UserID != *owner) {
		return nil, nil
	}
	return m.embedRdv(rdv), nil
}

func (m *memStore) ListRendezVous(_ context.Context, owner *uuid.UUID, availabilityID *uuid.UUID) ([]models.RendezVous, error) {
	rdvs := make([]models.RendezVous, 0)
	for _, rdv := range m.rdvs {
		if owner != nil && rdv.UserID != *owner {
			continue
		}
		if availabilityID != nil && rdv.AvailabilityID != *availabilityID {
			continue
		}
		rdvs = append(rdvs, *m.embedRdv(rdv))
	}
	return rdvs, nil
}

func (m *memStore) UpdateDegree(_ context.Context, id uuid.UUID, degree string, owner *uuid.UUID) (*models.RendezVous, error) {
	rdv, ok := m.rdvs[id]
	if !ok || (owner != nil && rdv.UserID != *owner) {
		return nil, repository.ErrNotFound
	}
	rdv.Degree = degree
	return m.embedRdv(rdv), nil
}

func (m *memStore) DeleteRendezVous(_ context.Context, id uuid.UUID, owner *uuid.UUID) error {
	rdv, ok := m.rdvs[id]
	if !ok || (owner != nil && rdv.UserID != *owner) {
		return repository.ErrNotFound
	}
	// The slot's is_taken flag is deliberately left alone.
	delete(m.rdvs, id)
	return nil
}

// ── MessageRepository ──

func (m *memStore) ownsMessage(msg *models.Message, owner *uuid.UUID) bool {
	if owner == nil {
		return true
	}
	rdv, ok := m.rdvs[msg.RdvID]
	return ok && rdv.UserID == *owner
}

func (m *memStore) embedMsg(msg *models.Message) *models.Message {
	copied := *msg
	if u, ok := m.users[msg.SenderID]; ok {
		userCopy := *u
		copied.Sender = &userCopy
	}
	return &copied
}

func (m *memStore) CreateMessage(_ context.Context, rdvID uuid.UUID, senderID uuid.UUID, content string, dateTime time.Time) (*models.Message, error) {
	m.nextMsgID++
	msg := &models.Message{
		ID:       m.nextMsgID,
		RdvID:    rdvID,
		SenderID: senderID,
		Content:  content,
		DateTime: dateTime,
	}
	m.msgs[msg.ID] = msg
	return m.embedMsg(msg), nil
}

func (m *memStore) GetMessage(_ context.Context, id int64, owner *uuid.UUID) (*models.Message, error) {
	msg, ok := m.msgs[id]
	if !ok || !m.ownsMessage(msg, owner) {
		return nil, nil
	}
	return m.embedMsg(msg), nil
}

func (m *memStore) ListMessages(_ context.Context, owner *uuid.UUID, rdvID *uuid.UUID) ([]models.Message, error) {
	msgs := make([]models.Message, 0)
	for _, msg := range m.msgs {
		if !m.ownsMessage(msg, owner) {
			continue
		}
		if rdvID != nil && msg.RdvID != *rdvID {
			continue
		}
		msgs = append(msgs, *m.embedMsg(msg))
	}
	return msgs, nil
}

func (m *memStore) UpdateContent(_ context.Context, id int64, content string, owner *uuid.UUID) (*models.Message, error) {
	msg, ok := m.msgs[id]
	if !ok || !m.ownsMessage(msg, owner) {
		return nil, repository.ErrNotFound
	}
	msg.Content = content
	return m.embedMsg(msg), nil
}

func (m *memStore) DeleteMessage(_ context.Context, id int64, owner *uuid.UUID) error {
	msg, ok := m.msgs[id]
	if !ok || !m.ownsMessage(msg, owner) {
		return repository.ErrNotFound
	}
	delete(m.msgs, id)
	return nil
}

// Adapters pinning one memStore to each repository interface, since the
// method sets overlap. memStore itself is the UserRepository.

type availabilityRepoAdapter struct{ *memStore }

func (a availabilityRepoAdapter) Create(ctx context.Context, date models.Date, heure models.HourMinute, isTaken bool) (*models.Availability, error) {
	return a.CreateAvailability(ctx, date, heure, isTaken)
}
func (a availabilityRepoAdapter) GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	return a.GetAvailability(ctx, id)
}
func (a availabilityRepoAdapter) List(ctx context.Context) ([]models.Availability, error) {
	return a.ListAvailabilities(ctx)
}
func (a availabilityRepoAdapter) Update(ctx context.Context, slot *models.Availability) (*models.Availability, error) {
	return a.UpdateAvailability(ctx, slot)
}
func (a availabilityRepoAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteAvailability(ctx, id)
}

type rdvRepoAdapter struct{ *memStore }

func (a rdvRepoAdapter) Create(ctx context.Context, userID, availabilityID uuid.UUID, degree string) (*models.RendezVous, error) {
	return a.CreateRendezVous(ctx, userID, availabilityID, degree)
}
func (a rdvRepoAdapter) GetByID(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*models.RendezVous, error) {
	return a.GetRendezVous(ctx, id, owner)
}
func (a rdvRepoAdapter) List(ctx context.Context, owner *uuid.UUID, availabilityID *uuid.UUID) ([]models.RendezVous, error) {
	return a.ListRendezVous(ctx, owner, availabilityID)
}
func (a rdvRepoAdapter) Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	return a.DeleteRendezVous(ctx, id, owner)
}

type messageRepoAdapter struct{ *memStore }

func (a messageRepoAdapter) Create(ctx context.Context, rdvID uuid.UUID, senderID uuid.UUID, content string, dateTime time.Time) (*models.Message, error) {
	return a.CreateMessage(ctx, rdvID, senderID, content, dateTime)
}
func (a messageRepoAdapter) GetByID(ctx context.Context, id int64, owner *uuid.UUID) (*models.Message, error) {
	return a.GetMessage(ctx, id, owner)
}
func (a messageRepoAdapter) List(ctx context.Context, owner *uuid.UUID, rdvID *uuid.UUID) ([]models.Message, error) {
	return a.ListMessages(ctx, owner, rdvID)
}
func (a messageRepoAdapter) Delete(ctx context.Context, id int64, owner *uuid.UUID) error {
	return a.DeleteMessage(ctx, id, owner)
}

// testEnv wires the full router over the in-memory store, so tests
// exercise routing, auth middleware, policy and handlers together.
type testEnv struct {
	store    *memStore
	sessions *memSessions
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	sessions := newMemSessions()
	logger := zap.NewNop()

	handlers := Handlers{
		Auth:         NewAuthHandler(store, sessions, logger),
		User:         NewUserHandler(store, sessions, logger),
		Availability: NewAvailabilityHandler(availabilityRepoAdapter{store}, logger),
		RendezVous:   NewRendezVousHandler(rdvRepoAdapter{store}, logger),
		Message:      NewMessageHandler(messageRepoAdapter{store}, rdvRepoAdapter{store}, ws.NewHub(logger), logger),
	}
	return &testEnv{
		store:    store,
		sessions: sessions,
		router:   NewRouter(handlers, sessions, store, logger),
	}
}

// addUser inserts an account with password "s3cret!" and returns it.
func (e *testEnv) addUser(t *testing.T, email string, superuser bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := e.store.Create(context.Background(), &models.User{
		Email:        email,
		FirstName:    "Jean",
		LastName:     "Dupont",
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      superuser,
		IsPremium:    superuser,
		IsSuperuser:  superuser,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// tokenFor opens a session for the user and returns its token.
func (e *testEnv) tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := e.sessions.GetOrCreate(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return token
}

// addSlot inserts an availability directly into the store.
func (e *testEnv) addSlot(t *testing.T, day string, heure string) *models.Availability {
	t.Helper()
	parsed, err := time.Parse(models.DateLayout, day)
	if err != nil {
		t.Fatalf("parse date %q: %v", day, err)
	}
	slot, err := e.store.CreateAvailability(context.Background(),
		models.NewDate(parsed), models.HourMinute(heure), false)
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return slot
}

// do performs a request against the router. A non-empty token goes out
// as the Authorization header; body (if any) is marshaled to JSON.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// doRawAuth sends a request with an arbitrary Authorization header,
// for exercising the middleware's parsing.
func (e *testEnv) doRawAuth(t *testing.T, method, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
