package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnknownToken means the presented token matches no live session.
var ErrUnknownToken = errors.New("unknown session token")

// Sessions is the session-token contract: one live token per user,
// stable across logins, gone after Revoke. SessionStore is the Redis
// implementation; tests substitute an in-memory one.
type Sessions interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (string, error)
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
	Revoke(ctx context.Context, userID uuid.UUID) error
}

// SessionStore keeps one live token per user in Redis, with no TTL:
// a token lives until logout deletes it. Two keys per session so both
// directions are O(1):
//
//	session:token:<token> → user id   (auth middleware lookup)
//	session:user:<id>     → token     (login re-issue, logout)
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

func tokenKey(token string) string { return "session:token:" + token }
func userKey(id uuid.UUID) string  { return "session:user:" + id.String() }

// GetOrCreate returns the user's current token, creating one if none
// exists. Re-login therefore hands back the same token instead of
// rotating it.
func (s *SessionStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get session: %w", err)
	}

	token, err = NewToken()
	if err != nil {
		return "", err
	}

	// SetNX guards the race between two concurrent first logins: only
	// one token wins, the loser reads it back.
	created, err := s.rdb.SetNX(ctx, userKey(userID), token, 0).Result()
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !created {
		token, err = s.rdb.Get(ctx, userKey(userID)).Result()
		if err != nil {
			return "", fmt.Errorf("get session: %w", err)
		}
		return token, nil
	}

	if err := s.rdb.Set(ctx, tokenKey(token), userID.String(), 0).Err(); err != nil {
		return "", fmt.Errorf("store session token: %w", err)
	}
	return token, nil
}

// Resolve maps a presented token to the user it was issued for.
func (s *SessionStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := s.rdb.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrUnknownToken
		}
		return uuid.Nil, fmt.Errorf("resolve token: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse session user id: %w", err)
	}
	return id, nil
}

// Revoke deletes the user's session, if any. Logging out twice is fine.
func (s *SessionStore) Revoke(ctx context.Context, userID uuid.UUID) error {
	token, err := s.rdb.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("get session: %w", err)
	}
	if err := s.rdb.Del(ctx, userKey(userID), tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
