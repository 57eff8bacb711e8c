package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// AuthHandler covers account creation and the session lifecycle.
// Signup and login are the only public endpoints; logout runs behind
// the auth middleware.
type AuthHandler struct {
	users    repository.UserRepository
	sessions auth.Sessions
	logger   *zap.Logger
}

func NewAuthHandler(users repository.UserRepository, sessions auth.Sessions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

type signupRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	FirstName string  `json:"first_name" binding:"required"`
	LastName  string  `json:"last_name" binding:"required"`
	Telephone *string `json:"telephone"`
	Password  string  `json:"password" binding:"required,min=5"`
}

// signupResponse mirrors what account creation exposes: no flags, no
// timestamps, and certainly no hash.
type signupResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Telephone *string   `json:"telephone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Signup handles POST /user/create. Validation failures reject before
// anything is persisted; a duplicate email is a 409 and leaves the
// original account untouched.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Telephone:    req.Telephone,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	c.JSON(http.StatusCreated, signupResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Telephone: user.Telephone,
	})
}

// Login handles POST /user/login. On success it returns the caller's
// session token — the same one every time, created on first login and
// alive until logout.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to find user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// One generic rejection for unknown email, wrong password and
	// deactivated account — nothing here tells an attacker which
	// emails exist.
	if user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.sessions.GetOrCreate(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

// Logout handles POST /user/logout: the caller's token is deleted and
// stops authenticating immediately.
func (h *AuthHandler) Logout(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.sessions.Revoke(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("failed to revoke session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.Status(http.StatusOK)
}
