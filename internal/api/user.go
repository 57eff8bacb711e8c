package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// UserHandler covers the directory (superuser) and the caller's own
// profile. The /me routes never take an id — they always resolve to
// the authenticated caller.
type UserHandler struct {
	users    repository.UserRepository
	sessions auth.Sessions
	logger   *zap.Logger
}

func NewUserHandler(users repository.UserRepository, sessions auth.Sessions, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, sessions: sessions, logger: logger}
}

// List handles GET /user/list. The directory is superuser-only; the
// route group's scope middleware enforces that.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetMe handles GET /user/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

type updateMeRequest struct {
	Email        *string `json:"email" binding:"omitempty,email"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Telephone    *string `json:"telephone"`
	ProfileImage *string `json:"profile_image"`
}

// UpdateMe handles PUT/PATCH /user/me. Only profile fields are
// writable; the role and premium flags are not reachable from here.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := *middleware.CurrentUser(c)
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Telephone != nil {
		user.Telephone = req.Telephone
	}
	if req.ProfileImage != nil {
		user.ProfileImage = *req.ProfileImage
	}

	updated, err := h.users.Update(c.Request.Context(), &user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error("failed to update user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMe handles DELETE /user/me: account self-deletion, with the
// same cascade as a superuser delete, plus session revocation.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.users.Delete(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete account"})
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), user.ID); err != nil {
		// The account is gone; a dangling session no longer
		// authenticates. Log and move on.
		h.logger.Warn("failed to revoke session of deleted user", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

type passwordUpdateRequest struct {
	Password string `json:"password" binding:"required,min=5"`
}

// UpdatePassword handles PUT /user/update-password for the caller.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req passwordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.users.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		h.logger.Error("failed to update password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update password"})
		return
	}
	c.Status(http.StatusOK)
}

// Delete handles DELETE /user/delete/:id (superuser, via the group's
// scope middleware). Removes the user, their bookings and the booked
// slots in one transaction.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if err := h.sessions.Revoke(c.Request.Context(), id); err != nil {
		h.logger.Warn("failed to revoke session of deleted user", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}
