package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/policy"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// RendezVousHandler serves bookings. Non-superusers only ever see and
// touch their own; the optional availability filter applies to reads,
// never to writes.
type RendezVousHandler struct {
	rdvs   repository.RendezVousRepository
	logger *zap.Logger
}

func NewRendezVousHandler(rdvs repository.RendezVousRepository, logger *zap.Logger) *RendezVousHandler {
	return &RendezVousHandler{rdvs: rdvs, logger: logger}
}

type createRendezVousRequest struct {
	// User is who the booking is for. Optional: it defaults to the
	// caller, and only a superuser may book on someone else's behalf.
	User         *uuid.UUID `json:"user"`
	Availability uuid.UUID  `json:"availability" binding:"required"`
	Degree       string     `json:"degree"`
}

type updateRendezVousRequest struct {
	Degree string `json:"degree" binding:"required"`
}

// Create handles POST /availability/rendezvous: the booking transition.
// The rendezvous row and the slot's taken flag commit together or not
// at all.
func (h *RendezVousHandler) Create(c *gin.Context) {
	if _, ok := requireScope(c, policy.ResourceRendezVous, policy.ActionWrite); !ok {
		return
	}

	var req createRendezVousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.CurrentUser(c)
	forUser := caller.ID
	if req.User != nil && *req.User != caller.ID {
		if !caller.IsSuperuser {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot book for another user"})
			return
		}
		forUser = *req.User
	}

	rdv, err := h.rdvs.Create(c.Request.Context(), forUser, req.Availability, req.Degree)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("failed to create rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rendezvous"})
		return
	}
	c.JSON(http.StatusCreated, rdv)
}

// List handles GET /availability/rendezvous?availability_id=...
func (h *RendezVousHandler) List(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceRendezVous, policy.ActionRead)
	if !ok {
		return
	}
	availabilityID, ok := queryUUID(c, "availability_id")
	if !ok {
		return
	}

	rdvs, err := h.rdvs.List(c.Request.Context(), ownerFilter(middleware.CurrentUser(c), scope), availabilityID)
	if err != nil {
		h.logger.Error("failed to list rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rendezvous"})
		return
	}
	c.JSON(http.StatusOK, rdvs)
}

func (h *RendezVousHandler) Get(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceRendezVous, policy.ActionRead)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	rdv, err := h.rdvs.GetByID(c.Request.Context(), id, ownerFilter(middleware.CurrentUser(c), scope))
	if err != nil {
		h.logger.Error("failed to get rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rendezvous"})
		return
	}
	if rdv == nil {
		// Same 404 whether the id is unknown or belongs to someone
		// else — ownership filtering never reveals what it hid.
		c.JSON(http.StatusNotFound, gin.H{"error": "rendezvous not found"})
		return
	}
	c.JSON(http.StatusOK, rdv)
}

func (h *RendezVousHandler) Update(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceRendezVous, policy.ActionWrite)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateRendezVousRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rdv, err := h.rdvs.UpdateDegree(c.Request.Context(), id, req.Degree, ownerFilter(middleware.CurrentUser(c), scope))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rendezvous not found"})
			return
		}
		h.logger.Error("failed to update rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rendezvous"})
		return
	}
	c.JSON(http.StatusOK, rdv)
}

// Delete removes a booking. The slot's taken flag stays set — see the
// store for the standing caveat.
func (h *RendezVousHandler) Delete(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceRendezVous, policy.ActionWrite)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.rdvs.Delete(c.Request.Context(), id, ownerFilter(middleware.CurrentUser(c), scope)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rendezvous not found"})
			return
		}
		h.logger.Error("failed to delete rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rendezvous"})
		return
	}
	c.Status(http.StatusNoContent)
}
