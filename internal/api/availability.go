package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quietude83/quietude/internal/models"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// AvailabilityHandler serves slot inventory. The same read methods back
// both surfaces: /availability/superuser (full CRUD, superuser-only)
// and /availability/user (read-only, any authenticated caller). The
// scope split is wired in the router, not here.
type AvailabilityHandler struct {
	slots  repository.AvailabilityRepository
	logger *zap.Logger
}

func NewAvailabilityHandler(slots repository.AvailabilityRepository, logger *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{slots: slots, logger: logger}
}

type availabilityRequest struct {
	Date    models.Date `json:"date" binding:"required"`
	Heure   string      `json:"heure" binding:"required"`
	IsTaken bool        `json:"is_taken"`
}

func (h *AvailabilityHandler) List(c *gin.Context) {
	slots, err := h.slots.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list availabilities", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list availabilities"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

func (h *AvailabilityHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	slot, err := h.slots.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get availability"})
		return
	}
	if slot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "availability not found"})
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	heure, err := models.ParseHourMinute(req.Heure)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slots.Create(c.Request.Context(), req.Date, heure, req.IsTaken)
	if err != nil {
		h.logger.Error("failed to create availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create availability"})
		return
	}
	c.JSON(http.StatusCreated, slot)
}

func (h *AvailabilityHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	heure, err := models.ParseHourMinute(req.Heure)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slots.Update(c.Request.Context(), &models.Availability{
		ID:      id,
		Date:    req.Date,
		Heure:   heure,
		IsTaken: req.IsTaken,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "availability not found"})
			return
		}
		h.logger.Error("failed to update availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update availability"})
		return
	}
	c.JSON(http.StatusOK, slot)
}

func (h *AvailabilityHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.slots.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "availability not found"})
			return
		}
		h.logger.Error("failed to delete availability", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete availability"})
		return
	}
	c.Status(http.StatusNoContent)
}
