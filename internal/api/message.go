package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/policy"
	"github.com/quietude83/quietude/internal/repository"
	"github.com/quietude83/quietude/internal/ws"
	"go.uber.org/zap"
)

// MessageHandler serves the per-booking message log, plus the live
// stream. A message belongs to a rendezvous; visibility follows the
// rendezvous' owner, not the message's sender.
type MessageHandler struct {
	messages repository.MessageRepository
	rdvs     repository.RendezVousRepository
	hub      *ws.Hub
	logger   *zap.Logger
}

func NewMessageHandler(
	messages repository.MessageRepository,
	rdvs repository.RendezVousRepository,
	hub *ws.Hub,
	logger *zap.Logger,
) *MessageHandler {
	return &MessageHandler{messages: messages, rdvs: rdvs, hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth already ran; browser clients connect from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type createMessageRequest struct {
	Rdv     uuid.UUID `json:"rdv" binding:"required"`
	Content string    `json:"content" binding:"required"`
	// DateTime defaults to the server clock when omitted.
	DateTime *time.Time `json:"date_time"`
}

type updateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// messageID parses the numeric message id path parameter.
func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

// visibleRdv loads a rendezvous under the caller's scope; a rendezvous
// the caller can't see yields a 404 exactly like a nonexistent one.
func (h *MessageHandler) visibleRdv(c *gin.Context, rdvID uuid.UUID, scope policy.Scope) bool {
	rdv, err := h.rdvs.GetByID(c.Request.Context(), rdvID, ownerFilter(middleware.CurrentUser(c), scope))
	if err != nil {
		h.logger.Error("failed to get rendezvous", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rendezvous"})
		return false
	}
	if rdv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rendezvous not found"})
		return false
	}
	return true
}

// Create handles POST /availability/messages. The new message also goes
// out on the rendezvous' live stream.
func (h *MessageHandler) Create(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionWrite)
	if !ok {
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.visibleRdv(c, req.Rdv, scope) {
		return
	}

	dateTime := time.Now()
	if req.DateTime != nil {
		dateTime = *req.DateTime
	}

	caller := middleware.CurrentUser(c)
	msg, err := h.messages.Create(c.Request.Context(), req.Rdv, caller.ID, req.Content, dateTime)
	if err != nil {
		h.logger.Error("failed to create message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create message"})
		return
	}

	h.hub.Publish(msg.RdvID, msg)
	c.JSON(http.StatusCreated, msg)
}

// List handles GET /availability/messages?rdv_id=...
func (h *MessageHandler) List(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionRead)
	if !ok {
		return
	}
	rdvID, ok := queryUUID(c, "rdv_id")
	if !ok {
		return
	}

	messages, err := h.messages.List(c.Request.Context(), ownerFilter(middleware.CurrentUser(c), scope), rdvID)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) Get(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionRead)
	if !ok {
		return
	}
	id, ok := messageID(c)
	if !ok {
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), id, ownerFilter(middleware.CurrentUser(c), scope))
	if err != nil {
		h.logger.Error("failed to get message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get message"})
		return
	}
	if msg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Update(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionWrite)
	if !ok {
		return
	}
	id, ok := messageID(c)
	if !ok {
		return
	}

	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.UpdateContent(c.Request.Context(), id, req.Content, ownerFilter(middleware.CurrentUser(c), scope))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("failed to update message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update message"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionWrite)
	if !ok {
		return
	}
	id, ok := messageID(c)
	if !ok {
		return
	}

	if err := h.messages.Delete(c.Request.Context(), id, ownerFilter(middleware.CurrentUser(c), scope)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.logger.Error("failed to delete message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream handles GET /availability/messages/stream?rdv_id=...: upgrades
// to a websocket and pushes each new message on the rendezvous as it is
// created.
func (h *MessageHandler) Stream(c *gin.Context) {
	scope, ok := requireScope(c, policy.ResourceMessage, policy.ActionRead)
	if !ok {
		return
	}

	rdvID, ok := queryUUID(c, "rdv_id")
	if !ok {
		return
	}
	if rdvID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rdv_id is required"})
		return
	}
	if !h.visibleRdv(c, *rdvID, scope) {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Stream(conn, *rdvID)
}
