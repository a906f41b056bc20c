package chat

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/middleware"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/response"
)

// SendRequest is the body for POST /sessions/:id/messages.
type SendRequest struct {
	Message string `json:"message" binding:"required"`
}

// Handler handles session chat HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// ListBySession handles GET /sessions/:id/messages. Clients poll this and
// replace their local list wholesale, so it always returns the full list.
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list messages")
		return
	}
	response.OK(c, gin.H{"messages": list})
}

// Send handles POST /sessions/:id/messages.
func (h *Handler) Send(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	senderID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.repo.Create(c.Request.Context(), sessionID, senderID, req.Message, models.MessageTypeText)
	if err != nil {
		h.logger.Error("send message failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to send message")
		return
	}
	response.Created(c, m)
}
