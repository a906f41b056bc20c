package sessions

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/middleware"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/response"
)

// CreateRequest is the body for POST /consultations/:id/session.
type CreateRequest struct {
	ParticipantUserID uuid.UUID `json:"participant_user_id" binding:"required"`
}

// Handler handles call session HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// GetByConsultation handles GET /consultations/:id/session.
// 404 means no live session exists; clients create one then.
func (h *Handler) GetByConsultation(c *gin.Context) {
	consultationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid consultation id")
		return
	}
	s, err := h.repo.GetLatestNonEnded(c.Request.Context(), consultationID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.NotFound(c, "no live session for consultation")
		return
	}
	response.OK(c, s)
}

// Create handles POST /consultations/:id/session. Creation is idempotent:
// when a live session already exists (either party may enter first, or both
// at once) the existing record is returned, so concurrent creation by both
// parties converges on one session id.
func (h *Handler) Create(c *gin.Context) {
	consultationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid consultation id")
		return
	}
	hostUserID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	existing, err := h.repo.GetLatestNonEnded(c.Request.Context(), consultationID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if existing != nil {
		response.OK(c, existing)
		return
	}

	s, err := h.repo.Create(c.Request.Context(), consultationID, newRoomID(), hostUserID, req.ParticipantUserID)
	if err != nil {
		// Unique violation: the other party won the create race. Re-fetch
		// and hand back the authoritative record.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if winner, ferr := h.repo.GetLatestNonEnded(c.Request.Context(), consultationID); ferr == nil && winner != nil {
				response.OK(c, winner)
				return
			}
		}
		h.logger.Error("create session failed", zap.Error(err), zap.String("consultation_id", consultationID.String()))
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, s)
}

// Start handles POST /sessions/:id/start (waiting -> active). A repeat start
// on an already-active session returns the current record rather than an
// error; ended sessions conflict.
func (h *Handler) Start(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.Start(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to start session")
		return
	}
	if s == nil {
		current, err := h.repo.GetByID(c.Request.Context(), id)
		if err != nil || current == nil {
			response.NotFound(c, "session not found")
			return
		}
		if current.Terminal() {
			response.Conflict(c, "session already ended")
			return
		}
		s = current
	}
	response.OK(c, s)
}

// End handles POST /sessions/:id/end. Idempotent: ending an already-ended
// session returns the terminal record.
func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.End(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to end session")
		return
	}
	if s == nil {
		current, err := h.repo.GetByID(c.Request.Context(), id)
		if err != nil || current == nil {
			response.NotFound(c, "session not found")
			return
		}
		s = current
	}
	response.OK(c, s)
}

// newRoomID builds the opaque room label shown to users.
func newRoomID() string {
	return fmt.Sprintf("consult-%06d", rand.Intn(1000000))
}
