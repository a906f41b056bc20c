package consultations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/response"
)

// Handler serves the read-only consultation endpoints the call clients use
// to detect completed consultations and resolve the counterpart identity.
type Handler struct {
	repo *Repository
}

// NewHandler creates a consultations handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Get handles GET /consultations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid consultation id")
		return
	}
	consult, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load consultation")
		return
	}
	if consult == nil {
		response.NotFound(c, "consultation not found")
		return
	}
	response.OK(c, consult)
}

// ListPrescriptions handles GET /consultations/:id/prescriptions (surfaced
// on the ended-call view).
func (h *Handler) ListPrescriptions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid consultation id")
		return
	}
	list, err := h.repo.ListPrescriptions(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to list prescriptions")
		return
	}
	response.OK(c, gin.H{"prescriptions": list})
}
