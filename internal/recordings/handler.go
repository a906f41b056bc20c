package recordings

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/queue"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/response"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/storage"
)

// MaxArtifactSize caps uploaded recording artifacts (200MB).
const MaxArtifactSize = 200 * 1024 * 1024

// SessionStore is the session lookup the handler needs.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// UploadQueue hands accepted artifacts to the background worker.
type UploadQueue interface {
	EnqueueRecordingUpload(ctx context.Context, payload queue.RecordingUploadPayload) error
}

// Handler accepts client-recorded call artifacts. The upload is spooled to
// disk and handed to the worker queue; the worker pushes it to S3 and sets
// the session's recording_url. Download goes through a presigned URL.
type Handler struct {
	sessionRepo SessionStore
	s3          *storage.S3
	queue       UploadQueue
	spoolDir    string
	logger      *zap.Logger
}

// NewHandler creates a recordings handler. spoolDir empty means os.TempDir().
func NewHandler(sessionRepo SessionStore, s3 *storage.S3, q UploadQueue, spoolDir string, logger *zap.Logger) *Handler {
	if spoolDir == "" {
		spoolDir = os.TempDir()
	}
	return &Handler{sessionRepo: sessionRepo, s3: s3, queue: q, spoolDir: spoolDir, logger: logger}
}

// Upload handles POST /sessions/:id/recording (multipart field "file").
func (h *Handler) Upload(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if sess == nil {
		response.NotFound(c, "session not found")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if file.Size > MaxArtifactSize {
		response.BadRequest(c, "artifact too large")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/webm"
	}

	dir := filepath.Join(h.spoolDir, "recordings")
	if err := os.MkdirAll(dir, 0750); err != nil {
		response.Internal(c, "failed to spool artifact")
		return
	}
	spoolPath := filepath.Join(dir, sessionID.String()+extensionFor(contentType))
	if err := c.SaveUploadedFile(file, spoolPath); err != nil {
		h.logger.Error("spool recording failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to spool artifact")
		return
	}

	payload := queue.RecordingUploadPayload{
		SessionID:      sessionID,
		ConsultationID: sess.ConsultationID,
		FilePath:       spoolPath,
		ContentType:    contentType,
	}
	if err := h.queue.EnqueueRecordingUpload(c.Request.Context(), payload); err != nil {
		_ = os.Remove(spoolPath)
		h.logger.Error("enqueue recording upload failed", zap.Error(err))
		response.Internal(c, "failed to queue upload")
		return
	}

	h.logger.Info("recording artifact accepted",
		zap.String("session_id", sessionID.String()),
		zap.Int64("size", file.Size),
	)
	response.OK(c, gin.H{"session_id": sessionID, "status": "queued"})
}

// DownloadURL handles GET /sessions/:id/recording-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if sess == nil || sess.RecordingURL == "" {
		response.NotFound(c, "no recording for session")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "storage not configured")
		return
	}

	key := storage.KeyFromObjectURL(sess.RecordingURL)
	if key == "" {
		response.NotFound(c, "no recording for session")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.RecordingsBucket(), key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign recording download failed", zap.Error(err))
		response.Internal(c, "failed to generate download url")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in": h.s3.PresignExpire().String()})
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/webm"):
		return ".webm"
	case strings.HasPrefix(contentType, "video/mp4"):
		return ".mp4"
	default:
		return ".bin"
	}
}
