package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/sessions"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/queue"
	"github.com/haikarthick/OnlineDoctorConsultation-sub002/pkg/storage"
)

// RecordingProcessor consumes recording upload jobs: it pushes spooled
// artifacts to S3 and writes the resulting object URL back onto the session.
type RecordingProcessor struct {
	queue       *queue.Queue
	s3          *storage.S3
	sessionRepo *sessions.Repository
	logger      *zap.Logger
}

// NewRecordingProcessor creates a recording upload worker.
func NewRecordingProcessor(q *queue.Queue, s3 *storage.S3, sessionRepo *sessions.Repository, logger *zap.Logger) *RecordingProcessor {
	return &RecordingProcessor{queue: q, s3: s3, sessionRepo: sessionRepo, logger: logger}
}

// Run blocks consuming jobs until ctx is cancelled.
func (p *RecordingProcessor) Run(ctx context.Context) {
	p.logger.Info("recording worker started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("recording worker stopped")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("recording worker stopped")
				return
			}
			p.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := p.process(ctx, job); err != nil {
			p.logger.Error("job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Attempt),
				zap.Error(err),
			)
			time.Sleep(queue.RetryBackoff)
			if rerr := p.queue.Retry(ctx, job); rerr != nil {
				p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(rerr))
			}
		}
	}
}

func (p *RecordingProcessor) process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRecordingUpload {
		p.logger.Warn("unknown job type, dropping", zap.String("type", string(job.Type)))
		return nil
	}

	var payload queue.RecordingUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		p.logger.Warn("invalid job payload, dropping", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	f, err := os.Open(payload.FilePath)
	if err != nil {
		return fmt.Errorf("open spool file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat spool file: %w", err)
	}

	key := storage.RecordingKey(
		payload.ConsultationID.String(),
		payload.SessionID.String(),
		filepath.Ext(payload.FilePath),
	)

	url, err := p.s3.Upload(ctx, p.s3.RecordingsBucket(), key, payload.ContentType, f, info.Size())
	if err != nil {
		return fmt.Errorf("upload recording: %w", err)
	}

	if err := p.sessionRepo.UpdateRecordingURL(ctx, payload.SessionID, url); err != nil {
		return fmt.Errorf("update session recording url: %w", err)
	}

	if err := os.Remove(payload.FilePath); err != nil {
		p.logger.Warn("spool cleanup failed", zap.String("path", payload.FilePath), zap.Error(err))
	}

	p.logger.Info("recording uploaded",
		zap.String("session_id", payload.SessionID.String()),
		zap.String("key", key),
		zap.Int64("bytes", info.Size()),
	)
	return nil
}
