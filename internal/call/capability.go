// Package call implements the client-side consultation call controller:
// session lifecycle coordination over a polled backend, local media
// acquisition with staged fallback, chat synchronization, and local
// recording. All device and network access goes through the capability
// interfaces below so the package runs against fakes in tests.
package call

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// Backend is the session/message API surface the call core consumes.
// Implementations must return (nil, nil) from GetSessionByConsultation
// when no non-ended session exists. GetConsultation returns either a
// non-nil record or an error; a missing consultation may be reported as
// (nil, nil) and is treated as a resolve failure.
type Backend interface {
	GetSessionByConsultation(ctx context.Context, consultationID uuid.UUID) (*models.Session, error)
	CreateSession(ctx context.Context, consultationID, participantUserID uuid.UUID) (*models.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	StartSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	GetMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID uuid.UUID, text string) (*models.ChatMessage, error)
	GetConsultation(ctx context.Context, consultationID uuid.UUID) (*models.Consultation, error)
	GetPrescriptionsByConsultation(ctx context.Context, consultationID uuid.UUID) ([]models.Prescription, error)
}

// TrackKind identifies a media track type.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is one capture track (camera, microphone, or display).
// Stop must be safe to call more than once.
type Track interface {
	Kind() TrackKind
	Enabled() bool
	SetEnabled(enabled bool)
	Stop()
}

// Stream is a bundle of live capture tracks.
type Stream interface {
	Tracks(kind TrackKind) []Track
	AddTrack(t Track)
	// OnEnded registers a callback fired when the runtime stops the capture
	// outside this API (e.g. the browser's native stop-sharing control).
	OnEnded(fn func())
	// Close stops every track. Safe to call repeatedly.
	Close()
}

// Devices acquires local capture streams.
type Devices interface {
	// AcquireUserMedia requests camera and/or microphone capture.
	// Fails with ErrDeviceUnavailable when denied or absent.
	AcquireUserMedia(ctx context.Context, video, audio bool) (Stream, error)
	// AcquireDisplayMedia requests screen capture.
	// Fails with ErrUserCancelled when the user dismisses the picker.
	AcquireDisplayMedia(ctx context.Context) (Stream, error)
}

// Artifact is the finalized output of a completed recording.
type Artifact struct {
	Data      []byte
	MimeType  string
	CreatedAt time.Time
}

// Recorder records one stream into an artifact. Stop finalizes the
// recording and invokes the completion callback exactly once.
type Recorder interface {
	Start(chunkInterval time.Duration) error
	Stop()
	MimeType() string
}

// RecorderFactory creates recorders for supported container/codec types.
type RecorderFactory interface {
	Supports(mimeType string) bool
	NewRecorder(stream Stream, mimeType string, onComplete func(Artifact)) (Recorder, error)
}
