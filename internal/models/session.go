package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the call session lifecycle (server-authoritative).
const (
	SessionStatusWaiting = "waiting"
	SessionStatusActive  = "active"
	SessionStatusEnded   = "ended"
	SessionStatusFailed  = "failed"
)

// Session is the live-call record for one consultation.
// At most one non-ended session exists per consultation at a time.
type Session struct {
	ID                uuid.UUID  `json:"id"`
	ConsultationID    uuid.UUID  `json:"consultation_id"`
	RoomID            string     `json:"room_id"`
	HostUserID        uuid.UUID  `json:"host_user_id"`
	ParticipantUserID uuid.UUID  `json:"participant_user_id"`
	Status            string     `json:"status"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	Duration          int        `json:"duration"`
	RecordingURL      string     `json:"recording_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Terminal reports whether the session reached a terminal status.
func (s *Session) Terminal() bool {
	return s.Status == SessionStatusEnded || s.Status == SessionStatusFailed
}
