package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationStatus values for the external booking record.
const (
	ConsultationStatusScheduled  = "scheduled"
	ConsultationStatusInProgress = "in_progress"
	ConsultationStatusCompleted  = "completed"
	ConsultationStatusCancelled  = "cancelled"
)

// Consultation is the booking record a call session belongs to.
// The call subsystem reads it only to detect completed consultations
// and to determine the counterpart's identity.
type Consultation struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	VeterinarianID uuid.UUID `json:"veterinarian_id"`
	Status         string    `json:"status"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Counterpart returns the other party's user id for the given user.
func (c *Consultation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == c.VeterinarianID {
		return c.UserID
	}
	return c.VeterinarianID
}
