package models

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is a medication entry issued during a consultation.
// Read-only to the call subsystem; surfaced on the ended-call view.
type Prescription struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	Medication     string    `json:"medication"`
	Dosage         string    `json:"dosage"`
	Instructions   string    `json:"instructions,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
