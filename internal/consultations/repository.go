package consultations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// Repository reads consultation and prescription records. The call subsystem
// never mutates them; the booking workflow owns their lifecycle.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a consultations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a consultation by id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	const q = `SELECT id, user_id, veterinarian_id, status, scheduled_at, COALESCE(reason,''), created_at, updated_at
		FROM consultations WHERE id = $1`
	var consult models.Consultation
	err := r.pool.QueryRow(ctx, q, id).Scan(&consult.ID, &consult.UserID, &consult.VeterinarianID,
		&consult.Status, &consult.ScheduledAt, &consult.Reason, &consult.CreatedAt, &consult.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &consult, nil
}

// ListPrescriptions returns the consultation's prescriptions.
func (r *Repository) ListPrescriptions(ctx context.Context, consultationID uuid.UUID) ([]models.Prescription, error) {
	const q = `SELECT id, consultation_id, medication, dosage, COALESCE(instructions,''), created_at
		FROM prescriptions WHERE consultation_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, consultationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Prescription, 0)
	for rows.Next() {
		var p models.Prescription
		if err := rows.Scan(&p.ID, &p.ConsultationID, &p.Medication, &p.Dosage, &p.Instructions, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
