package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

const sessionColumns = `id, consultation_id, room_id, host_user_id, participant_user_id, status,
		started_at, ended_at, duration, COALESCE(recording_url,''), created_at, updated_at`

// Repository handles call session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.ConsultationID, &s.RoomID, &s.HostUserID, &s.ParticipantUserID, &s.Status,
		&s.StartedAt, &s.EndedAt, &s.Duration, &s.RecordingURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetLatestNonEnded returns the newest non-terminal session for a
// consultation, or nil when none exists.
func (r *Repository) GetLatestNonEnded(ctx context.Context, consultationID uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions
		WHERE consultation_id = $1 AND status NOT IN ('ended', 'failed')
		ORDER BY created_at DESC LIMIT 1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, consultationID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create inserts a new waiting session. The partial unique index on
// (consultation_id) WHERE status NOT IN ('ended','failed') rejects a second
// live session; callers re-fetch on conflict.
func (r *Repository) Create(ctx context.Context, consultationID uuid.UUID, roomID string, hostUserID, participantUserID uuid.UUID) (*models.Session, error) {
	const q = `INSERT INTO call_sessions (id, consultation_id, room_id, host_user_id, participant_user_id, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, 'waiting')
		RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, consultationID, roomID, hostUserID, participantUserID))
}

// GetByID returns a session by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Start flips a waiting session to active. Returns nil when the session was
// not in waiting (caller decides whether that is a conflict or an idempotent
// repeat).
func (r *Repository) Start(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `UPDATE call_sessions SET status = 'active', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'waiting'
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// End transitions a non-terminal session to ended, recording ended_at and
// the call duration. Returns nil when the session was already terminal.
func (r *Repository) End(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `UPDATE call_sessions SET status = 'ended', ended_at = NOW(),
		duration = COALESCE(EXTRACT(EPOCH FROM (NOW() - started_at))::INT, 0),
		updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('ended', 'failed')
		RETURNING ` + sessionColumns
	s, err := scanSession(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// UpdateRecordingURL sets the server-stored recording reference.
func (r *Repository) UpdateRecordingURL(ctx context.Context, id uuid.UUID, url string) error {
	const q = `UPDATE call_sessions SET recording_url = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, url, id)
	return err
}
