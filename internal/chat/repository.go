package chat

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// Repository handles session message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBySession returns the session's full message list ordered by creation
// time, ties broken by insertion order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	const q = `SELECT m.id, m.session_id, m.sender_id, u.full_name, m.message, m.message_type, m.created_at
		FROM session_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.session_id = $1
		ORDER BY m.created_at, m.seq`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.SenderID, &m.SenderName, &m.Message, &m.MessageType, &m.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Create inserts a text message and returns it with the sender's name.
func (r *Repository) Create(ctx context.Context, sessionID, senderID uuid.UUID, text, messageType string) (*models.ChatMessage, error) {
	const q = `WITH ins AS (
			INSERT INTO session_messages (id, session_id, sender_id, message, message_type)
			VALUES (gen_random_uuid(), $1, $2, $3, $4)
			RETURNING id, session_id, sender_id, message, message_type, created_at
		)
		SELECT ins.id, ins.session_id, ins.sender_id, u.full_name, ins.message, ins.message_type, ins.created_at
		FROM ins JOIN users u ON u.id = ins.sender_id`
	var m models.ChatMessage
	err := r.pool.QueryRow(ctx, q, sessionID, senderID, text, messageType).
		Scan(&m.ID, &m.SessionID, &m.SenderID, &m.SenderName, &m.Message, &m.MessageType, &m.Timestamp)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
