package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies a chat message kind. Text is the primary path.
const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

// ChatMessage is one immutable message in a session's chat.
// Ordering is by timestamp; ties break by arrival order within a poll batch.
type ChatMessage struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	Timestamp   time.Time `json:"timestamp"`
}
