package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// DefaultMessagePollInterval is the chat polling cadence.
const DefaultMessagePollInterval = 3 * time.Second

// ChatSync keeps the session's message list in sync by polling: each poll
// replaces the local list wholesale (message volume per session is small and
// replace-on-poll is idempotent and order-preserving). Sends are appended
// locally only when the poll has not already delivered the server echo.
type ChatSync struct {
	backend Backend
	log     *zap.Logger

	interval time.Duration

	mu        sync.Mutex
	sessionID uuid.UUID
	messages  []models.ChatMessage
	cancel    context.CancelFunc
	onUpdate  func([]models.ChatMessage)
}

// NewChatSync creates a chat synchronizer.
func NewChatSync(backend Backend, log *zap.Logger) *ChatSync {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatSync{backend: backend, log: log, interval: DefaultMessagePollInterval}
}

// SetPollInterval overrides the message poll cadence.
func (s *ChatSync) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// OnUpdate registers a callback invoked with the new list after every change.
func (s *ChatSync) OnUpdate(fn func([]models.ChatMessage)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Start begins polling messages for the session. Chat runs from the waiting
// phase onward, before the call is joined. Starting twice with the same id is
// a no-op; a new id (create-race winner adopted mid-call) restarts the poll.
func (s *ChatSync) Start(sessionID uuid.UUID) {
	s.mu.Lock()
	if s.cancel != nil {
		if s.sessionID == sessionID {
			s.mu.Unlock()
			return
		}
		s.cancel()
		s.cancel = nil
	}
	s.sessionID = sessionID
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(ctx)
}

// Stop cancels the poll loop. Safe to call repeatedly.
func (s *ChatSync) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// Messages returns a copy of the current ordered message list.
func (s *ChatSync) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Send posts a message and appends the server-returned record to the local
// list unless a message with that id is already present (the poll may have
// delivered the echo first). On failure the caller restores its draft.
func (s *ChatSync) Send(ctx context.Context, text string) (*models.ChatMessage, error) {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("send message: no session")
	}

	msg, err := s.backend.SendMessage(ctx, sessionID, text)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	present := false
	for _, m := range s.messages {
		if m.ID == msg.ID {
			present = true
			break
		}
	}
	var fn func([]models.ChatMessage)
	var snapshot []models.ChatMessage
	if !present {
		s.messages = append(s.messages, *msg)
		fn = s.onUpdate
		snapshot = append([]models.ChatMessage(nil), s.messages...)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
	return msg, nil
}

// run is the message poll loop; one re-armed timer, one request in flight.
func (s *ChatSync) run(ctx context.Context) {
	timer := time.NewTimer(0) // first fetch immediately
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		s.pollOnce(ctx)
		timer.Reset(s.interval)
	}
}

func (s *ChatSync) pollOnce(ctx context.Context) {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()

	list, err := s.backend.GetMessages(ctx, sessionID)
	if err != nil {
		s.log.Debug("message poll failed, retrying next tick", zap.Error(err))
		return
	}

	s.mu.Lock()
	changed := len(list) != len(s.messages)
	if !changed {
		for i := range list {
			if list[i].ID != s.messages[i].ID {
				changed = true
				break
			}
		}
	}
	var fn func([]models.ChatMessage)
	var snapshot []models.ChatMessage
	if changed {
		s.messages = list
		fn = s.onUpdate
		snapshot = append([]models.ChatMessage(nil), list...)
	}
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
