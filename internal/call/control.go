package call

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// Snapshot is the derived view the UI renders toggle affordances from.
// Nothing here is independent state; it is computed from the components.
type Snapshot struct {
	Phase     Phase          `json:"phase"`
	Media     MediaState     `json:"media"`
	Recording RecordingState `json:"recording"`
	Elapsed   int            `json:"elapsed"`
	CanJoin   bool           `json:"can_join"`
	CanEnd    bool           `json:"can_end"`
	CanRecord bool           `json:"can_record"`
	Error     string         `json:"error,omitempty"`
}

// Controller is the control surface: it translates user intents into calls
// against the coordinator, media chain, chat synchronizer and recording
// pipeline, and sequences compound actions (ending a call finalizes the
// recording before any resource disappears).
type Controller struct {
	coord     *Coordinator
	media     *MediaChain
	chat      *ChatSync
	recording *RecordingPipeline
	log       *zap.Logger

	mu      sync.Mutex
	draft   string
	lastErr string
}

// NewController wires a full call controller for one user over the given
// capability surface.
func NewController(backend Backend, devices Devices, recorders RecorderFactory, userID uuid.UUID, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		coord:     NewCoordinator(backend, userID, log),
		media:     NewMediaChain(devices, log),
		chat:      NewChatSync(backend, log),
		recording: NewRecordingPipeline(recorders, log),
		log:       log,
	}
	c.coord.OnPhaseChange(c.onPhase)
	c.coord.OnSessionChange(c.onSessionChange)
	return c
}

// Coordinator exposes the session coordinator (poll interval tuning, session
// access). The controller remains the mutation path for compound actions.
func (c *Controller) Coordinator() *Coordinator { return c.coord }

// Media exposes the media chain for rendering the self view.
func (c *Controller) Media() *MediaChain { return c.media }

// Chat exposes the chat synchronizer for update subscriptions.
func (c *Controller) Chat() *ChatSync { return c.chat }

// Recording exposes the recording pipeline for artifact download.
func (c *Controller) Recording() *RecordingPipeline { return c.recording }

// onPhase reacts to coordinator transitions observed locally or via polling.
func (c *Controller) onPhase(p Phase) {
	switch p {
	case PhaseWaiting:
		// Chat works before the call is joined.
		c.chat.Start(c.coord.SessionID())
	case PhaseActive:
		c.chat.Start(c.coord.SessionID())
		if c.media.State().Mode == MediaModeNone {
			c.media.Acquire(context.Background())
		}
	case PhaseEnded, PhaseFailed:
		// Remote end or failure: finalize the recording, then release.
		c.recording.Stop()
		c.chat.Stop()
		c.media.ReleaseAll()
	}
}

// onSessionChange follows a mid-call switch to a newer session record for
// the same consultation: the message poll must re-key on the adopted id or
// it would keep fetching the superseded session's messages.
func (c *Controller) onSessionChange(id uuid.UUID) {
	if c.coord.Phase().Terminal() {
		return
	}
	c.chat.Start(id)
}

// Join initializes the session for the consultation. The resulting phase
// (waiting, active, or a synthetic ended view for a completed consultation)
// drives chat and media via the phase callback.
func (c *Controller) Join(ctx context.Context, consultationID uuid.UUID) error {
	if err := c.coord.Initialize(ctx, consultationID); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// StartCall joins a waiting call.
func (c *Controller) StartCall(ctx context.Context) error {
	if err := c.coord.Start(ctx); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// EndCall ends the call: stop recording first so the artifact is finalized,
// then end the session, then release media. Media release and timer
// cancellation happen even when the backend call fails; a partial failure
// must not leak device locks.
func (c *Controller) EndCall(ctx context.Context) error {
	c.recording.Stop()
	defer func() {
		c.chat.Stop()
		c.media.ReleaseAll()
	}()
	if err := c.coord.End(ctx); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// ToggleMute flips the microphone.
func (c *Controller) ToggleMute() (muted bool, err error) {
	muted, err = c.media.ToggleMute()
	if err != nil {
		c.reportError(err)
	}
	return muted, err
}

// ToggleCamera flips the camera, re-acquiring it when it was unavailable.
func (c *Controller) ToggleCamera(ctx context.Context) (on bool, err error) {
	on, err = c.media.ToggleCamera(ctx)
	if err != nil {
		c.reportError(err)
	}
	return on, err
}

// ToggleScreenShare starts or stops screen sharing.
func (c *Controller) ToggleScreenShare(ctx context.Context) error {
	if c.media.State().ScreenSharing {
		c.media.StopScreenShare()
		return nil
	}
	if err := c.media.StartScreenShare(ctx); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// ToggleRecording starts recording the call's live stream (camera or screen
// share, whichever is active right now) or stops a running recording.
func (c *Controller) ToggleRecording() error {
	if c.recording.State() == RecordingRunning {
		c.recording.Stop()
		return nil
	}
	if err := c.recording.Start(c.media.ActiveStream()); err != nil {
		c.reportError(err)
		return err
	}
	return nil
}

// SetDraft stores the chat input draft.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Draft returns the current chat input draft.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SendDraft sends the current draft. The draft clears immediately for
// responsiveness; on failure the original text is restored and the error
// surfaced.
func (c *Controller) SendDraft(ctx context.Context) error {
	c.mu.Lock()
	text := c.draft
	c.draft = ""
	c.mu.Unlock()
	if text == "" {
		return nil
	}
	if _, err := c.chat.Send(ctx, text); err != nil {
		c.mu.Lock()
		c.draft = text
		c.mu.Unlock()
		c.reportError(err)
		return err
	}
	return nil
}

// Messages returns the synchronized message list.
func (c *Controller) Messages() []models.ChatMessage {
	return c.chat.Messages()
}

// Prescriptions returns the consultation's prescriptions for the ended view.
func (c *Controller) Prescriptions(ctx context.Context) ([]models.Prescription, error) {
	return c.coord.Prescriptions(ctx)
}

// Snapshot computes the current affordances.
func (c *Controller) Snapshot() Snapshot {
	phase := c.coord.Phase()
	media := c.media.State()
	c.mu.Lock()
	lastErr := c.lastErr
	c.mu.Unlock()
	return Snapshot{
		Phase:     phase,
		Media:     media,
		Recording: c.recording.State(),
		Elapsed:   c.coord.Elapsed(),
		CanJoin:   phase == PhaseWaiting,
		CanEnd:    phase == PhaseWaiting || phase == PhaseActive,
		CanRecord: phase == PhaseActive && media.Mode != MediaModeNone,
		Error:     lastErr,
	}
}

// DismissError clears the surfaced action error.
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

// Teardown releases everything without ending the session remotely (used on
// navigation away). Safe to call repeatedly.
func (c *Controller) Teardown() {
	c.recording.Stop()
	c.chat.Stop()
	c.coord.Teardown()
	c.media.ReleaseAll()
}

func (c *Controller) reportError(err error) {
	c.log.Warn("call action failed", zap.Error(err))
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}
