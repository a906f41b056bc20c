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

// Phase is the coordinator's call-lifecycle phase.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseResolving     Phase = "resolving"
	PhaseWaiting       Phase = "waiting"
	PhaseActive        Phase = "active"
	PhaseEnded         Phase = "ended"
	PhaseFailed        Phase = "failed"
)

// Terminal reports whether the phase is terminal.
func (p Phase) Terminal() bool { return p == PhaseEnded || p == PhaseFailed }

// phaseTransitions is the exhaustive transition table. A status observed
// via polling that would require a transition not listed here is stale
// and gets dropped (e.g. a late "active" response after "ended").
var phaseTransitions = map[Phase]map[Phase]bool{
	PhaseUninitialized: {PhaseResolving: true},
	PhaseResolving:     {PhaseWaiting: true, PhaseActive: true, PhaseEnded: true, PhaseFailed: true},
	PhaseWaiting:       {PhaseActive: true, PhaseEnded: true, PhaseFailed: true},
	PhaseActive:        {PhaseEnded: true, PhaseFailed: true},
	PhaseEnded:         {},
	PhaseFailed:        {PhaseResolving: true},
}

// DefaultStatusPollInterval is the session status polling cadence.
const DefaultStatusPollInterval = 3 * time.Second

// Coordinator owns the session lifecycle for one consultation: it resolves
// or creates the backing session record, polls for transitions driven by
// the other party, and exposes the explicit start/end operations.
//
// The status poll runs as one goroutine with a single re-armed timer, so at
// most one status request is outstanding at a time. Every applied session
// snapshot carries a monotonic revision taken when its request was issued;
// a response that lost the race to a newer one is discarded.
type Coordinator struct {
	backend Backend
	userID  uuid.UUID
	log     *zap.Logger

	pollInterval time.Duration

	mu             sync.Mutex
	phase          Phase
	consultationID uuid.UUID
	session        *models.Session
	prescriptions  []models.Prescription
	rxLoaded       bool
	elapsed        int
	reqSeq         uint64
	appliedSeq     uint64
	pollCancel     context.CancelFunc
	clockCancel    context.CancelFunc
	onPhase        func(Phase)
	onSession      func(uuid.UUID)
}

// NewCoordinator creates a coordinator for the given user. The user identity
// is an explicit parameter; nothing here reads ambient state.
func NewCoordinator(backend Backend, userID uuid.UUID, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		backend:      backend,
		userID:       userID,
		log:          log,
		pollInterval: DefaultStatusPollInterval,
		phase:        PhaseUninitialized,
	}
}

// SetPollInterval overrides the status poll cadence (tests use a short one).
func (c *Coordinator) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// OnPhaseChange registers a callback invoked (outside the coordinator lock)
// after every phase transition. Set it before Initialize.
func (c *Coordinator) OnPhaseChange(fn func(Phase)) {
	c.mu.Lock()
	c.onPhase = fn
	c.mu.Unlock()
}

// OnSessionChange registers a callback invoked (outside the coordinator
// lock) when polling switches the subscription to a different session id for
// the same consultation. A phase transition may not accompany the switch, so
// anything keyed on the session id (the message poll) subscribes here.
func (c *Coordinator) OnSessionChange(fn func(uuid.UUID)) {
	c.mu.Lock()
	c.onSession = fn
	c.mu.Unlock()
}

// Initialize resolves the consultation to a session: adopt an existing
// non-ended session, or create one against the counterpart from the
// consultation record. A consultation already completed short-circuits to a
// synthetic ended view without ever creating a session. Repeated calls after
// a successful resolve are no-ops; a failed coordinator may re-initialize.
func (c *Coordinator) Initialize(ctx context.Context, consultationID uuid.UUID) error {
	c.mu.Lock()
	if c.phase != PhaseUninitialized && c.phase != PhaseFailed {
		c.mu.Unlock()
		return nil
	}
	c.phase = PhaseResolving
	c.consultationID = consultationID
	fn := c.onPhase
	c.mu.Unlock()
	if fn != nil {
		fn(PhaseResolving)
	}

	seq := c.nextSeq()
	sess, err := c.backend.GetSessionByConsultation(ctx, consultationID)
	if err != nil {
		return c.fail(fmt.Errorf("resolve session: %w", err))
	}
	if sess != nil && !sess.Terminal() {
		c.applySession(seq, sess)
		return nil
	}

	consult, err := c.backend.GetConsultation(ctx, consultationID)
	if err != nil {
		return c.fail(fmt.Errorf("load consultation: %w", err))
	}
	if consult == nil {
		return c.fail(fmt.Errorf("load consultation: %s not found", consultationID))
	}
	if consult.Status == models.ConsultationStatusCompleted {
		// Finished consultation: never resurrect it with a fresh session.
		if rx, rxErr := c.backend.GetPrescriptionsByConsultation(ctx, consultationID); rxErr == nil {
			c.mu.Lock()
			c.prescriptions = rx
			c.rxLoaded = true
			c.mu.Unlock()
		}
		c.transition(PhaseEnded)
		return nil
	}

	created, err := c.backend.CreateSession(ctx, consultationID, consult.Counterpart(c.userID))
	if err != nil {
		return c.fail(fmt.Errorf("create session: %w", err))
	}
	// The backend record is authoritative even for our own create: both
	// parties may create concurrently and the poll converges on the winner.
	c.applySession(c.nextSeq(), created)
	return nil
}

// Start flips a waiting session to active ("join call").
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseWaiting || c.session == nil {
		c.mu.Unlock()
		return ErrSessionNotJoinable
	}
	sessionID := c.session.ID
	c.mu.Unlock()

	seq := c.nextSeq()
	sess, err := c.backend.StartSession(ctx, sessionID)
	if err != nil {
		// Surfaced to the caller; local state is untouched and the poll
		// keeps running, so a transient failure is recoverable.
		return fmt.Errorf("start session: %w", err)
	}
	c.applySession(seq, sess)
	return nil
}

// End requests the backend transition to ended and tears down local timers.
// Local teardown is not conditioned on remote success: even when the backend
// call fails, the coordinator lands in PhaseEnded with all timers cancelled,
// and the error is returned for surfacing. Safe to call repeatedly.
func (c *Coordinator) End(ctx context.Context) error {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return nil
	}
	var sessionID uuid.UUID
	if c.session != nil {
		sessionID = c.session.ID
	}
	c.stopTimersLocked()
	c.mu.Unlock()

	var endErr error
	if sessionID != uuid.Nil {
		seq := c.nextSeq()
		sess, err := c.backend.EndSession(ctx, sessionID)
		if err != nil {
			endErr = err
		} else if sess != nil {
			c.applySession(seq, sess)
		}
	}

	c.mu.Lock()
	if !c.phase.Terminal() {
		if c.session != nil {
			c.session.Status = models.SessionStatusEnded
		}
	}
	c.mu.Unlock()
	c.transition(PhaseEnded)

	if endErr != nil {
		return fmt.Errorf("end session: %w", endErr)
	}
	return nil
}

// Teardown cancels the status poll and call clock. Safe to call repeatedly;
// used on navigation away without an explicit end.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	c.stopTimersLocked()
	c.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Session returns a copy of the current session record, or nil.
func (c *Coordinator) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SessionID returns the current session id, or uuid.Nil before resolve.
func (c *Coordinator) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return uuid.Nil
	}
	return c.session.ID
}

// Elapsed returns the active-call duration in seconds.
func (c *Coordinator) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Prescriptions returns the consultation's prescriptions for the ended view,
// fetching once and caching thereafter.
func (c *Coordinator) Prescriptions(ctx context.Context) ([]models.Prescription, error) {
	c.mu.Lock()
	if c.rxLoaded {
		rx := c.prescriptions
		c.mu.Unlock()
		return rx, nil
	}
	consultationID := c.consultationID
	c.mu.Unlock()

	rx, err := c.backend.GetPrescriptionsByConsultation(ctx, consultationID)
	if err != nil {
		return nil, fmt.Errorf("load prescriptions: %w", err)
	}
	c.mu.Lock()
	c.prescriptions = rx
	c.rxLoaded = true
	c.mu.Unlock()
	return rx, nil
}

// nextSeq issues a revision for a fetch whose response may be applied.
func (c *Coordinator) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqSeq++
	return c.reqSeq
}

// applySession installs a fetched session snapshot and derives the phase
// from its status. Stale responses (older revision, or a transition the
// table forbids) are dropped.
func (c *Coordinator) applySession(seq uint64, sess *models.Session) {
	c.mu.Lock()
	if seq < c.appliedSeq || c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	prevID := uuid.Nil
	if c.session != nil {
		prevID = c.session.ID
	}
	c.appliedSeq = seq
	c.session = sess

	var to Phase
	switch sess.Status {
	case models.SessionStatusWaiting:
		to = PhaseWaiting
	case models.SessionStatusActive:
		to = PhaseActive
	case models.SessionStatusEnded:
		to = PhaseEnded
	case models.SessionStatusFailed:
		to = PhaseFailed
	default:
		c.mu.Unlock()
		c.log.Warn("unknown session status", zap.String("status", sess.Status))
		return
	}
	fn := c.transitionLocked(to)
	sfn := c.onSession
	c.mu.Unlock()
	if prevID != uuid.Nil && prevID != sess.ID && sfn != nil {
		// Session-id switch first, so a consumer re-keying on the id is
		// already pointed at the new session when the phase callback runs.
		sfn(sess.ID)
	}
	if fn != nil {
		fn(to)
	}
}

// transition moves to the given phase if the table allows it and fires the
// phase callback outside the lock.
func (c *Coordinator) transition(to Phase) {
	c.mu.Lock()
	fn := c.transitionLocked(to)
	c.mu.Unlock()
	if fn != nil {
		fn(to)
	}
}

// transitionLocked applies side effects for an allowed transition and
// returns the callback to invoke after unlocking (nil when nothing changed).
func (c *Coordinator) transitionLocked(to Phase) func(Phase) {
	if to == c.phase || !phaseTransitions[c.phase][to] {
		return nil
	}
	from := c.phase
	c.phase = to

	switch to {
	case PhaseWaiting:
		c.startPollLocked()
	case PhaseActive:
		c.startPollLocked() // remote end is still observed by polling
		c.startClockLocked()
	case PhaseEnded, PhaseFailed:
		c.stopTimersLocked()
	}

	c.log.Info("session phase changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return c.onPhase
}

func (c *Coordinator) fail(err error) error {
	c.transition(PhaseFailed)
	return err
}

func (c *Coordinator) startPollLocked() {
	if c.pollCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	go c.runStatusPoll(ctx)
}

func (c *Coordinator) startClockLocked() {
	if c.clockCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.clockCancel = cancel
	go c.runClock(ctx)
}

func (c *Coordinator) stopTimersLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	if c.clockCancel != nil {
		c.clockCancel()
		c.clockCancel = nil
	}
}

// runStatusPoll is the single status poll loop: one named timer, re-armed
// only after the previous request finished, so ticks never stack.
func (c *Coordinator) runStatusPoll(ctx context.Context) {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		c.pollOnce(ctx)
		if c.Phase().Terminal() {
			return
		}
		timer.Reset(c.pollInterval)
	}
}

// pollOnce fetches the subscribed session's status and, while it is not
// terminal, checks whether a newer session record exists for the same
// consultation (two clients may have created concurrently); if so the
// coordinator switches its subscription to the newer id. Transient network
// failures are swallowed and retried on the next tick.
func (c *Coordinator) pollOnce(ctx context.Context) {
	c.mu.Lock()
	var sessionID uuid.UUID
	var createdAt time.Time
	if c.session != nil {
		sessionID = c.session.ID
		createdAt = c.session.CreatedAt
	}
	consultationID := c.consultationID
	c.mu.Unlock()
	if sessionID == uuid.Nil {
		return
	}

	seq := c.nextSeq()
	sess, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		c.log.Debug("status poll failed, retrying next tick", zap.Error(err))
		return
	}
	if sess != nil {
		c.applySession(seq, sess)
		if sess.Terminal() {
			return
		}
	}

	seq = c.nextSeq()
	latest, err := c.backend.GetSessionByConsultation(ctx, consultationID)
	if err != nil || latest == nil {
		return
	}
	if latest.ID != sessionID && latest.CreatedAt.After(createdAt) {
		c.log.Info("switching to newer session record",
			zap.String("old", sessionID.String()),
			zap.String("new", latest.ID.String()),
		)
		c.applySession(seq, latest)
	}
}

// runClock ticks the active-call duration once per second.
func (c *Coordinator) runClock(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.elapsed++
			c.mu.Unlock()
		}
	}
}
