package call

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

// fakeTrack implements Track.
type fakeTrack struct {
	mu      sync.Mutex
	kind    TrackKind
	enabled bool
	stops   int
}

func newFakeTrack(kind TrackKind) *fakeTrack {
	return &fakeTrack{kind: kind, enabled: true}
}

func (t *fakeTrack) Kind() TrackKind { return t.kind }

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stops++
	t.mu.Unlock()
}

func (t *fakeTrack) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops > 0
}

// fakeStream implements Stream.
type fakeStream struct {
	mu      sync.Mutex
	tracks  []Track
	closes  int
	onEnded func()
}

func newFakeStream(kinds ...TrackKind) *fakeStream {
	s := &fakeStream{}
	for _, k := range kinds {
		s.tracks = append(s.tracks, newFakeTrack(k))
	}
	return s
}

func (s *fakeStream) Tracks(kind TrackKind) []Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Track
	for _, t := range s.tracks {
		if t.Kind() == kind {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeStream) AddTrack(t Track) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	s.mu.Unlock()
}

func (s *fakeStream) OnEnded(fn func()) {
	s.mu.Lock()
	s.onEnded = fn
	s.mu.Unlock()
}

func (s *fakeStream) Close() {
	s.mu.Lock()
	tracks := s.tracks
	s.closes++
	s.mu.Unlock()
	for _, t := range tracks {
		t.Stop()
	}
}

func (s *fakeStream) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes > 0
}

// emitEnded simulates the runtime stopping the capture natively.
func (s *fakeStream) emitEnded() {
	s.mu.Lock()
	fn := s.onEnded
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeDevices implements Devices with switchable failure modes.
type fakeDevices struct {
	mu          sync.Mutex
	denyVideo   bool
	denyAll     bool
	denyDisplay bool
	userStreams []*fakeStream
	displays    []*fakeStream
}

func (d *fakeDevices) setDeny(video, all bool) {
	d.mu.Lock()
	d.denyVideo = video
	d.denyAll = all
	d.mu.Unlock()
}

func (d *fakeDevices) AcquireUserMedia(_ context.Context, video, audio bool) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denyAll {
		return nil, ErrDeviceUnavailable
	}
	if video && d.denyVideo {
		return nil, ErrDeviceUnavailable
	}
	var kinds []TrackKind
	if video {
		kinds = append(kinds, TrackKindVideo)
	}
	if audio {
		kinds = append(kinds, TrackKindAudio)
	}
	s := newFakeStream(kinds...)
	d.userStreams = append(d.userStreams, s)
	return s, nil
}

func (d *fakeDevices) AcquireDisplayMedia(_ context.Context) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.denyDisplay {
		return nil, ErrUserCancelled
	}
	s := newFakeStream(TrackKindVideo)
	d.displays = append(d.displays, s)
	return s, nil
}

// fakeRecorder implements Recorder and finalizes a canned artifact on Stop.
type fakeRecorder struct {
	mu         sync.Mutex
	mimeType   string
	onComplete func(Artifact)
	starts     int
	stops      int
}

func (r *fakeRecorder) Start(time.Duration) error {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) Stop() {
	r.mu.Lock()
	r.stops++
	first := r.stops == 1
	fn := r.onComplete
	r.mu.Unlock()
	if first && fn != nil {
		fn(Artifact{Data: []byte("chunks"), MimeType: r.mimeType, CreatedAt: time.Now()})
	}
}

func (r *fakeRecorder) MimeType() string { return r.mimeType }

// fakeRecorderFactory implements RecorderFactory.
type fakeRecorderFactory struct {
	mu        sync.Mutex
	supported map[string]bool
	created   []*fakeRecorder
}

func newFakeRecorderFactory(formats ...string) *fakeRecorderFactory {
	f := &fakeRecorderFactory{supported: make(map[string]bool)}
	for _, m := range formats {
		f.supported[m] = true
	}
	return f
}

func (f *fakeRecorderFactory) Supports(mimeType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.supported[mimeType]
}

func (f *fakeRecorderFactory) NewRecorder(_ Stream, mimeType string, onComplete func(Artifact)) (Recorder, error) {
	r := &fakeRecorder{mimeType: mimeType, onComplete: onComplete}
	f.mu.Lock()
	f.created = append(f.created, r)
	f.mu.Unlock()
	return r, nil
}

// fakeBackend implements Backend with the server's observable semantics:
// idempotent create, newest non-terminal session per consultation, messages
// ordered by arrival.
type fakeBackend struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*models.Consultation
	sessions      []*models.Session
	messages      map[uuid.UUID][]models.ChatMessage
	prescriptions map[uuid.UUID][]models.Prescription

	createCalls int
	endCalls    int

	resolveErr error
	startErr   error
	endErr     error
	sendErr    error

	// sendEcho, when set, is returned from SendMessage instead of a fresh
	// record (models the poll having already delivered the server echo).
	sendEcho *models.ChatMessage
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		consultations: make(map[uuid.UUID]*models.Consultation),
		messages:      make(map[uuid.UUID][]models.ChatMessage),
		prescriptions: make(map[uuid.UUID][]models.Prescription),
	}
}

func (b *fakeBackend) addConsultation(status string) *models.Consultation {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &models.Consultation{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		VeterinarianID: uuid.New(),
		Status:         status,
		ScheduledAt:    time.Now(),
	}
	b.consultations[c.ID] = c
	return c
}

func (b *fakeBackend) addSession(consultationID uuid.UUID, status string, createdAt time.Time) *models.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &models.Session{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		RoomID:         "consult-000001",
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	b.sessions = append(b.sessions, s)
	return s
}

func (b *fakeBackend) setStatus(sessionID uuid.UUID, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.ID == sessionID {
			s.Status = status
		}
	}
}

func (b *fakeBackend) addMessage(sessionID uuid.UUID, sender uuid.UUID, text string) models.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := models.ChatMessage{
		ID:          uuid.New(),
		SessionID:   sessionID,
		SenderID:    sender,
		SenderName:  "Dr. Rivera",
		Message:     text,
		MessageType: models.MessageTypeText,
		Timestamp:   time.Now(),
	}
	b.messages[sessionID] = append(b.messages[sessionID], m)
	return m
}

func (b *fakeBackend) GetSessionByConsultation(_ context.Context, consultationID uuid.UUID) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resolveErr != nil {
		return nil, b.resolveErr
	}
	var latest *models.Session
	for _, s := range b.sessions {
		if s.ConsultationID != consultationID || s.Terminal() {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (b *fakeBackend) CreateSession(_ context.Context, consultationID, participantUserID uuid.UUID) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCalls++
	for _, s := range b.sessions {
		if s.ConsultationID == consultationID && !s.Terminal() {
			cp := *s
			return &cp, nil
		}
	}
	s := &models.Session{
		ID:                uuid.New(),
		ConsultationID:    consultationID,
		RoomID:            "consult-000002",
		ParticipantUserID: participantUserID,
		Status:            models.SessionStatusWaiting,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	b.sessions = append(b.sessions, s)
	cp := *s
	return &cp, nil
}

func (b *fakeBackend) GetSession(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.sessions {
		if s.ID == sessionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) StartSession(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.startErr != nil {
		return nil, b.startErr
	}
	for _, s := range b.sessions {
		if s.ID == sessionID {
			if s.Status == models.SessionStatusWaiting {
				now := time.Now()
				s.Status = models.SessionStatusActive
				s.StartedAt = &now
			}
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) EndSession(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endCalls++
	if b.endErr != nil {
		return nil, b.endErr
	}
	for _, s := range b.sessions {
		if s.ID == sessionID {
			if !s.Terminal() {
				now := time.Now()
				s.Status = models.SessionStatusEnded
				s.EndedAt = &now
			}
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) GetMessages(_ context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChatMessage(nil), b.messages[sessionID]...), nil
}

func (b *fakeBackend) SendMessage(_ context.Context, sessionID uuid.UUID, text string) (*models.ChatMessage, error) {
	b.mu.Lock()
	if b.sendErr != nil {
		err := b.sendErr
		b.mu.Unlock()
		return nil, err
	}
	if b.sendEcho != nil {
		cp := *b.sendEcho
		b.mu.Unlock()
		return &cp, nil
	}
	b.mu.Unlock()
	m := b.addMessage(sessionID, uuid.New(), text)
	return &m, nil
}

func (b *fakeBackend) GetConsultation(_ context.Context, consultationID uuid.UUID) (*models.Consultation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	consult, ok := b.consultations[consultationID]
	if !ok {
		return nil, nil
	}
	cp := *consult
	return &cp, nil
}

func (b *fakeBackend) GetPrescriptionsByConsultation(_ context.Context, consultationID uuid.UUID) ([]models.Prescription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Prescription(nil), b.prescriptions[consultationID]...), nil
}

func (b *fakeBackend) setErr(which string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch which {
	case "resolve":
		b.resolveErr = err
	case "start":
		b.startErr = err
	case "end":
		b.endErr = err
	case "send":
		b.sendErr = err
	}
}
