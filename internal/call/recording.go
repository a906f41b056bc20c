package call

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecordingState is the local recording lifecycle.
type RecordingState string

const (
	RecordingIdle    RecordingState = "idle"
	RecordingRunning RecordingState = "recording"
	RecordingStopped RecordingState = "stopped"
)

// DefaultFormatPreference is the ordered container/codec preference list for
// local recording; the first format the runtime supports wins.
var DefaultFormatPreference = []string{
	"video/webm;codecs=vp9",
	"video/webm;codecs=vp8",
	"video/webm",
	"video/mp4",
}

// DefaultChunkInterval is how often the recorder flushes captured chunks.
const DefaultChunkInterval = time.Second

// RecordingPipeline records the call's currently live stream into one
// downloadable artifact. Its lifecycle is independent of the call: starting
// and stopping the recording never touches session state. The pipeline
// borrows the stream it records and never stops its tracks.
//
// Either zero artifacts exist (never started, or still recording) or exactly
// one (after stop). The recorder is bound to the stream passed at start; a
// mid-recording stream swap does not retarget it.
type RecordingPipeline struct {
	factory RecorderFactory
	log     *zap.Logger

	formats       []string
	chunkInterval time.Duration

	mu       sync.Mutex
	state    RecordingState
	recorder Recorder
	artifact *Artifact
}

// NewRecordingPipeline creates a recording pipeline with the default format
// preference list.
func NewRecordingPipeline(factory RecorderFactory, log *zap.Logger) *RecordingPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordingPipeline{
		factory:       factory,
		log:           log,
		formats:       DefaultFormatPreference,
		chunkInterval: DefaultChunkInterval,
		state:         RecordingIdle,
	}
}

// SetFormatPreference overrides the ordered format list.
func (p *RecordingPipeline) SetFormatPreference(formats []string) {
	if len(formats) > 0 {
		p.formats = formats
	}
}

// Start begins recording the given stream, selecting the first supported
// format from the preference list. Rejected (reported, not fatal) when no
// stream is live, a recording is already running, or no format is supported.
func (p *RecordingPipeline) Start(stream Stream) error {
	if stream == nil {
		return ErrNoActiveStream
	}

	p.mu.Lock()
	if p.state == RecordingRunning {
		p.mu.Unlock()
		return ErrAlreadyRecording
	}
	p.mu.Unlock()

	format := ""
	for _, f := range p.formats {
		if p.factory.Supports(f) {
			format = f
			break
		}
	}
	if format == "" {
		return ErrRecordingUnsupported
	}

	rec, err := p.factory.NewRecorder(stream, format, p.complete)
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	if err := rec.Start(p.chunkInterval); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}

	p.mu.Lock()
	p.state = RecordingRunning
	p.recorder = rec
	p.artifact = nil
	p.mu.Unlock()
	p.log.Info("recording started", zap.String("format", format))
	return nil
}

// Stop finalizes the recording into one artifact. Calling it when nothing is
// recording is a no-op: no artifact, no error.
func (p *RecordingPipeline) Stop() {
	p.mu.Lock()
	if p.state != RecordingRunning {
		p.mu.Unlock()
		return
	}
	rec := p.recorder
	p.recorder = nil
	p.state = RecordingStopped
	p.mu.Unlock()

	rec.Stop()
	p.log.Info("recording stopped")
}

// complete receives the finalized artifact from the recorder.
func (p *RecordingPipeline) complete(a Artifact) {
	p.mu.Lock()
	if p.artifact == nil {
		p.artifact = &a
	}
	p.mu.Unlock()
}

// State returns the pipeline state.
func (p *RecordingPipeline) State() RecordingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Artifact returns the finalized artifact, or nil when none exists yet.
func (p *RecordingPipeline) Artifact() *Artifact {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact
}
