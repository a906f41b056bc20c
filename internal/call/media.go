package call

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MediaMode is the negotiated fallback rung.
type MediaMode string

const (
	MediaModeVideo     MediaMode = "video"
	MediaModeAudioOnly MediaMode = "audio-only"
	MediaModeNone      MediaMode = "none"
)

// Advisory texts surfaced when acquisition degrades. Non-fatal.
const (
	AdvisoryCameraUnavailable = "camera unavailable, joining with audio only"
	AdvisoryNoDevices         = "camera and microphone unavailable, chat is still available"
)

// MediaState is a read-only snapshot of the media chain.
type MediaState struct {
	Mode          MediaMode `json:"mode"`
	CameraEnabled bool      `json:"camera_enabled"`
	MicEnabled    bool      `json:"mic_enabled"`
	ScreenSharing bool      `json:"screen_sharing"`
	Advisory      string    `json:"advisory,omitempty"`
}

// MediaChain negotiates local capture with staged fallback and owns the
// resulting stream. It is the only component that mutates the stream; the
// recording pipeline and control surface borrow it read-only.
type MediaChain struct {
	devices Devices
	log     *zap.Logger

	mu            sync.Mutex
	mode          MediaMode
	stream        Stream // camera/microphone capture
	display       Stream // screen capture while sharing
	cameraEnabled bool
	micEnabled    bool
	screenSharing bool
	advisory      string
}

// NewMediaChain creates a media chain over the given device surface.
func NewMediaChain(devices Devices, log *zap.Logger) *MediaChain {
	if log == nil {
		log = zap.NewNop()
	}
	return &MediaChain{devices: devices, log: log, mode: MediaModeNone}
}

// Acquire negotiates capture: camera+mic, then mic alone, then nothing.
// It never returns an error; every rung terminates in a defined mode and
// the advisory in the returned state says what degraded. Calling it again
// releases the previous capture first.
func (m *MediaChain) Acquire(ctx context.Context) MediaState {
	m.ReleaseAll()

	if s, err := m.devices.AcquireUserMedia(ctx, true, true); err == nil {
		m.mu.Lock()
		m.stream = s
		m.mode = MediaModeVideo
		m.cameraEnabled = true
		m.micEnabled = true
		m.advisory = ""
		m.mu.Unlock()
		return m.State()
	}

	if s, err := m.devices.AcquireUserMedia(ctx, false, true); err == nil {
		m.log.Info("camera unavailable, degraded to audio-only")
		m.mu.Lock()
		m.stream = s
		m.mode = MediaModeAudioOnly
		m.cameraEnabled = false
		m.micEnabled = true
		m.advisory = AdvisoryCameraUnavailable
		m.mu.Unlock()
		return m.State()
	}

	m.log.Warn("no capture devices available, call is chat-only")
	m.mu.Lock()
	m.mode = MediaModeNone
	m.cameraEnabled = false
	m.micEnabled = false
	m.advisory = AdvisoryNoDevices
	m.mu.Unlock()
	return m.State()
}

// ToggleMute flips the microphone track. Returns the new muted state.
// With no audio track it reports ErrMediaUnavailable instead of a silent no-op.
func (m *MediaChain) ToggleMute() (muted bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return false, ErrMediaUnavailable
	}
	tracks := m.stream.Tracks(TrackKindAudio)
	if len(tracks) == 0 {
		return false, ErrMediaUnavailable
	}
	m.micEnabled = !m.micEnabled
	for _, t := range tracks {
		t.SetEnabled(m.micEnabled)
	}
	return !m.micEnabled, nil
}

// ToggleCamera flips the camera track when one exists. When the mode is
// audio-only or none and the user re-enables the camera, it attempts a fresh
// video-only acquisition, merges it into the existing stream, and upgrades
// the mode to video; otherwise it reports the camera still unavailable.
func (m *MediaChain) ToggleCamera(ctx context.Context) (on bool, err error) {
	m.mu.Lock()
	if m.mode == MediaModeVideo && m.stream != nil {
		tracks := m.stream.Tracks(TrackKindVideo)
		if len(tracks) > 0 {
			m.cameraEnabled = !m.cameraEnabled
			for _, t := range tracks {
				t.SetEnabled(m.cameraEnabled)
			}
			on = m.cameraEnabled
			m.mu.Unlock()
			return on, nil
		}
	}
	m.mu.Unlock()

	fresh, acqErr := m.devices.AcquireUserMedia(ctx, true, false)
	if acqErr != nil {
		return false, fmt.Errorf("camera re-acquisition: %w", ErrDeviceUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		m.stream = fresh
	} else {
		for _, t := range fresh.Tracks(TrackKindVideo) {
			m.stream.AddTrack(t)
		}
	}
	m.mode = MediaModeVideo
	m.cameraEnabled = true
	m.advisory = ""
	return true, nil
}

// StartScreenShare acquires a display stream and makes it the active render
// target. If the user stops sharing via the runtime's native control, render
// targets revert to the camera stream automatically.
func (m *MediaChain) StartScreenShare(ctx context.Context) error {
	m.mu.Lock()
	if m.screenSharing {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	display, err := m.devices.AcquireDisplayMedia(ctx)
	if err != nil {
		return fmt.Errorf("screen capture: %w", err)
	}

	m.mu.Lock()
	m.display = display
	m.screenSharing = true
	m.mu.Unlock()

	// Native stop control (outside this UI): revert without stopping tracks
	// twice; the runtime already ended them.
	display.OnEnded(func() {
		m.mu.Lock()
		if m.display == display {
			m.display = nil
			m.screenSharing = false
		}
		m.mu.Unlock()
		m.log.Info("screen share ended by runtime, reverted to camera")
	})
	return nil
}

// StopScreenShare reverts to the camera stream and releases the display
// capture. No-op when not sharing.
func (m *MediaChain) StopScreenShare() {
	m.mu.Lock()
	display := m.display
	m.display = nil
	m.screenSharing = false
	m.mu.Unlock()
	if display != nil {
		display.Close()
	}
}

// ActiveStream returns the stream currently rendered as the call's live
// stream: the display capture while sharing, the camera stream otherwise.
// May be nil in chat-only mode.
func (m *MediaChain) ActiveStream() Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.screenSharing && m.display != nil {
		return m.display
	}
	return m.stream
}

// State returns a snapshot of the chain.
func (m *MediaChain) State() MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MediaState{
		Mode:          m.mode,
		CameraEnabled: m.cameraEnabled,
		MicEnabled:    m.micEnabled,
		ScreenSharing: m.screenSharing,
		Advisory:      m.advisory,
	}
}

// ReleaseAll stops every acquired track and resets the chain. Safe to call
// repeatedly; Track.Stop is idempotent by contract.
func (m *MediaChain) ReleaseAll() {
	m.mu.Lock()
	stream, display := m.stream, m.display
	m.stream = nil
	m.display = nil
	m.mode = MediaModeNone
	m.cameraEnabled = false
	m.micEnabled = false
	m.screenSharing = false
	m.mu.Unlock()

	if display != nil {
		display.Close()
	}
	if stream != nil {
		stream.Close()
	}
}
