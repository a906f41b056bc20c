package call

import "errors"

// Sentinel errors for mapping component outcomes to user-facing handling.
var (
	// ErrDeviceUnavailable: camera/mic/screen capture denied or absent. Non-fatal;
	// the media chain degrades and chat-only operation stays available.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrUserCancelled: the user dismissed the screen-capture picker.
	ErrUserCancelled = errors.New("user cancelled")
	// ErrMediaUnavailable: a toggle was requested but no matching track exists.
	ErrMediaUnavailable = errors.New("media unavailable")
	// ErrRecordingUnsupported: no compatible recording format found.
	ErrRecordingUnsupported = errors.New("recording unsupported")
	// ErrNoActiveStream: recording requested with no live stream.
	ErrNoActiveStream = errors.New("no active stream")
	// ErrAlreadyRecording: start requested while a recording is running.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrSessionNotJoinable: start requested outside the waiting phase.
	ErrSessionNotJoinable = errors.New("session not joinable")
)
