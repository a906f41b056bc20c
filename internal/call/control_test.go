package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haikarthick/OnlineDoctorConsultation-sub002/internal/models"
)

func newTestController(b *fakeBackend, d *fakeDevices, f *fakeRecorderFactory) *Controller {
	c := NewController(b, d, f, uuid.New(), nil)
	c.Coordinator().SetPollInterval(testPollInterval)
	c.Chat().SetPollInterval(testPollInterval)
	return c
}

func TestControllerJoinWaitingEnablesChat(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	sess := backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())
	backend.addMessage(sess.ID, uuid.New(), "be right there")

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseWaiting, snap.Phase)
	assert.True(t, snap.CanJoin)
	assert.True(t, snap.CanEnd)
	assert.False(t, snap.CanRecord)

	// Chat runs before the call is joined.
	require.Eventually(t, func() bool { return len(ctrl.Messages()) == 1 },
		eventuallyWait, eventuallyTick)
}

func TestControllerChatFollowsAdoptedSession(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	old := backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now().Add(-time.Minute))

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.Equal(t, old.ID, ctrl.Coordinator().SessionID())

	// The other party's concurrent create won; messages land on the winner.
	winner := backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())
	backend.addMessage(winner.ID, uuid.New(), "over here")

	require.Eventually(t, func() bool { return ctrl.Coordinator().SessionID() == winner.ID },
		eventuallyWait, eventuallyTick)

	// The message poll re-keys on the adopted id; the winner's messages
	// arrive even though the phase never changed.
	require.Eventually(t, func() bool {
		msgs := ctrl.Messages()
		return len(msgs) == 1 && msgs[0].Message == "over here"
	}, eventuallyWait, eventuallyTick)
}

func TestControllerStartCallAcquiresMedia(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, MediaModeVideo, snap.Media.Mode)
	assert.False(t, snap.CanJoin)
	assert.True(t, snap.CanEnd)
	assert.True(t, snap.CanRecord)
}

func TestControllerAudioOnlyJoin(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{denyVideo: true}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, MediaModeAudioOnly, snap.Media.Mode)
	assert.Equal(t, AdvisoryCameraUnavailable, snap.Media.Advisory)
	assert.True(t, snap.CanRecord)
}

func TestControllerChatOnlyJoinDisablesRecording(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{denyAll: true}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseActive, snap.Phase)
	assert.Equal(t, MediaModeNone, snap.Media.Mode)
	assert.False(t, snap.CanRecord)

	err := ctrl.ToggleRecording()
	assert.ErrorIs(t, err, ErrNoActiveStream)
}

func TestControllerEndCallFinalizesRecordingBeforeRelease(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))
	require.NoError(t, ctrl.ToggleRecording())

	require.NoError(t, ctrl.EndCall(context.Background()))

	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseEnded, snap.Phase)
	assert.Equal(t, MediaModeNone, snap.Media.Mode)
	require.NotNil(t, ctrl.Recording().Artifact())
	assert.True(t, devices.userStreams[0].closed())
}

func TestControllerEndCallReleasesEvenWhenBackendFails(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))
	require.NoError(t, ctrl.ToggleRecording())

	backend.setErr("end", errors.New("gateway timeout"))
	err := ctrl.EndCall(context.Background())
	require.Error(t, err)

	// Camera lock, poll timers and recorder are all released regardless.
	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseEnded, snap.Phase)
	assert.Equal(t, MediaModeNone, snap.Media.Mode)
	assert.True(t, devices.userStreams[0].closed())
	require.NotNil(t, ctrl.Recording().Artifact())
	assert.NotEmpty(t, snap.Error)

	ctrl.DismissError()
	assert.Empty(t, ctrl.Snapshot().Error)
}

func TestControllerRemoteEndReleasesResources(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	sess := backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))
	require.NoError(t, ctrl.ToggleRecording())

	// The other party hangs up; our poll observes it.
	backend.setStatus(sess.ID, models.SessionStatusEnded)
	require.Eventually(t, func() bool { return ctrl.Snapshot().Phase == PhaseEnded },
		eventuallyWait, eventuallyTick)

	assert.Equal(t, MediaModeNone, ctrl.Snapshot().Media.Mode)
	assert.True(t, devices.userStreams[0].closed())
	require.NotNil(t, ctrl.Recording().Artifact())
}

func TestControllerRecordsActiveStreamDuringScreenShare(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{}
	factory := newFakeRecorderFactory("video/webm")
	ctrl := newTestController(backend, devices, factory)
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))
	require.NoError(t, ctrl.ToggleScreenShare(context.Background()))
	require.NoError(t, ctrl.ToggleRecording())

	// The recorder is bound to the stream live at start: the display capture.
	require.Len(t, devices.displays, 1)
	assert.Same(t, devices.displays[0], ctrl.Media().ActiveStream().(*fakeStream))

	// Stopping the share does not retarget the running recorder; it keeps
	// recording until stopped.
	require.NoError(t, ctrl.ToggleScreenShare(context.Background()))
	assert.Equal(t, RecordingRunning, ctrl.Recording().State())
	require.NoError(t, ctrl.ToggleRecording())
	require.NotNil(t, ctrl.Recording().Artifact())
}

func TestControllerSendDraftRestoresOnFailure(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()
	require.NoError(t, ctrl.Join(context.Background(), consult.ID))

	ctrl.SetDraft("how is she eating?")
	backend.setErr("send", errors.New("boom"))
	require.Error(t, ctrl.SendDraft(context.Background()))
	assert.Equal(t, "how is she eating?", ctrl.Draft())

	backend.setErr("send", nil)
	require.NoError(t, ctrl.SendDraft(context.Background()))
	assert.Empty(t, ctrl.Draft())
	assert.Len(t, ctrl.Messages(), 1)
}

func TestControllerSendEmptyDraftIsNoop(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()
	require.NoError(t, ctrl.Join(context.Background(), consult.ID))

	require.NoError(t, ctrl.SendDraft(context.Background()))
	assert.Empty(t, ctrl.Messages())
}

func TestControllerCompletedConsultationShowsPrescriptions(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusCompleted)
	backend.prescriptions[consult.ID] = []models.Prescription{
		{ID: uuid.New(), ConsultationID: consult.ID, Medication: "Meloxicam", Dosage: "1.5mg/ml"},
	}

	ctrl := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer ctrl.Teardown()

	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	snap := ctrl.Snapshot()
	assert.Equal(t, PhaseEnded, snap.Phase)
	assert.False(t, snap.CanJoin)
	assert.False(t, snap.CanEnd)
	assert.Equal(t, 0, backend.createCalls)

	rx, err := ctrl.Prescriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, rx, 1)
	assert.Equal(t, "Meloxicam", rx[0].Medication)
}

func TestControllerTeardownIsRepeatable(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)
	backend.addSession(consult.ID, models.SessionStatusWaiting, time.Now())

	devices := &fakeDevices{}
	ctrl := newTestController(backend, devices, newFakeRecorderFactory("video/webm"))
	require.NoError(t, ctrl.Join(context.Background(), consult.ID))
	require.NoError(t, ctrl.StartCall(context.Background()))

	ctrl.Teardown()
	ctrl.Teardown()
	assert.True(t, devices.userStreams[0].closed())
	// Navigation away does not end the session for the other party.
	assert.Equal(t, 0, backend.endCalls)
}

func TestTwoClientsConvergeOnOneSession(t *testing.T) {
	backend := newFakeBackend()
	consult := backend.addConsultation(models.ConsultationStatusScheduled)

	vet := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	client := newTestController(backend, &fakeDevices{}, newFakeRecorderFactory("video/webm"))
	defer vet.Teardown()
	defer client.Teardown()

	// Both open the consultation near-simultaneously; the backend's create
	// is idempotent, so both land on the same session record.
	require.NoError(t, vet.Join(context.Background(), consult.ID))
	require.NoError(t, client.Join(context.Background(), consult.ID))
	require.Equal(t, vet.Coordinator().SessionID(), client.Coordinator().SessionID())

	// One side joins; the other observes the transition via polling.
	require.NoError(t, vet.StartCall(context.Background()))
	require.Eventually(t, func() bool { return client.Snapshot().Phase == PhaseActive },
		eventuallyWait, eventuallyTick)

	// Chat flows both ways through the shared session.
	vet.SetDraft("hello, can you see the screen?")
	require.NoError(t, vet.SendDraft(context.Background()))
	require.Eventually(t, func() bool { return len(client.Messages()) == 1 },
		eventuallyWait, eventuallyTick)

	// One side hangs up; the other lands in the ended view with media freed.
	require.NoError(t, vet.EndCall(context.Background()))
	require.Eventually(t, func() bool { return client.Snapshot().Phase == PhaseEnded },
		eventuallyWait, eventuallyTick)
	assert.Equal(t, MediaModeNone, client.Snapshot().Media.Mode)
}
