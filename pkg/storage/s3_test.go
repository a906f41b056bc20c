package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordingKey(t *testing.T) {
	key := RecordingKey("c-123", "s-456", ".webm")
	assert.Equal(t, "recordings/c-123/s-456.webm", key)
}

func TestKeyFromObjectURL(t *testing.T) {
	key := KeyFromObjectURL("https://bucket.s3.eu-west-1.amazonaws.com/recordings/c-123/s-456.mp4")
	assert.Equal(t, "recordings/c-123/s-456.mp4", key)
}

func TestKeyFromObjectURLUnparseable(t *testing.T) {
	assert.Empty(t, KeyFromObjectURL("://not a url"))
}
