// Package media defines the seam between call sessions and local device
// capture. Real device acquisition is platform glue supplied by the host
// application; sessions only depend on these interfaces.
package media

import (
	"context"

	"freightlink-client/internal/domain"
)

// Handle is an acquired local media source (microphone, and camera for
// video calls). Mute and camera-off are plain track toggles; they never
// renegotiate the session.
type Handle interface {
	EnableAudio(enabled bool)
	EnableVideo(enabled bool)
	Stop()
}

// RemoteStream is the peer's media stream delivered by the signaling layer
type RemoteStream interface {
	Stop()
}

// Provider acquires local media for a call
type Provider interface {
	Acquire(ctx context.Context, kind domain.MediaKind) (Handle, error)
}

// NoopHandle is a media handle with no device behind it
type NoopHandle struct{}

func (NoopHandle) EnableAudio(bool) {}
func (NoopHandle) EnableVideo(bool) {}
func (NoopHandle) Stop()            {}

// NoopProvider acquires NoopHandles. It is the default for headless runs
// where no capture devices exist.
type NoopProvider struct{}

// Acquire returns a NoopHandle
func (NoopProvider) Acquire(ctx context.Context, kind domain.MediaKind) (Handle, error) {
	return NoopHandle{}, nil
}
