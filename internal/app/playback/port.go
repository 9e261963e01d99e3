// Package playback defines the contract between guild sessions and the external audio player.
package playback

import (
	"context"
	"time"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Volume bounds accepted by SetVolume.
const (
	MinVolume     = 0
	MaxVolume     = 150
	DefaultVolume = 100
)

// Port acquires per-guild player handles.
type Port interface {
	// Join connects to a voice channel and returns a handle bound to it.
	Join(ctx context.Context, guildID, channelID string) (Handle, error)
}

// Request asks a handle to start a track.
// Epoch identifies this playback; it is echoed back on the matching Ended event.
type Request struct {
	Track track.Track
	Epoch uint64
}

// Handle controls playback for a single guild connection.
//
// Implementations must deliver exactly one event per successfully started
// request that ends on its own, and none for a request interrupted by Stop,
// a later Play or Disconnect. Position must be safe to call concurrently with
// the other methods.
type Handle interface {
	Play(ctx context.Context, req Request) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, volume int) error
	Disconnect(ctx context.Context) error
	Position() time.Duration
	Events() <-chan Event
}

// ValidVolume reports whether v is inside [MinVolume, MaxVolume].
func ValidVolume(v int) bool {
	return v >= MinVolume && v <= MaxVolume
}
