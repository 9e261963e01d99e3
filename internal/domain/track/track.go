// Package track provides the Track domain entity.
package track

import (
	"time"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned by track resolution when a query matches nothing.
var ErrNotFound = errors.New("track not found")

// Track is a resolved, playable item. It is a value: once resolved it is never mutated.
type Track struct {
	ID       string        // Opaque handle understood by the playback port
	Title    string        // Display title
	Artists  []string      // Artist names (may be empty)
	Duration time.Duration // Zero for live streams or unknown length
	URL      string        // Public link for replies
}

// IsLive reports whether the track has no known length.
func (t Track) IsLive() bool {
	return t.Duration <= 0
}

// DurationMs returns the duration in whole milliseconds.
func (t Track) DurationMs() int64 {
	if t.Duration < 0 {
		return 0
	}
	return t.Duration.Milliseconds()
}

// DisplayTitle returns "Artist - Title" when an artist is known.
func (t Track) DisplayTitle() string {
	if len(t.Artists) == 0 || t.Artists[0] == "" {
		return t.Title
	}
	return t.Artists[0] + " - " + t.Title
}

// QueuedTrack is a track placed in a guild queue.
type QueuedTrack struct {
	Track       Track     // Resolved track
	RequesterID string    // User who requested it
	AddedAt     time.Time // Time when added to queue
}

// NewQueuedTrack wraps t with requester information and the current time.
func NewQueuedTrack(t Track, requesterID string) QueuedTrack {
	return QueuedTrack{
		Track:       t,
		RequesterID: requesterID,
		AddedAt:     time.Now(),
	}
}
