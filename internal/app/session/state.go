// Package session provides the per-guild playback state machine and its registry.
package session

import (
	"github.com/cockroachdb/errors"
)

// State represents the session lifecycle state.
type State int

const (
	StateIdle       State = iota // Queue empty, nothing playing, idle deadline armed
	StateActive                  // A track is playing or about to be set
	StateTerminated              // Final; no longer addressable
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Errors
var (
	ErrNothingPlaying = errors.New("nothing playing")
	ErrInvalidVolume  = errors.New("volume must be between 0 and 150")
	ErrJoinFailed     = errors.New("failed to join voice channel")
	ErrPlayback       = errors.New("playback error")
	ErrQueueFull      = errors.New("queue is full")

	// ErrTerminated is returned to commands that reached a session after it
	// terminated. It matches ErrNothingPlaying.
	ErrTerminated = errors.Mark(errors.New("session terminated"), ErrNothingPlaying)
)
