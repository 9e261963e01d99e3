package httpapi

import (
	"time"

	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
)

// TrackView is the JSON form of a queued track.
type TrackView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Artists     []string  `json:"artists,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	URL         string    `json:"url,omitempty"`
	RequesterID string    `json:"requester_id,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// SessionView is the JSON form of a session snapshot.
type SessionView struct {
	ID           string      `json:"id"`
	GuildID      string      `json:"guild_id"`
	State        string      `json:"state"`
	Current      *TrackView  `json:"current,omitempty"`
	Epoch        uint64      `json:"epoch"`
	Queue        []TrackView `json:"queue"`
	Volume       int         `json:"volume"`
	IdleDeadline *time.Time  `json:"idle_deadline,omitempty"`
	PositionMs   int64       `json:"position_ms"`
}

// VolumeRequest is the body of a volume change.
type VolumeRequest struct {
	Volume *int `json:"volume"`
}

// VolumeResponse reports the applied volume.
type VolumeResponse struct {
	Volume int `json:"volume"`
}

// SkipResponse reports the skipped track.
type SkipResponse struct {
	Skipped TrackView `json:"skipped"`
}

// StopResponse reports how many queued tracks were dropped.
type StopResponse struct {
	Dropped int `json:"dropped"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newTrackView(qt track.QueuedTrack) TrackView {
	return TrackView{
		ID:          qt.Track.ID,
		Title:       qt.Track.Title,
		Artists:     qt.Track.Artists,
		DurationMs:  qt.Track.DurationMs(),
		URL:         qt.Track.URL,
		RequesterID: qt.RequesterID,
		AddedAt:     qt.AddedAt,
	}
}

// NewSessionView converts a snapshot.
func NewSessionView(snap session.Snapshot) SessionView {
	v := SessionView{
		ID:         snap.ID,
		GuildID:    snap.GuildID,
		State:      snap.State.String(),
		Epoch:      snap.Epoch,
		Queue:      make([]TrackView, 0, len(snap.Queue)),
		Volume:     snap.Volume,
		PositionMs: snap.Position.Milliseconds(),
	}
	if snap.Current != nil {
		cur := newTrackView(*snap.Current)
		v.Current = &cur
	}
	for _, qt := range snap.Queue {
		v.Queue = append(v.Queue, newTrackView(qt))
	}
	if !snap.IdleDeadline.IsZero() {
		deadline := snap.IdleDeadline
		v.IdleDeadline = &deadline
	}
	return v
}
