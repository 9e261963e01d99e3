package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_IsLive(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected bool
	}{
		{name: "regular track", duration: 3 * time.Minute, expected: false},
		{name: "zero duration", duration: 0, expected: true},
		{name: "negative duration", duration: -time.Second, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trk := Track{ID: "test-id", Duration: tt.duration}
			assert.Equal(t, tt.expected, trk.IsLive())
		})
	}
}

func TestTrack_DurationMs(t *testing.T) {
	assert.Equal(t, int64(120000), Track{Duration: 2 * time.Minute}.DurationMs())
	assert.Equal(t, int64(0), Track{Duration: -time.Second}.DurationMs())
}

func TestTrack_DisplayTitle(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "with artist",
			track:    Track{Title: "Song", Artists: []string{"Artist 1", "Artist 2"}},
			expected: "Artist 1 - Song",
		},
		{
			name:     "no artists",
			track:    Track{Title: "Song"},
			expected: "Song",
		},
		{
			name:     "empty artist name",
			track:    Track{Title: "Song", Artists: []string{""}},
			expected: "Song",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.DisplayTitle())
		})
	}
}

func TestNewQueuedTrack(t *testing.T) {
	before := time.Now()
	qt := NewQueuedTrack(Track{ID: "abc", Title: "Song"}, "user-1")

	assert.Equal(t, "abc", qt.Track.ID)
	assert.Equal(t, "user-1", qt.RequesterID)
	assert.False(t, qt.AddedAt.Before(before))
}
