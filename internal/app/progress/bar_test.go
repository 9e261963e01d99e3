package progress

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/guildbox/internal/domain/track"
)

func TestFilled(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		duration time.Duration
		segments int
		expected int
	}{
		{name: "quarter", position: 30000 * time.Millisecond, duration: 120000 * time.Millisecond, segments: 20, expected: 5},
		{name: "start", position: 0, duration: time.Minute, segments: 20, expected: 0},
		{name: "floors partial segment", position: 5999 * time.Millisecond, duration: time.Minute, segments: 10, expected: 0},
		{name: "clamped at end", position: 2 * time.Minute, duration: time.Minute, segments: 20, expected: 19},
		{name: "negative position", position: -time.Second, duration: time.Minute, segments: 20, expected: 0},
		{name: "live track", position: time.Minute, duration: 0, segments: 20, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Filled(tt.position, tt.duration, tt.segments))
		})
	}
}

func TestBar(t *testing.T) {
	bar := Bar(30000*time.Millisecond, 120000*time.Millisecond, 20)

	before, after, found := strings.Cut(bar, marker)
	assert.True(t, found)
	assert.Equal(t, 5, utf8.RuneCountInString(before))
	assert.Equal(t, 14, utf8.RuneCountInString(after))

	// Width stays fixed at any position.
	for _, pos := range []time.Duration{0, 30 * time.Second, 2 * time.Minute, 3 * time.Minute} {
		b := Bar(pos, 2*time.Minute, 20)
		assert.Equal(t, 19, strings.Count(b, segment))
		assert.Equal(t, 1, strings.Count(b, marker))
	}

	assert.Empty(t, Bar(time.Second, time.Minute, 0))
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{d: 30000 * time.Millisecond, expected: "0:30"},
		{d: 125000 * time.Millisecond, expected: "2:05"},
		{d: 0, expected: "0:00"},
		{d: 59999 * time.Millisecond, expected: "0:59"},
		{d: 61 * time.Minute, expected: "61:00"},
		{d: -time.Second, expected: "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTime(tt.d))
		})
	}
}

func TestRender(t *testing.T) {
	trk := track.Track{Title: "Song", Duration: 2 * time.Minute}

	got := Render(trk, 30*time.Second, 20)
	assert.True(t, strings.HasPrefix(got, "🎵 **Now Playing**\n**Song**\n\n0:30 "))
	assert.True(t, strings.HasSuffix(got, " 2:00"))

	// Position past the end is shown as the end.
	assert.Contains(t, Render(trk, 3*time.Minute, 20), "2:00 ")

	live := Render(track.Track{Title: "Radio"}, 90*time.Second, 20)
	assert.True(t, strings.HasSuffix(live, " LIVE"))
	assert.Contains(t, live, "1:30 ")
}
