// Package progress renders and refreshes the now-playing display of a session.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/osa030/guildbox/internal/domain/track"
)

const (
	segment   = "▬"
	marker    = "🔘"
	liveLabel = "LIVE"
)

// Filled returns the number of segments before the marker.
// The result is clamped to [0, segments-1] so the bar keeps a fixed width.
func Filled(position, duration time.Duration, segments int) int {
	if segments <= 0 || duration <= 0 || position <= 0 {
		return 0
	}
	filled := int(int64(position) * int64(segments) / int64(duration))
	if filled > segments-1 {
		filled = segments - 1
	}
	return filled
}

// Bar renders a fixed-width progress bar of the given number of segments.
func Bar(position, duration time.Duration, segments int) string {
	if segments <= 0 {
		return ""
	}
	filled := Filled(position, duration, segments)
	var b strings.Builder
	b.WriteString(strings.Repeat(segment, filled))
	b.WriteString(marker)
	b.WriteString(strings.Repeat(segment, segments-filled-1))
	return b.String()
}

// FormatTime formats d as M:SS, truncating to whole seconds.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Render builds the now-playing message for t at position.
func Render(t track.Track, position time.Duration, segments int) string {
	total := liveLabel
	if !t.IsLive() {
		total = FormatTime(t.Duration)
		if position > t.Duration {
			position = t.Duration
		}
	}
	return fmt.Sprintf("🎵 **Now Playing**\n**%s**\n\n%s %s %s",
		t.Title, FormatTime(position), Bar(position, t.Duration, segments), total)
}
