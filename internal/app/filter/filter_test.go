package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/domain/track"
)

func TestUserPendingFilter_Check(t *testing.T) {
	tests := []struct {
		name          string
		maxPending    int
		queuedByUser  int
		currentByUser bool
		wantAccepted  bool
	}{
		{name: "no pending tracks", queuedByUser: 0, wantAccepted: true},
		{name: "below default limit", queuedByUser: 2, wantAccepted: true},
		{name: "at default limit", queuedByUser: 3, wantAccepted: false},
		{name: "playing track not counted", queuedByUser: 2, currentByUser: true, wantAccepted: true},
		{name: "custom limit", maxPending: 1, queuedByUser: 1, wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &UserPendingFilter{}
			require.NoError(t, f.ValidateConfig(map[string]any{"max_pending": tt.maxPending}))

			req := Request{
				RequesterID: "user-1",
				Track:       track.Track{ID: "new"},
				Queue:       []track.QueuedTrack{queued(track.Track{ID: "other"}, "user-2")},
			}
			for i := 0; i < tt.queuedByUser; i++ {
				req.Queue = append(req.Queue, queued(track.Track{ID: "mine"}, "user-1"))
			}
			if tt.currentByUser {
				cur := queued(track.Track{ID: "playing"}, "user-1")
				req.Current = &cur
			}

			result := f.Check(context.Background(), req)
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "user_pending", result.Code)
			}
		})
	}
}

func TestUserPendingFilter_ValidateConfig(t *testing.T) {
	f := &UserPendingFilter{}
	assert.NoError(t, f.ValidateConfig(nil))
	assert.Equal(t, DefaultMaxPending, f.limit())
	assert.Error(t, f.ValidateConfig(map[string]any{"max_pending": -1}))
	assert.Error(t, f.ValidateConfig(map[string]any{"max_pending": "lots"}))
}

func TestBuild(t *testing.T) {
	t.Run("enabled filters only", func(t *testing.T) {
		chain, err := Build(map[string]Setting{
			"duration_limit_filter":  {Enabled: true, Settings: map[string]any{"max_minutes": 10}},
			"duplicate_track_filter": {Enabled: false},
			"user_pending_filter":    {Enabled: true},
		})
		require.NoError(t, err)

		names := make([]string, 0)
		for _, f := range chain.Filters() {
			names = append(names, f.Name())
		}
		assert.Equal(t, []string{"duration_limit_filter", "user_pending_filter"}, names)
	})

	t.Run("unknown filter", func(t *testing.T) {
		_, err := Build(map[string]Setting{"kicked_listener_filter": {Enabled: true}})
		assert.Error(t, err)
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := Build(map[string]Setting{
			"duration_limit_filter": {Enabled: true, Settings: map[string]any{"min_minutes": 10, "max_minutes": 5}},
		})
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		chain, err := Build(nil)
		require.NoError(t, err)
		assert.Empty(t, chain.Filters())
	})
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"duplicate_track_filter", "duration_limit_filter", "user_pending_filter"}, Names())
}

func TestChain_FirstRejectionWins(t *testing.T) {
	chain, err := Build(map[string]Setting{
		"duplicate_track_filter": {Enabled: true},
		"duration_limit_filter":  {Enabled: true, Settings: map[string]any{"max_minutes": 5}},
	})
	require.NoError(t, err)

	long := track.Track{ID: "t1", Title: "Epic", Duration: 20 * time.Minute}
	req := Request{Track: long, Queue: []track.QueuedTrack{queued(long, "user-2")}}

	// duplicate_track_filter sorts first.
	result := chain.Execute(context.Background(), req)
	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_track", result.Code)

	req.Queue = nil
	result = chain.Execute(context.Background(), req)
	assert.Equal(t, "duration_limit_exceeded", result.Code)

	req.Track = track.Track{ID: "t2", Duration: 3 * time.Minute}
	assert.True(t, chain.Execute(context.Background(), req).Accepted)
}
