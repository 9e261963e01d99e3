package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/guildbox/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name          string
		minMinutes    float64
		maxMinutes    float64
		trackDuration time.Duration
		shouldReject  bool
	}{
		{name: "within limits", minMinutes: 2, maxMinutes: 5, trackDuration: 3 * time.Minute},
		{name: "too short", minMinutes: 3, trackDuration: 2 * time.Minute, shouldReject: true},
		{name: "too long", minMinutes: 1, maxMinutes: 5, trackDuration: 6 * time.Minute, shouldReject: true},
		{name: "exact min", minMinutes: 3, trackDuration: 3 * time.Minute},
		{name: "exact max", maxMinutes: 5, trackDuration: 5 * time.Minute},
		{name: "no max limit", minMinutes: 1, trackDuration: 90 * time.Minute},
		{name: "live track ignores limits", minMinutes: 1, maxMinutes: 5, trackDuration: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			f.config = &DurationLimitConfig{
				MinMinutes: tt.minMinutes,
				MaxMinutes: tt.maxMinutes,
			}

			result := f.Check(context.Background(), Request{Track: track.Track{Duration: tt.trackDuration}})

			if tt.shouldReject {
				assert.False(t, result.Accepted)
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			} else {
				assert.True(t, result.Accepted)
			}
		})
	}
}

func TestDurationLimitFilter_Unconfigured(t *testing.T) {
	f := NewDurationLimitFilter()
	result := f.Check(context.Background(), Request{Track: track.Track{Duration: time.Hour}})
	assert.True(t, result.Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "floats", settings: map[string]any{"min_minutes": 2.5, "max_minutes": 5.0}},
		{name: "integers", settings: map[string]any{"min_minutes": 2, "max_minutes": 5}},
		{name: "min greater than max", settings: map[string]any{"min_minutes": 10, "max_minutes": 5}, wantErr: true},
		{name: "negative min", settings: map[string]any{"min_minutes": -1.0}, wantErr: true},
		{name: "negative max", settings: map[string]any{"max_minutes": -1.0}, wantErr: true},
		{name: "zero max means no limit", settings: map[string]any{"min_minutes": 3, "max_minutes": 0}},
		{name: "empty settings", settings: map[string]any{}},
		{name: "wrong type", settings: map[string]any{"min_minutes": "short"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDurationLimitFilter().ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
