package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// replySink edits an interaction reply, spacing edits by a minimum interval.
type replySink struct {
	resp        responder
	interaction *discordgo.Interaction
	limiter     *rate.Limiter
}

func newReplySink(resp responder, interaction *discordgo.Interaction, interval time.Duration) *replySink {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &replySink{
		resp:        resp,
		interaction: interaction,
		limiter:     rate.NewLimiter(limit, 1),
	}
}

// Update implements progress.Sink.
func (s *replySink) Update(ctx context.Context, content string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.resp.Edit(s.interaction, content)
}
