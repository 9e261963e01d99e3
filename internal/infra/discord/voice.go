package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/infra/clock"
)

// voiceJoiner joins voice channels through the gateway session.
type voiceJoiner struct {
	session *discordgo.Session
}

// JoinVoice implements clock.VoiceJoiner. The bot joins deafened.
func (j *voiceJoiner) JoinVoice(_ context.Context, guildID, channelID string) (clock.VoiceConn, error) {
	vc, err := j.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to join voice channel %s", channelID)
	}
	return &voiceConn{vc: vc}, nil
}

type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) Disconnect(context.Context) error {
	return c.vc.Disconnect()
}

// voiceChannelOf returns the voice channel the user is connected to, or "".
func voiceChannelOf(s *discordgo.Session, guildID, userID string) string {
	if s.State == nil {
		return ""
	}
	if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs != nil {
		return vs.ChannelID
	}
	return ""
}
