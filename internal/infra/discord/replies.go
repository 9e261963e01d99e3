package discord

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/app/music"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
	"github.com/osa030/guildbox/internal/infra/config"
)

// errorReply maps a command error to the message shown to the user.
// fallback is used for errors without a dedicated message.
func errorReply(msgs config.MessagesConfig, err error, fallback string) string {
	var rejected *music.RejectionError
	switch {
	case errors.As(err, &rejected):
		return msgs.ForCode(rejected.Code)
	case errors.Is(err, music.ErrNoVoiceChannel):
		return msgs.NotInVoice
	case errors.Is(err, track.ErrNotFound):
		return msgs.NoResults
	case errors.Is(err, session.ErrInvalidVolume):
		return msgs.InvalidVolume
	case errors.Is(err, session.ErrQueueFull):
		return msgs.QueueFull
	case errors.Is(err, session.ErrNothingPlaying):
		return msgs.NothingPlaying
	case errors.Is(err, session.ErrJoinFailed), errors.Is(err, session.ErrPlayback):
		return msgs.PlayError
	}
	return fallback
}
