// Package discord connects the music service to Discord slash commands and voice.
package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/infra/clock"
)

// Config represents bot configuration.
type Config struct {
	Token   string
	GuildID string // Commands are registered globally when empty
	Handler HandlerConfig
}

// Bot is a Discord gateway connection serving music commands.
type Bot struct {
	session *discordgo.Session
	cfg     Config
	handler *Handler
}

// New creates a bot. The gateway is not opened until Start.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)
	s.State.TrackVoice = true
	s.LogLevel = discordgo.LogWarning
	discordgo.Logger = logBridge

	return &Bot{session: s, cfg: cfg}, nil
}

// Joiner returns the voice joiner backed by this bot's gateway session.
func (b *Bot) Joiner() clock.VoiceJoiner {
	return &voiceJoiner{session: b.session}
}

// Start opens the gateway, registers the commands and dispatches interactions
// to svc until Close. ctx bounds command handling.
func (b *Bot) Start(ctx context.Context, svc Service) error {
	b.handler = newHandler(svc, sessionResponder{session: b.session}, func(guildID, userID string) string {
		return voiceChannelOf(b.session, guildID, userID)
	}, b.cfg.Handler)

	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		zlog.Info().Msgf("discord: ready: user=%s guilds=%d", r.User.Username, len(r.Guilds))
	})
	b.session.AddHandler(func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		b.handler.Handle(ctx, ic)
	})

	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord session")
	}

	appID := ""
	if b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	n, err := registerCommands(func(appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
		return b.session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	}, appID, b.cfg.GuildID)
	if err != nil {
		_ = b.session.Close()
		return err
	}
	zlog.Info().Msgf("discord: commands registered: count=%d guild_id=%q", n, b.cfg.GuildID)
	return nil
}

// Close stops progress displays and closes the gateway.
func (b *Bot) Close() error {
	if b.handler != nil {
		b.handler.Close()
	}
	if err := b.session.Close(); err != nil {
		return errors.Wrap(err, "failed to close discord session")
	}
	return nil
}

// logBridge routes discordgo logs to zerolog.
func logBridge(msgL, _ int, format string, a ...interface{}) {
	var ev *zerolog.Event
	switch msgL {
	case discordgo.LogError:
		ev = zlog.Error()
	case discordgo.LogWarning:
		ev = zlog.Warn()
	case discordgo.LogInformational:
		ev = zlog.Info()
	default:
		ev = zlog.Debug()
	}
	ev.Msgf("discordgo: "+format, a...)
}
