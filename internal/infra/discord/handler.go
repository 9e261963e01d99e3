package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/music"
	"github.com/osa030/guildbox/internal/app/progress"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
	"github.com/osa030/guildbox/internal/infra/config"
)

// DefaultCommandTimeout bounds the work done for a single command.
const DefaultCommandTimeout = 15 * time.Second

// Service is the music facade used by command handlers.
type Service interface {
	Play(ctx context.Context, req music.PlayRequest) (music.PlayResult, error)
	Skip(ctx context.Context, guildID string) (track.QueuedTrack, error)
	Stop(ctx context.Context, guildID string) (int, error)
	SetVolume(ctx context.Context, guildID string, volume int) error
	NowPlaying(guildID string) (session.NowPlaying, error)
	ShowProgress(ctx context.Context, guildID string, sink progress.Sink) (*progress.Task, error)
}

// responder sends and edits interaction replies.
type responder interface {
	Respond(in *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Edit(in *discordgo.Interaction, content string) error
}

type sessionResponder struct {
	session *discordgo.Session
}

func (r sessionResponder) Respond(in *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(in, resp)
}

func (r sessionResponder) Edit(in *discordgo.Interaction, content string) error {
	_, err := r.session.InteractionResponseEdit(in, &discordgo.WebhookEdit{Content: &content})
	return err
}

// HandlerConfig represents command handler configuration.
type HandlerConfig struct {
	Messages       config.MessagesConfig
	EditInterval   time.Duration // Minimum spacing of progress edits
	CommandTimeout time.Duration
}

// Handler dispatches slash commands to the music service.
type Handler struct {
	svc          Service
	resp         responder
	voiceChannel func(guildID, userID string) string
	cfg          HandlerConfig

	mu    sync.Mutex
	tasks map[*progress.Task]struct{}
}

func newHandler(svc Service, resp responder, voiceChannel func(guildID, userID string) string, cfg HandlerConfig) *Handler {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	return &Handler{
		svc:          svc,
		resp:         resp,
		voiceChannel: voiceChannel,
		cfg:          cfg,
		tasks:        make(map[*progress.Task]struct{}),
	}
}

// Handle processes one interaction. ctx bounds progress displays started by it.
func (h *Handler) Handle(ctx context.Context, ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil || ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if ic.GuildID == "" {
		return
	}
	data := ic.ApplicationCommandData()
	userID := interactionUser(ic.Interaction)
	zlog.Info().Msgf("discord: command received: guild_id=%s user_id=%s command=%s", ic.GuildID, userID, data.Name)

	var err error
	switch data.Name {
	case cmdPlay:
		err = h.play(ctx, ic.Interaction, userID, stringOption(data, optSong))
	case cmdSkip:
		err = h.skip(ctx, ic.Interaction)
	case cmdStop:
		err = h.stop(ctx, ic.Interaction)
	case cmdVolume:
		err = h.volume(ctx, ic.Interaction, int(intOption(data, optAmount)))
	case cmdNowPlaying:
		err = h.nowPlaying(ctx, ic.Interaction)
	default:
		zlog.Warn().Msgf("discord: unknown command: %s", data.Name)
		return
	}
	if err != nil {
		zlog.Error().Err(err).Msgf("discord: failed to reply: guild_id=%s command=%s", ic.GuildID, data.Name)
	}
}

func (h *Handler) play(ctx context.Context, in *discordgo.Interaction, userID, query string) error {
	if err := h.resp.Respond(in, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		return errors.Wrap(err, "failed to defer reply")
	}

	cctx, cancel := context.WithTimeout(ctx, h.cfg.CommandTimeout)
	defer cancel()

	res, err := h.svc.Play(cctx, music.PlayRequest{
		GuildID:     in.GuildID,
		ChannelID:   h.voiceChannel(in.GuildID, userID),
		RequesterID: userID,
		Query:       query,
	})
	if err != nil {
		zlog.Warn().Err(err).Msgf("discord: play failed: guild_id=%s query=%q", in.GuildID, query)
		return h.resp.Edit(in, errorReply(h.cfg.Messages, err, h.cfg.Messages.PlayError))
	}
	return h.resp.Edit(in, fmt.Sprintf(h.cfg.Messages.Queued, res.Track.Title))
}

func (h *Handler) skip(ctx context.Context, in *discordgo.Interaction) error {
	cctx, cancel := context.WithTimeout(ctx, h.cfg.CommandTimeout)
	defer cancel()

	if _, err := h.svc.Skip(cctx, in.GuildID); err != nil {
		return h.reply(in, errorReply(h.cfg.Messages, err, h.cfg.Messages.DefaultError))
	}
	return h.reply(in, h.cfg.Messages.Skipped)
}

func (h *Handler) stop(ctx context.Context, in *discordgo.Interaction) error {
	cctx, cancel := context.WithTimeout(ctx, h.cfg.CommandTimeout)
	defer cancel()

	if _, err := h.svc.Stop(cctx, in.GuildID); err != nil {
		return h.reply(in, errorReply(h.cfg.Messages, err, h.cfg.Messages.DefaultError))
	}
	return h.reply(in, h.cfg.Messages.Stopped)
}

func (h *Handler) volume(ctx context.Context, in *discordgo.Interaction, amount int) error {
	cctx, cancel := context.WithTimeout(ctx, h.cfg.CommandTimeout)
	defer cancel()

	if err := h.svc.SetVolume(cctx, in.GuildID, amount); err != nil {
		return h.reply(in, errorReply(h.cfg.Messages, err, h.cfg.Messages.DefaultError))
	}
	return h.reply(in, fmt.Sprintf(h.cfg.Messages.VolumeSet, amount))
}

func (h *Handler) nowPlaying(ctx context.Context, in *discordgo.Interaction) error {
	if _, err := h.svc.NowPlaying(in.GuildID); err != nil {
		return h.reply(in, h.cfg.Messages.NothingPlayingNow)
	}
	if err := h.reply(in, h.cfg.Messages.Loading); err != nil {
		return err
	}

	task, err := h.svc.ShowProgress(ctx, in.GuildID, newReplySink(h.resp, in, h.cfg.EditInterval))
	if err != nil {
		return h.resp.Edit(in, h.cfg.Messages.NothingPlayingNow)
	}
	h.track(task)
	return nil
}

// track remembers a running task until it finishes.
func (h *Handler) track(task *progress.Task) {
	h.mu.Lock()
	h.tasks[task] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-task.Done()
		h.mu.Lock()
		delete(h.tasks, task)
		h.mu.Unlock()
	}()
}

// Close stops every running progress display.
func (h *Handler) Close() {
	h.mu.Lock()
	tasks := make([]*progress.Task, 0, len(h.tasks))
	for task := range h.tasks {
		tasks = append(tasks, task)
	}
	h.mu.Unlock()

	for _, task := range tasks {
		task.Stop()
	}
}

func (h *Handler) reply(in *discordgo.Interaction, content string) error {
	return h.resp.Respond(in, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

func interactionUser(in *discordgo.Interaction) string {
	if in.Member != nil && in.Member.User != nil {
		return in.Member.User.ID
	}
	if in.User != nil {
		return in.User.ID
	}
	return ""
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

func intOption(data discordgo.ApplicationCommandInteractionData, name string) int64 {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionInteger {
			return opt.IntValue()
		}
	}
	return 0
}
