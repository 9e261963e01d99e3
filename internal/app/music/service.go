// Package music is the command-facing facade over guild sessions.
package music

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/filter"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/progress"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
)

// ErrNoVoiceChannel is returned by Play when the requester is not in a voice channel.
var ErrNoVoiceChannel = errors.New("requester is not in a voice channel")

// RejectionError is returned by Play when an enqueue filter rejects the track.
type RejectionError struct {
	Code string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("track rejected: %s", e.Code)
}

// Resolver turns a free-form query into a playable track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (track.Track, error)
}

// PlayRequest is a request to queue a track in a guild.
type PlayRequest struct {
	GuildID     string
	ChannelID   string // Voice channel of the requester
	RequesterID string
	Query       string
}

// PlayResult describes a queued track.
type PlayResult struct {
	Track    track.Track
	Started  bool
	Position int
}

// Service routes commands to guild sessions.
type Service struct {
	resolver Resolver
	registry *session.Registry
	chain    *filter.Chain
	reporter *progress.Reporter
}

// NewService creates a music service. A nil chain accepts every track.
func NewService(resolver Resolver, registry *session.Registry, chain *filter.Chain, reporter *progress.Reporter) *Service {
	if chain == nil {
		chain = filter.NewChain()
	}
	return &Service{
		resolver: resolver,
		registry: registry,
		chain:    chain,
		reporter: reporter,
	}
}

// Play resolves the query, runs the enqueue filters and queues the track,
// joining the requester's voice channel when the guild has no session.
func (s *Service) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	if req.ChannelID == "" {
		return PlayResult{}, ErrNoVoiceChannel
	}

	t, err := s.resolver.Resolve(ctx, req.Query)
	if err != nil {
		return PlayResult{}, errors.Wrapf(err, "resolve %q", req.Query)
	}

	freq := filter.Request{GuildID: req.GuildID, RequesterID: req.RequesterID, Track: t}
	if sess, ok := s.registry.Get(req.GuildID); ok {
		snap := sess.Snapshot()
		freq.Current = snap.Current
		freq.Queue = snap.Queue
	}
	if result := s.chain.Execute(ctx, freq); !result.Accepted {
		zlog.Info().Msgf("music: track rejected: guild_id=%s requester=%s track=%q code=%s",
			req.GuildID, req.RequesterID, t.Title, result.Code)
		return PlayResult{Track: t}, &RejectionError{Code: result.Code}
	}

	qt := track.NewQueuedTrack(t, req.RequesterID)
	for attempt := 0; ; attempt++ {
		sess, err := s.registry.GetOrCreate(ctx, req.GuildID, req.ChannelID)
		if err != nil {
			return PlayResult{Track: t}, err
		}

		res, err := sess.Enqueue(ctx, qt)
		if errors.Is(err, session.ErrTerminated) && attempt == 0 {
			// The session terminated between lookup and enqueue; a fresh one is joined.
			continue
		}
		if err != nil {
			return PlayResult{Track: t}, err
		}
		return PlayResult{Track: t, Started: res.Started, Position: res.Position}, nil
	}
}

// Skip skips the current track of a guild.
func (s *Service) Skip(ctx context.Context, guildID string) (track.QueuedTrack, error) {
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return track.QueuedTrack{}, session.ErrNothingPlaying
	}
	return sess.Skip(ctx)
}

// Stop stops playback in a guild and leaves voice. It returns the number of dropped tracks.
func (s *Service) Stop(ctx context.Context, guildID string) (int, error) {
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return 0, session.ErrNothingPlaying
	}
	return sess.Stop(ctx)
}

// SetVolume sets the volume of a guild. The range is checked before anything else.
func (s *Service) SetVolume(ctx context.Context, guildID string, volume int) error {
	if !playback.ValidVolume(volume) {
		return errors.Wrapf(session.ErrInvalidVolume, "got %d", volume)
	}
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return session.ErrNothingPlaying
	}
	return sess.SetVolume(ctx, volume)
}

// NowPlaying returns the track playing in a guild.
func (s *Service) NowPlaying(guildID string) (session.NowPlaying, error) {
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return session.NowPlaying{}, session.ErrNothingPlaying
	}
	np, ok := sess.NowPlaying()
	if !ok {
		return session.NowPlaying{}, session.ErrNothingPlaying
	}
	return np, nil
}

// ShowProgress starts a progress display for the track playing in a guild.
func (s *Service) ShowProgress(ctx context.Context, guildID string, sink progress.Sink) (*progress.Task, error) {
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return nil, session.ErrNothingPlaying
	}
	if _, ok := sess.NowPlaying(); !ok {
		return nil, session.ErrNothingPlaying
	}
	return s.reporter.Start(ctx, sess, sink), nil
}

// Session returns a snapshot of the session of a guild.
func (s *Service) Session(guildID string) (session.Snapshot, error) {
	sess, ok := s.registry.Get(guildID)
	if !ok {
		return session.Snapshot{}, session.ErrNothingPlaying
	}
	return sess.Snapshot(), nil
}

// Sessions returns snapshots of every live session, ordered by guild ID.
func (s *Service) Sessions() []session.Snapshot {
	all := s.registry.All()
	snaps := make([]session.Snapshot, 0, len(all))
	for _, sess := range all {
		snaps = append(snaps, sess.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].GuildID < snaps[j].GuildID })
	return snaps
}

// Shutdown stops every session.
func (s *Service) Shutdown(ctx context.Context) {
	zlog.Info().Msgf("music: shutting down: sessions=%d", s.registry.Count())
	s.registry.Close(ctx)
}
