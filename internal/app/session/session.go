package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/domain/track"
)

// DefaultIdleTimeout is used when Config.IdleTimeout is not positive.
const DefaultIdleTimeout = 30 * time.Second

// Config holds session configuration.
type Config struct {
	IdleTimeout   time.Duration // Grace period after the queue empties
	DefaultVolume int           // Volume applied right after joining
	MaxQueue      int           // Pending track cap; 0 means unbounded
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   DefaultIdleTimeout,
		DefaultVolume: playback.DefaultVolume,
	}
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID           string
	GuildID      string
	State        State
	Current      *track.QueuedTrack
	Epoch        uint64
	Queue        []track.QueuedTrack
	Volume       int
	IdleDeadline time.Time
	Position     time.Duration
}

// NowPlaying describes the track currently being rendered.
type NowPlaying struct {
	Track    track.QueuedTrack
	Epoch    uint64
	Position time.Duration
}

// EnqueueResult reports where an enqueued track ended up.
type EnqueueResult struct {
	Started  bool // The track started playing immediately
	Position int  // 1-based queue position; 0 when Started
}

// Session is the playback state machine of a single guild.
//
// All mutations run on one goroutine, fed by an inbox of commands and by the
// handle's event stream, so commands for a guild apply in arrival order and a
// skip can never race a natural completion. Collaborator calls run on that
// goroutine too; they block only the owning guild.
type Session struct {
	id          string
	guildID     string
	cfg         Config
	handle      playback.Handle
	onTerminate func(*Session)

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan func()
	done   chan struct{}

	// Written only by the actor goroutine, under mu. Other goroutines read under RLock.
	mu           sync.RWMutex
	state        State
	queue        []track.QueuedTrack
	current      *track.QueuedTrack
	epoch        uint64
	volume       int
	idleDeadline time.Time

	// Actor-owned.
	idleGen   uint64
	idleTimer *time.Timer
}

// newSession creates an idle session and starts its actor.
// The idle deadline is armed right away so a session nobody enqueues into still expires.
func newSession(guildID string, handle playback.Handle, cfg Config, onTerminate func(*Session)) *Session {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:          uuid.New().String(),
		guildID:     guildID,
		cfg:         cfg,
		handle:      handle,
		onTerminate: onTerminate,
		ctx:         ctx,
		cancel:      cancel,
		inbox:       make(chan func()),
		done:        make(chan struct{}),
		state:       StateIdle,
		queue:       make([]track.QueuedTrack, 0),
		volume:      cfg.DefaultVolume,
	}
	s.armIdle()
	go s.run()

	zlog.Info().Msgf("session: created: guild_id=%s session_id=%s", guildID, s.id)
	return s
}

// ID returns the logical session identity.
func (s *Session) ID() string { return s.id }

// GuildID returns the guild this session belongs to.
func (s *Session) GuildID() string { return s.guildID }

// Done is closed once the session has terminated and its actor exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Volume returns the session volume.
func (s *Session) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		ID:           s.id,
		GuildID:      s.guildID,
		State:        s.state,
		Epoch:        s.epoch,
		Queue:        make([]track.QueuedTrack, len(s.queue)),
		Volume:       s.volume,
		IdleDeadline: s.idleDeadline,
	}
	copy(snap.Queue, s.queue)
	if s.current != nil {
		cur := *s.current
		snap.Current = &cur
	}
	s.mu.RUnlock()

	if snap.Current != nil {
		snap.Position = s.handle.Position()
	}
	return snap
}

// NowPlaying returns the current track, or false when nothing is playing.
func (s *Session) NowPlaying() (NowPlaying, bool) {
	s.mu.RLock()
	if s.state != StateActive || s.current == nil {
		s.mu.RUnlock()
		return NowPlaying{}, false
	}
	np := NowPlaying{Track: *s.current, Epoch: s.epoch}
	s.mu.RUnlock()

	np.Position = s.handle.Position()
	return np, true
}

// Enqueue appends qt to the queue. An idle session starts playing it at once.
func (s *Session) Enqueue(ctx context.Context, qt track.QueuedTrack) (EnqueueResult, error) {
	var res EnqueueResult
	err := s.submit(ctx, func() error {
		if s.cfg.MaxQueue > 0 && len(s.queue) >= s.cfg.MaxQueue {
			return errors.Wrapf(ErrQueueFull, "max %d tracks", s.cfg.MaxQueue)
		}

		s.mu.Lock()
		s.queue = append(s.queue, qt)
		res.Position = len(s.queue)
		wasIdle := s.state == StateIdle
		s.mu.Unlock()

		if !wasIdle {
			zlog.Info().Msgf("session: track queued: guild_id=%s track=%q position=%d",
				s.guildID, qt.Track.Title, res.Position)
			return nil
		}

		s.cancelIdle()
		err := s.advance()
		if s.current != nil {
			res.Started = true
			res.Position = 0
		}
		return err
	})
	return res, err
}

// Skip stops the current track and advances to the next one.
func (s *Session) Skip(ctx context.Context) (track.QueuedTrack, error) {
	var skipped track.QueuedTrack
	err := s.submit(ctx, func() error {
		if s.current == nil {
			return ErrNothingPlaying
		}
		skipped = *s.current

		// Invalidate the running epoch first so an end event already in flight
		// for this track cannot advance a second time.
		s.mu.Lock()
		s.epoch++
		s.mu.Unlock()

		var errs error
		if err := s.handle.Stop(ctx); err != nil {
			zlog.Warn().Err(err).Msgf("session: stop failed: guild_id=%s track=%q", s.guildID, skipped.Track.Title)
			errs = errors.Mark(errors.Wrap(err, "stop track"), ErrPlayback)
		}
		zlog.Info().Msgf("session: track skipped: guild_id=%s track=%q", s.guildID, skipped.Track.Title)

		if err := s.advance(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		return errs
	})
	return skipped, err
}

// Stop clears the queue, disconnects and terminates the session.
// It returns the number of pending tracks that were dropped.
func (s *Session) Stop(ctx context.Context) (int, error) {
	var cleared int
	err := s.submit(ctx, func() error {
		cleared = len(s.queue)
		s.terminate(ctx, "stop")
		return nil
	})
	return cleared, err
}

// SetVolume applies volume through the player, whatever is playing.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	if !playback.ValidVolume(volume) {
		return errors.Wrapf(ErrInvalidVolume, "got %d", volume)
	}
	return s.submit(ctx, func() error {
		if err := s.handle.SetVolume(ctx, volume); err != nil {
			return errors.Mark(errors.Wrap(err, "set volume"), ErrPlayback)
		}
		s.mu.Lock()
		s.volume = volume
		s.mu.Unlock()
		zlog.Info().Msgf("session: volume changed: guild_id=%s volume=%d", s.guildID, volume)
		return nil
	})
}

// run is the actor loop.
func (s *Session) run() {
	defer close(s.done)
	defer s.cancel()

	events := s.handle.Events()
	for s.state != StateTerminated {
		select {
		case fn := <-s.inbox:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.onTrackEnded(ev)
		}
	}
}

// submit runs fn on the actor and waits for its result.
// Once accepted, fn always runs to completion; ctx only bounds the wait for acceptance.
func (s *Session) submit(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- func() { reply <- fn() }:
	case <-s.done:
		return ErrTerminated
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-reply
}

// post schedules fn on the actor without waiting. Dropped once the session is gone.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

// advance starts the next queued track, skipping tracks the player refuses.
// With nothing left it goes idle. Every start failure is returned, marked ErrPlayback.
func (s *Session) advance() error {
	var errs error
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.current = nil
			s.state = StateIdle
			s.mu.Unlock()
			s.armIdle()
			zlog.Info().Msgf("session: queue empty, idle: guild_id=%s timeout=%v", s.guildID, s.cfg.IdleTimeout)
			return errs
		}

		next := s.queue[0]
		s.queue[0] = track.QueuedTrack{}
		s.queue = s.queue[1:]
		s.epoch++
		epoch := s.epoch
		s.current = &next
		s.state = StateActive
		s.mu.Unlock()

		err := s.handle.Play(s.ctx, playback.Request{Track: next.Track, Epoch: epoch})
		if err == nil {
			zlog.Info().Msgf("session: track started: guild_id=%s track=%q duration=%v epoch=%d",
				s.guildID, next.Track.Title, next.Track.Duration, epoch)
			return errs
		}

		zlog.Warn().Err(err).Msgf("session: track failed to start, advancing: guild_id=%s track=%q",
			s.guildID, next.Track.Title)
		errs = errors.CombineErrors(errs, errors.Mark(errors.Wrapf(err, "play %q", next.Track.Title), ErrPlayback))

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}
}

// onTrackEnded handles an end event from the player.
func (s *Session) onTrackEnded(ev playback.Event) {
	if s.state != StateActive || s.current == nil || ev.Epoch != s.epoch {
		zlog.Debug().Msgf("session: stale end event ignored: guild_id=%s event_epoch=%d epoch=%d state=%s",
			s.guildID, ev.Epoch, s.epoch, s.state)
		return
	}

	if ev.Reason == playback.EndFailed {
		zlog.Warn().Err(ev.Err).Msgf("session: track failed mid-playback: guild_id=%s track=%q",
			s.guildID, s.current.Track.Title)
	} else {
		zlog.Info().Msgf("session: track ended: guild_id=%s track=%q", s.guildID, s.current.Track.Title)
	}

	// Start failures are logged inside advance; the completion path recovers locally.
	_ = s.advance()
}

// armIdle schedules idle termination, replacing any pending deadline.
func (s *Session) armIdle() {
	s.cancelIdle()

	gen := s.idleGen
	s.mu.Lock()
	s.idleDeadline = time.Now().Add(s.cfg.IdleTimeout)
	s.mu.Unlock()

	s.idleTimer = time.AfterFunc(s.cfg.IdleTimeout, func() {
		s.post(func() { s.onIdleExpired(gen) })
	})
}

// cancelIdle disarms the idle deadline. Bumping the generation makes a timer
// that already fired and is waiting in the inbox a no-op.
func (s *Session) cancelIdle() {
	s.idleGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	s.mu.Lock()
	s.idleDeadline = time.Time{}
	s.mu.Unlock()
}

func (s *Session) onIdleExpired(gen uint64) {
	if s.state != StateIdle || gen != s.idleGen {
		zlog.Debug().Msgf("session: stale idle timer ignored: guild_id=%s gen=%d current_gen=%d state=%s",
			s.guildID, gen, s.idleGen, s.state)
		return
	}
	zlog.Info().Msgf("session: idle timeout reached: guild_id=%s", s.guildID)
	s.terminate(s.ctx, "idle_timeout")
}

// terminate moves to StateTerminated, disconnects and unregisters.
func (s *Session) terminate(ctx context.Context, reason string) {
	s.cancelIdle()

	s.mu.Lock()
	dropped := len(s.queue)
	s.state = StateTerminated
	s.queue = nil
	s.current = nil
	s.epoch++
	s.mu.Unlock()

	if err := s.handle.Disconnect(ctx); err != nil {
		zlog.Warn().Err(err).Msgf("session: disconnect failed: guild_id=%s", s.guildID)
	}

	zlog.Info().Msgf("session: terminated: guild_id=%s session_id=%s reason=%s dropped=%d",
		s.guildID, s.id, reason, dropped)

	if s.onTerminate != nil {
		s.onTerminate(s)
	}
}
