// Package clock implements a playback port that tracks progress on the wall clock.
//
// Audio rendering happens outside the process; this port joins the voice
// channel, measures elapsed time per track and reports natural track ends.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/playback"
)

// DefaultTick is the resolution of track end detection.
const DefaultTick = 100 * time.Millisecond

// ErrDisconnected is returned by handle operations after Disconnect.
var ErrDisconnected = errors.New("voice connection closed")

// VoiceConn is a joined voice connection.
type VoiceConn interface {
	Disconnect(ctx context.Context) error
}

// VoiceJoiner joins voice channels.
type VoiceJoiner interface {
	JoinVoice(ctx context.Context, guildID, channelID string) (VoiceConn, error)
}

// Config represents port configuration.
type Config struct {
	Tick time.Duration
}

// Port creates wall-clock handles bound to voice connections.
type Port struct {
	joiner VoiceJoiner
	tick   time.Duration
}

// NewPort creates a port joining voice through joiner.
func NewPort(joiner VoiceJoiner, cfg Config) *Port {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	return &Port{joiner: joiner, tick: cfg.Tick}
}

// Join implements playback.Port.
func (p *Port) Join(ctx context.Context, guildID, channelID string) (playback.Handle, error) {
	conn, err := p.joiner.JoinVoice(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("clock: voice joined: guild_id=%s channel_id=%s", guildID, channelID)
	return newHandle(guildID, conn, p.tick), nil
}

// handle tracks one guild's playback.
type handle struct {
	guildID string
	conn    VoiceConn
	tick    time.Duration

	events chan playback.Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	current     *playback.Request
	startedAt   time.Time
	finished    bool
	gen         uint64
	timerCancel func()
	volume      int
	closed      bool
}

func newHandle(guildID string, conn VoiceConn, tick time.Duration) *handle {
	return &handle{
		guildID: guildID,
		conn:    conn,
		tick:    tick,
		events:  make(chan playback.Event),
		done:    make(chan struct{}),
		volume:  playback.DefaultVolume,
	}
}

func (h *handle) Events() <-chan playback.Event { return h.events }

func (h *handle) Play(_ context.Context, req playback.Request) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrDisconnected
	}

	h.stopTimerLocked()
	h.gen++
	h.current = &req
	h.startedAt = toWallTime(time.Now())
	h.finished = false

	if !req.Track.IsLive() {
		gen := h.gen
		h.timerCancel = h.startWallClockTimer(req.Track.Duration, func() { h.onTrackEnd(gen) })
	}
	zlog.Debug().Msgf("clock: playing: guild_id=%s track=%q duration=%v epoch=%d",
		h.guildID, req.Track.Title, req.Track.Duration, req.Epoch)
	return nil
}

func (h *handle) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrDisconnected
	}
	h.stopTimerLocked()
	h.gen++
	h.current = nil
	return nil
}

func (h *handle) SetVolume(_ context.Context, volume int) error {
	if !playback.ValidVolume(volume) {
		return errors.Newf("volume %d out of range", volume)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrDisconnected
	}
	h.volume = volume
	return nil
}

// Volume returns the last applied volume.
func (h *handle) Volume() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

// Position returns elapsed wall time of the current track, clamped to its duration.
func (h *handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return 0
	}
	duration := h.current.Track.Duration
	if h.finished {
		return duration
	}
	elapsed := toWallTime(time.Now()).Sub(h.startedAt)
	if duration > 0 && elapsed > duration {
		return duration
	}
	return elapsed
}

// Disconnect stops playback, leaves voice and closes the event stream.
func (h *handle) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.stopTimerLocked()
	h.current = nil
	close(h.done)
	h.mu.Unlock()

	h.wg.Wait()
	close(h.events)

	if err := h.conn.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "failed to leave voice")
	}
	zlog.Info().Msgf("clock: voice left: guild_id=%s", h.guildID)
	return nil
}

// onTrackEnd reports the natural end of the playback started as gen.
func (h *handle) onTrackEnd(gen uint64) {
	h.mu.Lock()
	if h.closed || gen != h.gen || h.current == nil {
		h.mu.Unlock()
		return
	}
	h.timerCancel = nil
	h.finished = true
	ev := playback.Event{Epoch: h.current.Epoch, Reason: playback.EndFinished}
	h.mu.Unlock()

	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *handle) stopTimerLocked() {
	if h.timerCancel != nil {
		h.timerCancel()
		h.timerCancel = nil
	}
}

// startWallClockTimer runs callback after duration measured on the wall clock.
// Returns a cancel function.
func (h *handle) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	endTime := toWallTime(time.Now()).Add(duration)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
