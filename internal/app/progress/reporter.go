package progress

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/session"
)

// Defaults for Config.
const (
	DefaultPeriod   = 3 * time.Second
	DefaultSegments = 20
)

// Config holds reporter configuration.
type Config struct {
	Period   time.Duration
	Segments int
}

// Source provides the track being played.
type Source interface {
	NowPlaying() (session.NowPlaying, bool)
}

// Sink receives rendered displays.
type Sink interface {
	Update(ctx context.Context, content string) error
}

// Reporter starts progress tasks.
type Reporter struct {
	cfg Config
}

// NewReporter creates a reporter. Non-positive values fall back to the defaults.
func NewReporter(cfg Config) *Reporter {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Segments <= 0 {
		cfg.Segments = DefaultSegments
	}
	return &Reporter{cfg: cfg}
}

// Task is a running progress display.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the task and waits for it to exit.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the task has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Start renders the current track of src into sink right away and then every
// period. The task is bound to the track playing when it starts and exits for
// good once that playback is over, the track reaches its end, a push to sink
// fails or ctx is cancelled.
func (r *Reporter) Start(ctx context.Context, src Source, sink Sink) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}
	go r.run(ctx, t, src, sink)
	return t
}

func (r *Reporter) run(ctx context.Context, t *Task, src Source, sink Sink) {
	defer close(t.done)
	defer t.cancel()

	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()

	var epoch uint64
	for first := true; ; first = false {
		np, ok := src.NowPlaying()
		if !ok || (!first && np.Epoch != epoch) {
			zlog.Debug().Msgf("progress: playback over, task finished: epoch=%d", epoch)
			return
		}
		epoch = np.Epoch

		trk := np.Track.Track
		if err := sink.Update(ctx, Render(trk, np.Position, r.cfg.Segments)); err != nil {
			zlog.Debug().Err(err).Msgf("progress: sink update failed, task finished: epoch=%d", epoch)
			return
		}
		if !trk.IsLive() && np.Position >= trk.Duration {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
