package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/domain/track"
)

// fakeHandle records every call made by a session.
type fakeHandle struct {
	mu           sync.Mutex
	plays        []playback.Request
	stops        int
	volumes      []int
	disconnected bool
	failTitles   map[string]bool
	volumeErr    error
	position     time.Duration

	// Unbuffered: a send returns only once the actor has taken the event.
	events chan playback.Event
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{
		failTitles: make(map[string]bool),
		events:     make(chan playback.Event),
	}
}

func (h *fakeHandle) Play(_ context.Context, req playback.Request) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays = append(h.plays, req)
	if h.failTitles[req.Track.Title] {
		return errors.Newf("cannot play %s", req.Track.Title)
	}
	return nil
}

func (h *fakeHandle) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	return nil
}

func (h *fakeHandle) SetVolume(_ context.Context, volume int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.volumeErr != nil {
		return h.volumeErr
	}
	h.volumes = append(h.volumes, volume)
	return nil
}

func (h *fakeHandle) Disconnect(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = true
	return nil
}

func (h *fakeHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *fakeHandle) Events() <-chan playback.Event { return h.events }

func (h *fakeHandle) failOn(title string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failTitles[title] = true
}

func (h *fakeHandle) playedTitles() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	titles := make([]string, 0, len(h.plays))
	for _, p := range h.plays {
		titles = append(titles, p.Track.Title)
	}
	return titles
}

func (h *fakeHandle) lastEpoch() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.plays) == 0 {
		return 0
	}
	return h.plays[len(h.plays)-1].Epoch
}

func (h *fakeHandle) isDisconnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnected
}

func (h *fakeHandle) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stops
}

func (h *fakeHandle) volumeCalls() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.volumes...)
}

// finish delivers the natural end of the playback with the given epoch.
func (h *fakeHandle) finish(t *testing.T, epoch uint64) {
	t.Helper()
	select {
	case h.events <- playback.Event{Epoch: epoch, Reason: playback.EndFinished}:
	case <-time.After(time.Second):
		t.Fatalf("end event for epoch %d was not consumed", epoch)
	}
}

// fakePort hands out fresh fakeHandles.
type fakePort struct {
	mu      sync.Mutex
	handles []*fakeHandle
	joinErr error
	delay   time.Duration
}

func (p *fakePort) Join(ctx context.Context, _, _ string) (playback.Handle, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.joinErr != nil {
		return nil, p.joinErr
	}
	h := newFakeHandle()
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePort) joins() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

func (p *fakePort) handle(i int) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[i]
}

func testTrack(title string, duration time.Duration) track.QueuedTrack {
	return track.NewQueuedTrack(track.Track{ID: title, Title: title, Duration: duration}, "user-1")
}

// flush waits until the actor has processed everything delivered before the call.
func flush(t *testing.T, s *Session) {
	t.Helper()
	if err := s.submit(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func testConfig() Config {
	return Config{IdleTimeout: time.Minute, DefaultVolume: playback.DefaultVolume}
}
