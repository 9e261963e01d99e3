package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
)

const testToken = "secret"

type fakeService struct {
	snaps  map[string]session.Snapshot
	err    error
	volume int
}

func (s *fakeService) Sessions() []session.Snapshot {
	out := make([]session.Snapshot, 0, len(s.snaps))
	for _, snap := range s.snaps {
		out = append(out, snap)
	}
	return out
}

func (s *fakeService) Session(guildID string) (session.Snapshot, error) {
	snap, ok := s.snaps[guildID]
	if !ok {
		return session.Snapshot{}, session.ErrNothingPlaying
	}
	return snap, nil
}

func (s *fakeService) Skip(_ context.Context, guildID string) (track.QueuedTrack, error) {
	if s.err != nil {
		return track.QueuedTrack{}, s.err
	}
	snap, ok := s.snaps[guildID]
	if !ok || snap.Current == nil {
		return track.QueuedTrack{}, session.ErrNothingPlaying
	}
	return *snap.Current, nil
}

func (s *fakeService) Stop(_ context.Context, guildID string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	snap, ok := s.snaps[guildID]
	if !ok {
		return 0, session.ErrNothingPlaying
	}
	return len(snap.Queue), nil
}

func (s *fakeService) SetVolume(_ context.Context, _ string, volume int) error {
	if s.err != nil {
		return s.err
	}
	s.volume = volume
	return nil
}

func newFakeService() *fakeService {
	cur := track.NewQueuedTrack(track.Track{ID: "a", Title: "Song A", Duration: 3 * time.Minute}, "user-1")
	return &fakeService{snaps: map[string]session.Snapshot{
		"guild-1": {
			ID:       "sess-1",
			GuildID:  "guild-1",
			State:    session.StateActive,
			Current:  &cur,
			Epoch:    2,
			Queue:    []track.QueuedTrack{track.NewQueuedTrack(track.Track{ID: "b", Title: "Song B"}, "user-2")},
			Volume:   80,
			Position: 90 * time.Second,
		},
	}}
}

func serve(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := NewHandler(newFakeService(), "")
	rec := serve(t, h, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "nope", http.StatusUnauthorized},
		{"valid token", testToken, http.StatusOK},
	}

	h := NewHandler(newFakeService(), testToken)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, http.MethodGet, "/api/sessions", tt.token, "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestSessionRoutesDisabledWithoutToken(t *testing.T) {
	h := NewHandler(newFakeService(), "")
	rec := serve(t, h, http.MethodGet, "/api/sessions", "anything", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndGetSession(t *testing.T) {
	h := NewHandler(newFakeService(), testToken)

	rec := serve(t, h, http.MethodGet, "/api/sessions", testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "guild-1", list[0].GuildID)

	rec = serve(t, h, http.MethodGet, "/api/sessions/guild-1", testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "active", view.State)
	require.NotNil(t, view.Current)
	assert.Equal(t, "Song A", view.Current.Title)
	assert.Equal(t, int64(180000), view.Current.DurationMs)
	assert.Equal(t, int64(90000), view.PositionMs)
	assert.Equal(t, uint64(2), view.Epoch)
	require.Len(t, view.Queue, 1)
	assert.Equal(t, "user-2", view.Queue[0].RequesterID)
	assert.Nil(t, view.IdleDeadline)

	rec = serve(t, h, http.MethodGet, "/api/sessions/guild-9", testToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommands(t *testing.T) {
	svc := newFakeService()
	h := NewHandler(svc, testToken)

	rec := serve(t, h, http.MethodPost, "/api/sessions/guild-1/skip", testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Song A"`)

	rec = serve(t, h, http.MethodPost, "/api/sessions/guild-1/stop", testToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dropped":1}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/api/sessions/guild-1/volume", testToken, `{"volume":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"volume":0}`, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/api/sessions/guild-1/skip", testToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVolumeBadBody(t *testing.T) {
	h := NewHandler(newFakeService(), testToken)

	for _, body := range []string{"", "{}", `{"volume":"loud"}`} {
		rec := serve(t, h, http.MethodPost, "/api/sessions/guild-1/volume", testToken, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"nothing playing", session.ErrNothingPlaying, http.StatusNotFound},
		{"terminated", session.ErrTerminated, http.StatusNotFound},
		{"invalid volume", errors.Wrap(session.ErrInvalidVolume, "got 200"), http.StatusBadRequest},
		{"playback", errors.Mark(errors.New("node down"), session.ErrPlayback), http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.err = tt.err
			h := NewHandler(svc, testToken)

			rec := serve(t, h, http.MethodPost, "/api/sessions/guild-1/volume", testToken, `{"volume":50}`)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}
