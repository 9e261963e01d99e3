// Package httpapi provides the admin HTTP API for inspecting and controlling guild sessions.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/domain/track"
)

// AdminTokenHeader is the header name for admin authentication token.
const AdminTokenHeader = "X-Admin-Token"

// Service is the subset of the music service exposed over HTTP.
type Service interface {
	Sessions() []session.Snapshot
	Session(guildID string) (session.Snapshot, error)
	Skip(ctx context.Context, guildID string) (track.QueuedTrack, error)
	Stop(ctx context.Context, guildID string) (int, error)
	SetVolume(ctx context.Context, guildID string, volume int) error
}

// NewHandler returns the API handler. Session routes are only served when token is set.
func NewHandler(svc Service, token string) http.Handler {
	h := &handler{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)

	if token != "" {
		auth := requireToken(token)
		mux.Handle("GET /api/sessions", auth(http.HandlerFunc(h.listSessions)))
		mux.Handle("GET /api/sessions/{guild}", auth(http.HandlerFunc(h.getSession)))
		mux.Handle("POST /api/sessions/{guild}/skip", auth(http.HandlerFunc(h.skip)))
		mux.Handle("POST /api/sessions/{guild}/stop", auth(http.HandlerFunc(h.stop)))
		mux.Handle("POST /api/sessions/{guild}/volume", auth(http.HandlerFunc(h.setVolume)))
	} else {
		zlog.Warn().Msg("httpapi: admin token not configured, session routes disabled")
	}
	return withLogging(mux)
}

type handler struct {
	svc Service
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(h.svc.Sessions())})
}

func (h *handler) listSessions(w http.ResponseWriter, _ *http.Request) {
	snaps := h.svc.Sessions()
	views := make([]SessionView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, NewSessionView(snap))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Session(r.PathValue("guild"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(snap))
}

func (h *handler) skip(w http.ResponseWriter, r *http.Request) {
	skipped, err := h.svc.Skip(r.Context(), r.PathValue("guild"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SkipResponse{Skipped: newTrackView(skipped)})
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) {
	dropped, err := h.svc.Stop(r.Context(), r.PathValue("guild"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{Dropped: dropped})
}

func (h *handler) setVolume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "body must be {\"volume\": n}"})
		return
	}
	if err := h.svc.SetVolume(r.Context(), r.PathValue("guild"), *req.Volume); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VolumeResponse{Volume: *req.Volume})
}

// requireToken rejects requests without the admin token.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(AdminTokenHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		zlog.Debug().Msgf("httpapi: %s %s: status=%d elapsed=%v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNothingPlaying):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidVolume):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrPlayback):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zlog.Error().Err(err).Msg("httpapi: request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Err(err).Msg("httpapi: failed to write response")
	}
}
