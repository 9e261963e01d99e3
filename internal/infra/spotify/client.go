// Package spotify resolves track queries against the Spotify catalog.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/osa030/guildbox/internal/domain/track"
)

// catalog is the subset of the Spotify API used for resolution.
type catalog interface {
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
}

// Resolver turns user queries into tracks.
type Resolver struct {
	api        catalog
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// New creates a resolver authenticated with the client credentials flow.
func New(ctx context.Context, cfg Config) (*Resolver, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if _, err := creds.Token(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to obtain spotify token")
	}

	return newResolver(spotify.New(creds.Client(ctx)), cfg.Market), nil
}

func newResolver(api catalog, market string) *Resolver {
	if market == "" {
		market = "US"
	}
	return &Resolver{
		api:        api,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Resolve returns the track a query refers to. Track links and URIs are looked
// up directly; anything else goes through search and the best match wins.
func (r *Resolver) Resolve(ctx context.Context, query string) (track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return track.Track{}, errors.Wrap(track.ErrNotFound, "empty query")
	}

	if isTrackLink(query) {
		return r.getTrack(ctx, extractTrackID(query))
	}
	return r.search(ctx, query)
}

func (r *Resolver) getTrack(ctx context.Context, id string) (track.Track, error) {
	var result *spotify.FullTrack
	err := r.retry(ctx, func() error {
		t, err := r.api.GetTrack(ctx, spotify.ID(id), spotify.Market(r.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return track.Track{}, errors.Wrapf(track.ErrNotFound, "track %s", id)
		}
		return track.Track{}, errors.Wrap(err, "failed to get track")
	}
	return convertTrack(result), nil
}

func (r *Resolver) search(ctx context.Context, query string) (track.Track, error) {
	var result *spotify.SearchResult
	err := r.retry(ctx, func() error {
		res, err := r.api.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(1),
			spotify.Market(r.market),
		)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to search")
	}

	if result == nil || result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return track.Track{}, errors.Wrapf(track.ErrNotFound, "query %q", query)
	}
	t := convertTrack(&result.Tracks.Tracks[0])
	zlog.Debug().Msgf("spotify: resolved: query=%q track_id=%s title=%q", query, t.ID, t.Title)
	return t, nil
}

// convertTrack converts a Spotify FullTrack to domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return track.Track{
		ID:       string(t.ID),
		Title:    t.Name,
		Artists:  artists,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URL:      TrackURL(string(t.ID)),
	}
}

// TrackURL returns the Spotify URL for a track.
func TrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry retries an operation with linear backoff.
func (r *Resolver) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < r.maxRetries-1 {
			zlog.Warn().Err(err).Msgf("spotify: request failed, retrying: attempt=%d/%d", i+1, r.maxRetries)
			select {
			case <-time.After(r.retryDelay * time.Duration(i+1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// isNotFound reports whether the API rejected the track ID.
func isNotFound(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "non existing id") ||
		strings.Contains(errStr, "invalid id")
}

// isTrackLink reports whether input is a Spotify track URL or URI.
func isTrackLink(input string) bool {
	return strings.HasPrefix(input, "spotify:track:") ||
		(strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/"))
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	// Assume it's already a track ID
	return input
}
