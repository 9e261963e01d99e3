package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/guildbox/internal/app/playback"
)

// Registry maps guild IDs to live sessions.
type Registry struct {
	port playback.Port
	cfg  Config

	mu       sync.RWMutex
	sessions map[string]*Session
	joins    singleflight.Group
}

// NewRegistry creates a registry that joins voice channels through port.
func NewRegistry(port playback.Port, cfg Config) *Registry {
	return &Registry{
		port:     port,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session of a guild. Terminated sessions are treated as absent.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[guildID]
	r.mu.RUnlock()
	if !ok || s.State() == StateTerminated {
		return nil, false
	}
	return s, true
}

// GetOrCreate returns the live session of a guild, joining channelID when there is none.
//
// Concurrent callers for the same guild share one join. If the previous session is
// still disconnecting, the new join waits until it has released the connection.
func (r *Registry) GetOrCreate(ctx context.Context, guildID, channelID string) (*Session, error) {
	if s, ok := r.Get(guildID); ok {
		return s, nil
	}

	v, err, shared := r.joins.Do(guildID, func() (any, error) {
		r.mu.RLock()
		prev := r.sessions[guildID]
		r.mu.RUnlock()

		if prev != nil {
			if prev.State() != StateTerminated {
				return prev, nil
			}
			select {
			case <-prev.Done():
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		handle, err := r.port.Join(ctx, guildID, channelID)
		if err != nil {
			return nil, errors.Mark(
				errors.Wrapf(err, "join guild %s channel %s", guildID, channelID), ErrJoinFailed)
		}
		if err := handle.SetVolume(ctx, r.cfg.DefaultVolume); err != nil {
			zlog.Warn().Err(err).Msgf("session: failed to apply default volume: guild_id=%s volume=%d",
				guildID, r.cfg.DefaultVolume)
		}

		s := newSession(guildID, handle, r.cfg, r.release)
		r.mu.Lock()
		r.sessions[guildID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zlog.Debug().Msgf("session: joined concurrent create: guild_id=%s", guildID)
	}
	return v.(*Session), nil
}

// Remove stops the session of a guild. Removing an absent guild is a no-op.
func (r *Registry) Remove(ctx context.Context, guildID string) error {
	s, ok := r.Get(guildID)
	if !ok {
		return nil
	}
	if _, err := s.Stop(ctx); err != nil && !errors.Is(err, ErrTerminated) {
		return err
	}
	return nil
}

// All returns every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s.State() != StateTerminated {
			result = append(result, s)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return len(r.All())
}

// Close stops every live session and waits for them to finish.
func (r *Registry) Close(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range r.All() {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if _, err := s.Stop(ctx); err != nil && !errors.Is(err, ErrTerminated) {
				zlog.Warn().Err(err).Msgf("session: stop on close failed: guild_id=%s", s.GuildID())
			}
		}(s)
	}
	wg.Wait()
}

// release drops s from the map if it is still the registered session of its guild.
func (r *Registry) release(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.guildID]; ok && cur == s {
		delete(r.sessions, s.guildID)
	}
}
