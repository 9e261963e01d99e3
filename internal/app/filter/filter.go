// Package filter provides the filter chain for enqueue validation.
package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/osa030/guildbox/internal/domain/track"
)

// Request represents an enqueue request to be validated.
type Request struct {
	GuildID     string
	RequesterID string
	Track       track.Track
	Current     *track.QueuedTrack  // Track playing in the guild, if any
	Queue       []track.QueuedTrack // Pending tracks of the guild
}

// Pending returns the current and queued tracks of the guild.
func (r Request) Pending() []track.QueuedTrack {
	all := make([]track.QueuedTrack, 0, len(r.Queue)+1)
	if r.Current != nil {
		all = append(all, *r.Current)
	}
	return append(all, r.Queue...)
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "user_pending", "duplicate_track"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for enqueue filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the filter check.
	Check(ctx context.Context, req Request) Result
}

// Setting enables a filter and carries its raw settings.
type Setting struct {
	Enabled  bool
	Settings map[string]any
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

// Names returns the registered filter names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a chain from the enabled filters in settings, ordered by name.
func Build(settings map[string]Setting) (*Chain, error) {
	chain := NewChain()
	names := make([]string, 0, len(settings))
	for name := range settings {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := settings[name]
		if !s.Enabled {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(s.Settings); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for %s", name)
		}
		chain.Add(f)
	}
	return chain, nil
}
