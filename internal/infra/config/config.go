// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Discord  DiscordConfig           `yaml:"discord"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
	Session  SessionConfig           `yaml:"session"`
	Progress ProgressConfig          `yaml:"progress"`
	Server   ServerConfig            `yaml:"server"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Messages MessagesConfig          `yaml:"messages"`
}

// DiscordConfig represents the bot connection configuration.
type DiscordConfig struct {
	Token          string `yaml:"token" validate:"required"`
	GuildID        string `yaml:"guild_id"` // Commands are registered globally when empty
	EditIntervalMs int    `yaml:"edit_interval_ms" default:"1000" validate:"gte=0,lte=60000"`
}

// EditInterval returns the minimum spacing of progress message edits.
func (d DiscordConfig) EditInterval() time.Duration {
	return time.Duration(d.EditIntervalMs) * time.Millisecond
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// SessionConfig represents per-guild session configuration.
type SessionConfig struct {
	IdleTimeoutSec int `yaml:"idle_timeout_sec" default:"30" validate:"gte=1,lte=3600"`
	DefaultVolume  int `yaml:"default_volume" default:"100" validate:"gte=0,lte=150"`
	MaxQueue       int `yaml:"max_queue" validate:"gte=0"` // 0 means unbounded
}

// IdleTimeout returns the idle grace period.
func (s SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSec) * time.Second
}

// ProgressConfig represents the now-playing display configuration.
type ProgressConfig struct {
	PeriodMs int `yaml:"period_ms" default:"3000" validate:"gte=100"`
	Segments int `yaml:"segments" default:"20" validate:"gte=2,lte=100"`
}

// Period returns the refresh period of the display.
func (p ProgressConfig) Period() time.Duration {
	return time.Duration(p.PeriodMs) * time.Millisecond
}

// ServerConfig represents admin HTTP server configuration.
type ServerConfig struct {
	Addr       string      `yaml:"addr" default:":8080"`
	AdminToken string      `yaml:"admin_token"` // Admin API is disabled when empty
	Hooks      HooksConfig `yaml:"hooks"`
}

// HooksConfig represents shell commands run around the server lifecycle.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	NotInVoice            string `yaml:"not_in_voice" default:"Join a voice channel first!"`
	NoResults             string `yaml:"no_results" default:"No results found!"`
	PlayError             string `yaml:"play_error" default:"Error playing track."`
	Queued                string `yaml:"queued" default:"🎵 Added to queue: **%s**"`
	NothingPlaying        string `yaml:"nothing_playing" default:"Nothing playing."`
	NothingPlayingNow     string `yaml:"nothing_playing_now" default:"Nothing playing right now."`
	Skipped               string `yaml:"skipped" default:"⏭ Skipped."`
	Stopped               string `yaml:"stopped" default:"⏹ Stopped and disconnected."`
	InvalidVolume         string `yaml:"invalid_volume" default:"Volume must be between 0-150."`
	VolumeSet             string `yaml:"volume_set" default:"🔊 Volume set to %d%%"`
	Loading               string `yaml:"loading" default:"Loading player info..."`
	DefaultError          string `yaml:"default_error" default:"Something went wrong."`
	QueueFull             string `yaml:"queue_full" default:"The queue is full."`
	UserPending           string `yaml:"user_pending" default:"You already have too many tracks waiting."`
	DuplicateTrack        string `yaml:"duplicate_track" default:"That track is already in the queue."`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"That track's length is not allowed here."`
}

// envOverrides holds secrets that may be supplied through the environment.
type envOverrides struct {
	DiscordToken        string `env:"DISCORD_TOKEN"`
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	AdminToken          string `env:"ADMIN_TOKEN"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration, applies environment overrides and defaults, and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with non-empty environment variables.
func (c *Config) overrideFromEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return errors.Wrap(err, "failed to parse environment")
	}
	if e.DiscordToken != "" {
		c.Discord.Token = e.DiscordToken
	}
	if e.SpotifyClientID != "" {
		c.Spotify.ClientID = e.SpotifyClientID
	}
	if e.SpotifyClientSecret != "" {
		c.Spotify.ClientSecret = e.SpotifyClientSecret
	}
	if e.AdminToken != "" {
		c.Server.AdminToken = e.AdminToken
	}
	return nil
}

// GetMessage returns the message for the given rejection code.
func (c *Config) GetMessage(code string) string {
	return c.Messages.ForCode(code)
}

// ForCode returns the message for the given rejection code.
func (m MessagesConfig) ForCode(code string) string {
	switch code {
	case "user_pending":
		return m.UserPending
	case "duplicate_track":
		return m.DuplicateTrack
	case "duration_limit_exceeded":
		return m.DurationLimitExceeded
	case "queue_full":
		return m.QueueFull
	default:
		return m.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}
