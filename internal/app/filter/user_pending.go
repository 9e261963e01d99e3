package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// DefaultMaxPending is the per-requester limit when none is configured.
const DefaultMaxPending = 3

// UserPendingConfig represents the configuration for UserPendingFilter.
type UserPendingConfig struct {
	MaxPending int `yaml:"max_pending" mapstructure:"max_pending" validate:"gte=0"`
}

// UserPendingFilter limits how many tracks one requester may have waiting in a guild.
type UserPendingFilter struct {
	maxPending int
}

func (f *UserPendingFilter) Name() string {
	return "user_pending_filter"
}

func (f *UserPendingFilter) Description() string {
	return "Checks if the requester already has too many tracks waiting to be played"
}

func (f *UserPendingFilter) ReturnCodes() []string {
	return []string{"user_pending"}
}

func (f *UserPendingFilter) ValidateConfig(settings map[string]any) error {
	var config UserPendingConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	f.maxPending = config.MaxPending
	return nil
}

func (f *UserPendingFilter) limit() int {
	if f.maxPending <= 0 {
		return DefaultMaxPending
	}
	return f.maxPending
}

func (f *UserPendingFilter) Check(ctx context.Context, req Request) Result {
	if req.RequesterID == "" {
		return Accept()
	}

	// The playing track is no longer pending.
	pending := 0
	for _, qt := range req.Queue {
		if qt.RequesterID == req.RequesterID {
			pending++
		}
	}
	if pending >= f.limit() {
		return Reject("user_pending")
	}
	return Accept()
}

func init() {
	Register("user_pending_filter", func() Filter {
		return &UserPendingFilter{}
	})
}
