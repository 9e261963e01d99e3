package main

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/guildbox/internal/api/httpapi"
	"github.com/osa030/guildbox/internal/app/filter"
	"github.com/osa030/guildbox/internal/app/music"
	"github.com/osa030/guildbox/internal/app/playback"
	"github.com/osa030/guildbox/internal/app/progress"
	"github.com/osa030/guildbox/internal/app/session"
	"github.com/osa030/guildbox/internal/infra/clock"
	"github.com/osa030/guildbox/internal/infra/config"
	"github.com/osa030/guildbox/internal/infra/discord"
	"github.com/osa030/guildbox/internal/infra/spotify"
)

// setupDI builds the dependency graph. ctx bounds startup calls such as
// fetching the first Spotify token.
func setupDI(ctx context.Context, cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (*discord.Bot, error) {
		c := do.MustInvoke[*config.Config](i)
		return discord.New(discord.Config{
			Token:   c.Discord.Token,
			GuildID: c.Discord.GuildID,
			Handler: discord.HandlerConfig{
				Messages:     c.Messages,
				EditInterval: c.Discord.EditInterval(),
			},
		})
	})

	do.Provide(injector, func(i do.Injector) (playback.Port, error) {
		bot := do.MustInvoke[*discord.Bot](i)
		return clock.NewPort(bot.Joiner(), clock.Config{}), nil
	})

	do.Provide(injector, func(i do.Injector) (*session.Registry, error) {
		c := do.MustInvoke[*config.Config](i)
		port := do.MustInvoke[playback.Port](i)
		return session.NewRegistry(port, session.Config{
			IdleTimeout:   c.Session.IdleTimeout(),
			DefaultVolume: c.Session.DefaultVolume,
			MaxQueue:      c.Session.MaxQueue,
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (*filter.Chain, error) {
		c := do.MustInvoke[*config.Config](i)
		settings := make(map[string]filter.Setting, len(c.Filters))
		for name, f := range c.Filters {
			settings[name] = filter.Setting{Enabled: f.Enabled, Settings: f.Settings}
		}
		return filter.Build(settings)
	})

	do.Provide(injector, func(i do.Injector) (music.Resolver, error) {
		c := do.MustInvoke[*config.Config](i)
		resolver, err := spotify.New(ctx, spotify.Config{
			ClientID:     c.Spotify.ClientID,
			ClientSecret: c.Spotify.ClientSecret,
			Market:       c.Spotify.Market,
		})
		if err != nil {
			return nil, err
		}
		return resolver, nil
	})

	do.Provide(injector, func(i do.Injector) (*music.Service, error) {
		c := do.MustInvoke[*config.Config](i)
		reporter := progress.NewReporter(progress.Config{
			Period:   c.Progress.Period(),
			Segments: c.Progress.Segments,
		})
		return music.NewService(
			do.MustInvoke[music.Resolver](i),
			do.MustInvoke[*session.Registry](i),
			do.MustInvoke[*filter.Chain](i),
			reporter,
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*http.Server, error) {
		c := do.MustInvoke[*config.Config](i)
		svc := do.MustInvoke[*music.Service](i)
		return &http.Server{
			Addr:    c.Server.Addr,
			Handler: h2c.NewHandler(httpapi.NewHandler(svc, c.Server.AdminToken), &http2.Server{}),
		}, nil
	})

	return injector
}
