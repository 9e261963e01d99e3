package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
)

// Command names.
const (
	cmdPlay       = "play"
	cmdSkip       = "skip"
	cmdStop       = "stop"
	cmdVolume     = "volume"
	cmdNowPlaying = "nowplaying"

	optSong   = "song"
	optAmount = "amount"
)

var minVolume = float64(0)

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdPlay,
			Description: "Play a song",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optSong,
					Description: "Song name or URL",
					Required:    true,
				},
			},
		},
		{Name: cmdSkip, Description: "Skip current song"},
		{Name: cmdStop, Description: "Stop music and leave"},
		{
			Name:        cmdVolume,
			Description: "Set volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optAmount,
					Description: "Volume (0-150)",
					Required:    true,
					MinValue:    &minVolume,
					MaxValue:    150,
				},
			},
		},
		{Name: cmdNowPlaying, Description: "Show current playing song with progress bar"},
	}
}

// overwriteFunc replaces the command set of an application.
type overwriteFunc func(appID, guildID string, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)

// registerCommands replaces the application's commands in one request.
// An empty guildID registers them globally.
func registerCommands(overwrite overwriteFunc, appID, guildID string) (int, error) {
	if appID == "" {
		return 0, errors.New("discord application id is not available")
	}
	created, err := overwrite(appID, guildID, Commands())
	if err != nil {
		return 0, errors.Wrap(err, "failed to register commands")
	}
	return len(created), nil
}
