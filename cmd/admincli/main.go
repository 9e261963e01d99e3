// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/guildbox/internal/api/httpapi"
)

var (
	app     = kingpin.New("guildbox-admincli", "guildbox admin client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	// sessions command
	sessionsCmd = app.Command("sessions", "List live guild sessions").Alias("list")

	// status command
	statusCmd   = app.Command("status", "Show a guild session")
	statusGuild = statusCmd.Arg("guild-id", "Guild ID").Required().String()

	// skip command
	skipCmd   = app.Command("skip", "Skip the current track of a guild")
	skipGuild = skipCmd.Arg("guild-id", "Guild ID").Required().String()

	// stop command
	stopCmd   = app.Command("stop", "Stop playback and leave voice in a guild")
	stopGuild = stopCmd.Arg("guild-id", "Guild ID").Required().String()

	// volume command
	volumeCmd    = app.Command("volume", "Set the volume of a guild")
	volumeGuild  = volumeCmd.Arg("guild-id", "Guild ID").Required().String()
	volumeAmount = volumeCmd.Arg("amount", "Volume (0-150)").Required().Int()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	c := newClient(http.DefaultClient, *server, *token)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := execute(ctx, os.Stdout, c, command); err != nil {
		fmt.Printf("Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func execute(ctx context.Context, w io.Writer, c *client, command string) error {
	switch command {
	case sessionsCmd.FullCommand():
		views, err := c.sessions(ctx)
		if err != nil {
			return err
		}
		if len(views) == 0 {
			fmt.Fprintln(w, "No live sessions")
			return nil
		}
		for _, v := range views {
			fmt.Fprintf(w, "%-20s %-10s queue=%d volume=%d%%  %s\n", v.GuildID, v.State, len(v.Queue), v.Volume, currentTitle(v))
		}
	case statusCmd.FullCommand():
		v, err := c.session(ctx, *statusGuild)
		if err != nil {
			return err
		}
		printSession(w, v)
	case skipCmd.FullCommand():
		resp, err := c.skip(ctx, *skipGuild)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Skipped: %s\n", resp.Skipped.Title)
	case stopCmd.FullCommand():
		resp, err := c.stop(ctx, *stopGuild)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Stopped (%d queued tracks dropped)\n", resp.Dropped)
	case volumeCmd.FullCommand():
		resp, err := c.setVolume(ctx, *volumeGuild, *volumeAmount)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Volume set to %d%%\n", resp.Volume)
	}
	return nil
}

func currentTitle(v httpapi.SessionView) string {
	if v.Current == nil {
		return "-"
	}
	return v.Current.Title
}

func printSession(w io.Writer, v httpapi.SessionView) {
	fmt.Fprintln(w, "\n=== GUILD SESSION ===")
	fmt.Fprintf(w, "Session ID: %s\n", v.ID)
	fmt.Fprintf(w, "Guild ID: %s\n", v.GuildID)
	fmt.Fprintf(w, "State: %s\n", v.State)
	fmt.Fprintf(w, "Volume: %d%%\n", v.Volume)
	if v.IdleDeadline != nil {
		fmt.Fprintf(w, "Idle Deadline: %s\n", v.IdleDeadline.Local().Format(time.TimeOnly))
	}

	if v.Current != nil {
		fmt.Fprintf(w, "\nCurrently Playing:\n")
		fmt.Fprintf(w, "  Title: %s\n", v.Current.Title)
		if len(v.Current.Artists) > 0 {
			fmt.Fprintf(w, "  Artists: %s\n", strings.Join(v.Current.Artists, ", "))
		}
		total := "LIVE"
		if v.Current.DurationMs > 0 {
			total = formatMs(v.Current.DurationMs)
		}
		fmt.Fprintf(w, "  Position: %s / %s\n", formatMs(v.PositionMs), total)
		fmt.Fprintf(w, "  Requested by: %s\n", v.Current.RequesterID)
	} else {
		fmt.Fprintln(w, "\nNo track currently playing")
	}

	if len(v.Queue) > 0 {
		fmt.Fprintf(w, "\nQueue (%d):\n", len(v.Queue))
		for i, t := range v.Queue {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, t.Title)
		}
	}
	fmt.Fprintln(w)
}

func formatMs(ms int64) string {
	sec := max(ms, 0) / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
