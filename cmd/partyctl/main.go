package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/scythe504/partybox-server/internal"
	"github.com/scythe504/partybox-server/internal/rules"
	"github.com/scythe504/partybox-server/internal/server"
)

const usage = `usage: partyctl <command>

commands:
  rooms      live rooms
  games      registered rule-sets
  matches    recently archived matches (optional limit argument)
  stats      process and room counters
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "partyctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	color.Enable = cfg.Colours

	c := &client{base: cfg.Server, token: cfg.Token, http: &http.Client{Timeout: cfg.Timeout}}
	ctx := context.Background()

	switch args[0] {
	case "rooms":
		var rooms []internal.RoomSummary
		if err := c.get(ctx, "/api/rooms", nil, &rooms); err != nil {
			return err
		}
		renderRooms(out, rooms)
	case "games":
		var games []rules.Meta
		if err := c.get(ctx, "/api/games", nil, &games); err != nil {
			return err
		}
		renderGames(out, games)
	case "matches":
		query := url.Values{}
		if len(args) > 1 {
			if _, err := strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid limit %q", args[1])
			}
			query.Set("limit", args[1])
		}
		var matches []internal.MatchResult
		if err := c.get(ctx, "/api/matches", query, &matches); err != nil {
			return err
		}
		renderMatches(out, matches)
	case "stats":
		var stats server.Stats
		if err := c.get(ctx, "/api/stats", nil, &stats); err != nil {
			return err
		}
		renderStats(out, stats)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func phaseColour(p internal.Phase) string {
	switch p {
	case internal.PhaseLobby:
		return color.Cyan.Render(string(p))
	case internal.PhaseDone:
		return color.Gray.Render(string(p))
	}
	return color.Green.Render(string(p))
}

func renderRooms(out io.Writer, rooms []internal.RoomSummary) {
	table := newTable(out, "Code", "Game", "Phase", "Players", "Locked", "Idle")
	for _, r := range rooms {
		code := r.Code
		if code == "" {
			code = "(hidden)"
		}
		table.Append([]string{
			code,
			r.GameKey,
			phaseColour(r.Phase),
			fmt.Sprintf("%d/%d (max %d)", r.Online, r.Players, r.MaxPlayers),
			strconv.FormatBool(r.Locked),
			(time.Duration(r.IdleSeconds) * time.Second).String(),
		})
	}
	table.Render()
	fmt.Fprintf(out, "%d room(s)\n", len(rooms))
}

func renderGames(out io.Writer, games []rules.Meta) {
	table := newTable(out, "Key", "Name", "Players", "Settings")
	for _, g := range games {
		keys := lo.Keys(g.SettingsSchema)
		sort.Strings(keys)
		table.Append([]string{
			g.Key,
			g.Name,
			fmt.Sprintf("%d-%d", g.MinPlayers, g.MaxPlayers),
			strings.Join(keys, ", "),
		})
	}
	table.Render()
}

func renderMatches(out io.Writer, matches []internal.MatchResult) {
	table := newTable(out, "Finished", "Room", "Game", "Winner", "Players")
	for _, m := range matches {
		winner := "-"
		if first, ok := lo.Find(m.Players, func(p internal.MatchPlayer) bool { return p.Position == 1 }); ok {
			winner = fmt.Sprintf("%s (%d)", first.Name, first.Score)
		}
		table.Append([]string{
			m.FinishedAt.Local().Format(time.DateTime),
			m.RoomCode,
			m.GameKey,
			winner,
			strconv.Itoa(len(m.Players)),
		})
	}
	table.Render()
}

func renderStats(out io.Writer, s server.Stats) {
	table := newTable(out, "Metric", "Value")
	table.AppendBulk([][]string{
		{"rooms", strconv.Itoa(s.Rooms)},
		{"connections", strconv.Itoa(s.Connections)},
		{"goroutines", strconv.Itoa(s.Goroutines)},
		{"rss", fmt.Sprintf("%.1f MiB", float64(s.RSSBytes)/(1<<20))},
		{"cpu", fmt.Sprintf("%.1f%%", s.CPUPercent)},
		{"uptime", (time.Duration(s.UptimeSeconds) * time.Second).String()},
	})
	table.Render()
}
