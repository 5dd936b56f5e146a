package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/weberitsol/school-erp-sub010/livelocation"
	"github.com/weberitsol/school-erp-sub010/mapview"
)

type watchConfig struct {
	URL           string
	APIURL        string
	Token         string
	Selected      string
	RosterRefresh time.Duration

	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "push relay websocket URL", EnvVars: []string{"FLEET_WS_URL"}},
		&cli.StringFlag{Name: "token", Usage: "bearer token", Required: true, EnvVars: []string{"FLEET_TOKEN"}},
		&cli.DurationFlag{Name: "reconnect-delay", Value: livelocation.DefaultReconnectDelay},
		&cli.DurationFlag{Name: "reconnect-delay-max", Value: livelocation.DefaultReconnectDelayMax},
		&cli.IntFlag{Name: "reconnect-attempts", Value: livelocation.DefaultReconnectAttempts},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow live vehicle locations and reconcile them onto a headless map",
		Flags: append(clientFlags(),
			&cli.StringFlag{Name: "api", Value: "http://localhost:8080", Usage: "REST API base URL for the roster", EnvVars: []string{"FLEET_API_URL"}},
			&cli.StringFlag{Name: "select", Usage: "vehicle id to keep the camera on"},
			&cli.DurationFlag{Name: "roster-refresh", Value: time.Minute, Usage: "how often to reload the roster"},
		),
		Action: func(c *cli.Context) error {
			return runWatch(c.Context, watchConfig{
				URL:               c.String("url"),
				APIURL:            c.String("api"),
				Token:             c.String("token"),
				Selected:          c.String("select"),
				RosterRefresh:     c.Duration("roster-refresh"),
				ReconnectDelay:    c.Duration("reconnect-delay"),
				ReconnectDelayMax: c.Duration("reconnect-delay-max"),
				ReconnectAttempts: c.Int("reconnect-attempts"),
			})
		},
	}
}

func runWatch(ctx context.Context, cfg watchConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := livelocation.New(cfg.URL, livelocation.WithReconnect(cfg.ReconnectDelay, cfg.ReconnectDelayMax, cfg.ReconnectAttempts))
	client.Connect(cfg.Token, true)
	defer client.Close()

	httpClient := &http.Client{Timeout: 10 * time.Second}
	roster, err := fetchRoster(ctx, httpClient, cfg.APIURL, cfg.Token)
	if err != nil {
		log.Warn().Err(err).Msg("Roster unavailable, will retry")
	}

	selected := cfg.Selected
	view := mapview.NewView(func() mapview.Surface { return logSurface{} }, func(vehicleID string) {
		selected = vehicleID
		log.Info().Str("vehicle", vehicleID).Msg("Vehicle selected")
	})
	defer view.Close()

	render := func() {
		view.Render(mapview.Merge(roster, client.Snapshot()), selected)
	}
	render()

	ticker := time.NewTicker(cfg.RosterRefresh)
	defer ticker.Stop()

	wasFailed := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Updates():
			if failed := client.Failed(); failed && !wasFailed {
				log.Error().Msg("Live locations unavailable, showing last known positions")
			}
			wasFailed = client.Failed()
			render()
		case <-ticker.C:
			fresh, err := fetchRoster(ctx, httpClient, cfg.APIURL, cfg.Token)
			if err != nil {
				log.Warn().Err(err).Msg("Roster refresh failed")
				continue
			}
			roster = fresh
			render()
		}
	}
}
