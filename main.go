package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if os.Getenv("FLEET_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("FLEET_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:  "fleet-tracker",
		Usage: "Live school fleet locations: push relay and map consumers",

		Commands: []*cli.Command{
			relayCommand(),
			watchCommand(),
			driveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func relayCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "run the push relay that fans vehicle locations out to subscribers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML settings file", EnvVars: []string{"FLEET_RELAY_CONFIG"}},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP port", EnvVars: []string{"FLEET_RELAY_PORT"}},
			&cli.DurationFlag{Name: "shutdown-timeout", Value: 10 * time.Second, Usage: "HTTP server shutdown timeout"},
			&cli.StringSliceFlag{Name: "token", Usage: "accepted bearer token, repeatable", EnvVars: []string{"FLEET_RELAY_TOKENS"}},
			&cli.StringFlag{Name: "gtfsrt-url", Usage: "GTFS-RT vehicle positions URL (protobuf)"},
			&cli.StringFlag{Name: "siri-xml-url", Usage: "SIRI VehicleMonitoring XML URL"},
			&cli.StringFlag{Name: "siri-json-url", Usage: "SIRI VehicleMonitoring JSON URL"},
			&cli.IntFlag{Name: "refresh-min-secs", Value: 10, Usage: "Minimum feed refresh interval in seconds"},
			&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for multi-instance fan-out", EnvVars: []string{"FLEET_REDIS_ADDRESS"}},
			&cli.StringFlag{Name: "redis-password", EnvVars: []string{"FLEET_REDIS_PASSWORD"}},
			&cli.IntFlag{Name: "redis-db", EnvVars: []string{"FLEET_REDIS_DATABASE"}},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadRelayConfig(c.String("config"))
			if err != nil {
				return err
			}
			cfg.applyFlags(c)
			return runRelay(c.Context, cfg)
		},
	}
}

func runRelay(ctx context.Context, cfg relayConfig) error {
	feed, err := cfg.selectFeed()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := newHub()
	vehicles := newFleet()

	var out fanout = localFanout{hub: hub}
	if cfg.Redis.Address != "" {
		rf, err := newRedisFanout(ctx, &redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		}, hub)
		if err != nil {
			return err
		}
		defer rf.Close()
		go func() {
			if err := rf.run(ctx, nil); err != nil {
				log.Error().Err(err).Msg("Redis fan-out stopped")
			}
		}()
		out = rf
	}

	rl := newRelay(hub, vehicles, out, cfg.Tokens)

	mux := http.NewServeMux()
	registerRoutes(mux, rl)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           withLogging(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Msgf("Relay listening on http://localhost:%d/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	if feed != nil {
		go newPoller(feed, cfg.RefreshMinSecs, vehicles, rl).run(ctx)
	} else {
		log.Info().Msg("No feed configured, relaying published locations only")
	}

	select {
	case <-ctx.Done():
	case err := <-errs:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shut down successfully")
	}
	return nil
}
