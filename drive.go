package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/weberitsol/school-erp-sub010/livelocation"
	"github.com/weberitsol/school-erp-sub010/mapview"
)

type driveConfig struct {
	URL       string
	Token     string
	VehicleID string
	From      mapview.LatLng
	To        mapview.LatLng
	Steps     int
	Interval  time.Duration

	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	ReconnectAttempts int
}

// driveCommand publishes a vehicle moving along a straight line, the way a
// driver's device reports its position.
func driveCommand() *cli.Command {
	return &cli.Command{
		Name:  "drive",
		Usage: "publish a simulated vehicle track to the relay",
		Flags: append(clientFlags(),
			&cli.StringFlag{Name: "vehicle", Usage: "vehicle id to publish as", Required: true},
			&cli.StringFlag{Name: "from", Usage: "start position as lat,lng", Required: true},
			&cli.StringFlag{Name: "to", Usage: "end position as lat,lng", Required: true},
			&cli.IntFlag{Name: "steps", Value: 60},
			&cli.DurationFlag{Name: "interval", Value: time.Second},
		),
		Action: func(c *cli.Context) error {
			from, err := parseLatLng(c.String("from"))
			if err != nil {
				return err
			}
			to, err := parseLatLng(c.String("to"))
			if err != nil {
				return err
			}
			cfg := driveConfig{
				URL:               c.String("url"),
				Token:             c.String("token"),
				VehicleID:         c.String("vehicle"),
				From:              from,
				To:                to,
				Steps:             c.Int("steps"),
				Interval:          c.Duration("interval"),
				ReconnectDelay:    c.Duration("reconnect-delay"),
				ReconnectDelayMax: c.Duration("reconnect-delay-max"),
				ReconnectAttempts: c.Int("reconnect-attempts"),
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return runDrive(c.Context, cfg)
		},
	}
}

func (cfg driveConfig) validate() error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.Steps < 1 {
		return fmt.Errorf("steps must be at least 1, got %d", cfg.Steps)
	}
	return nil
}

func runDrive(ctx context.Context, cfg driveConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := livelocation.New(cfg.URL, livelocation.WithReconnect(cfg.ReconnectDelay, cfg.ReconnectDelayMax, cfg.ReconnectAttempts))
	client.Connect(cfg.Token, true)
	defer client.Close()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for _, sample := range track(cfg.VehicleID, cfg.From, cfg.To, cfg.Steps, cfg.Interval) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		sample.Timestamp = time.Now().UTC()
		if !client.Connected() {
			log.Warn().Str("vehicle", sample.VehicleID).Msg("Not connected, position dropped")
		}
		client.PublishLocationUpdate(sample)
	}
	return nil
}

// track interpolates steps+1 samples from a to b. Speed is in metres per second.
func track(vehicleID string, a, b mapview.LatLng, steps int, interval time.Duration) []livelocation.LocationSample {
	if steps < 1 {
		steps = 1
	}
	heading := bearing(a, b)
	speed := 0.0
	if interval > 0 {
		speed = distance(a, b) / float64(steps) / interval.Seconds()
	}

	out := make([]livelocation.LocationSample, 0, steps+1)
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		out = append(out, livelocation.LocationSample{
			VehicleID: vehicleID,
			Latitude:  a.Lat + (b.Lat-a.Lat)*f,
			Longitude: a.Lng + (b.Lng-a.Lng)*f,
			Speed:     speed,
			Heading:   heading,
		})
	}
	return out
}

func parseLatLng(s string) (mapview.LatLng, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return mapview.LatLng{}, fmt.Errorf("position %q: want lat,lng", s)
	}
	latf, lngf, ok := parseLatLon(strings.TrimSpace(lat), strings.TrimSpace(lng))
	if !ok {
		return mapview.LatLng{}, fmt.Errorf("position %q: not numeric", s)
	}
	return mapview.LatLng{Lat: latf, Lng: lngf}, nil
}

const earthRadiusMetres = 6371000

func distance(a, b mapview.LatLng) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMetres * math.Asin(math.Sqrt(h))
}

func bearing(a, b mapview.LatLng) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
