package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

type redisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

// relayConfig is read from an optional YAML file; command line flags and their
// environment variables override file values.
type relayConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Tokens          []string      `yaml:"tokens"`
	GtfsRtURL       string        `yaml:"gtfsrt_url"`
	SiriXmlURL      string        `yaml:"siri_xml_url"`
	SiriJsonURL     string        `yaml:"siri_json_url"`
	RefreshMinSecs  int           `yaml:"refresh_min_secs"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	Redis           redisConfig   `yaml:"redis"`
}

func loadRelayConfig(path string) (relayConfig, error) {
	c := relayConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config: %w", err)
		}
	}
	c.applyDefaults()
	return c, nil
}

func (c *relayConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RefreshMinSecs <= 0 {
		c.RefreshMinSecs = 10
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

func (c *relayConfig) applyFlags(ctx *cli.Context) {
	if ctx.IsSet("port") {
		c.Port = ctx.Int("port")
	}
	if ctx.IsSet("shutdown-timeout") {
		c.ShutdownTimeout = ctx.Duration("shutdown-timeout")
	}
	if ctx.IsSet("token") {
		c.Tokens = ctx.StringSlice("token")
	}
	if ctx.IsSet("gtfsrt-url") {
		c.GtfsRtURL = ctx.String("gtfsrt-url")
	}
	if ctx.IsSet("siri-xml-url") {
		c.SiriXmlURL = ctx.String("siri-xml-url")
	}
	if ctx.IsSet("siri-json-url") {
		c.SiriJsonURL = ctx.String("siri-json-url")
	}
	if ctx.IsSet("refresh-min-secs") {
		c.RefreshMinSecs = ctx.Int("refresh-min-secs")
	}
	if ctx.IsSet("redis-addr") {
		c.Redis.Address = ctx.String("redis-addr")
	}
	if ctx.IsSet("redis-password") {
		c.Redis.Password = ctx.String("redis-password")
	}
	if ctx.IsSet("redis-db") {
		c.Redis.Database = ctx.Int("redis-db")
	}
}

// selectFeed returns the configured feed, or nil when the relay only forwards
// published locations.
func (c *relayConfig) selectFeed() (VehicleFeedSource, error) {
	count := 0
	if c.GtfsRtURL != "" {
		count++
	}
	if c.SiriXmlURL != "" {
		count++
	}
	if c.SiriJsonURL != "" {
		count++
	}
	switch {
	case count > 1:
		return nil, errors.New("provide at most one of gtfsrt-url, siri-xml-url, siri-json-url")
	case c.GtfsRtURL != "":
		return NewGtfsRtVehicleFeedSource(c.GtfsRtURL, c.FetchTimeout), nil
	case c.SiriXmlURL != "":
		return NewSiriXmlVehicleFeedSource(c.SiriXmlURL, c.FetchTimeout), nil
	case c.SiriJsonURL != "":
		return NewSiriJsonVehicleFeedSource(c.SiriJsonURL, c.FetchTimeout), nil
	default:
		return nil, nil
	}
}
