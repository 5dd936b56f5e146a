package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// poller maintains periodic fetches and pushes changes to subscribers.

type poller struct {
	feed              VehicleFeedSource
	minRefreshSeconds int
	fleet             *fleet
	relay             *relay
	mostRecentFetchMs int64
}

func newPoller(feed VehicleFeedSource, minRefreshSeconds int, fleet *fleet, relay *relay) *poller {
	return &poller{
		feed:              feed,
		minRefreshSeconds: minRefreshSeconds,
		fleet:             fleet,
		relay:             relay,
	}
}

func (p *poller) run(ctx context.Context) {
	interval := time.Duration(p.minRefreshSeconds) * time.Second
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			start := time.Now()
			p.tick(ctx)
			elapsed := time.Since(start)
			if p.mostRecentFetchMs != 0 {
				interval = max(elapsed/2, time.Duration(p.minRefreshSeconds)*time.Second)
			}
			t.Reset(interval)
		}
	}
}

func (p *poller) tick(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	vehicles, err := p.feed.Fetch(cctx)
	if err != nil {
		log.Error().Err(err).Msg("Feed poll failed")
		return
	}
	log.Debug().Int("vehicles", len(vehicles)).Msg("Fetched feed")
	p.mostRecentFetchMs = time.Now().UnixMilli()

	moved, updates := p.fleet.applyFeed(vehicles, time.Now().UTC())
	if len(moved) > 0 {
		log.Info().Int("vehicles", len(moved)).Msg("Vehicle locations updated")
		p.relay.emitBatch(ctx, moved)
	}
	for _, update := range updates {
		p.relay.emitStatus(ctx, update)
	}
}
