package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/weberitsol/school-erp-sub010/livelocation"
)

// fanout delivers an encoded frame to every subscriber of the locations channel.
type fanout interface {
	Publish(ctx context.Context, frame []byte) error
}

type localFanout struct {
	hub *wsHub
}

func (f localFanout) Publish(_ context.Context, frame []byte) error {
	f.hub.broadcast(livelocation.LocationsChannel, frame)
	return nil
}

// redisFanout routes frames through a Redis pub/sub channel so every relay
// instance attached to the same Redis delivers them to its own clients.
type redisFanout struct {
	client *redis.Client
	hub    *wsHub
}

func newRedisFanout(ctx context.Context, opts *redis.Options, hub *wsHub) (*redisFanout, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("address", opts.Addr).Msg("Redis fan-out connected")
	return &redisFanout{client: client, hub: hub}, nil
}

func (f *redisFanout) Publish(ctx context.Context, frame []byte) error {
	return f.client.Publish(ctx, livelocation.LocationsChannel, frame).Err()
}

// run delivers frames from Redis to local clients until ctx is done. ready is
// closed once the subscription is confirmed.
func (f *redisFanout) run(ctx context.Context, ready chan<- struct{}) error {
	sub := f.client.Subscribe(ctx, livelocation.LocationsChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	if ready != nil {
		close(ready)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			f.hub.broadcast(livelocation.LocationsChannel, []byte(msg.Payload))
		}
	}
}

func (f *redisFanout) Close() error {
	return f.client.Close()
}
