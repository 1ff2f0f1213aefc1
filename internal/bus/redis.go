package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Connect opens a Redis client from either a redis:// URL or a bare
// host:port address.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Redis implements Bus over Redis pub/sub.
type Redis struct {
	client *redis.Client
	log    *zerolog.Logger
}

// NewRedis wraps an open Redis client.
func NewRedis(client *redis.Client, logger *zerolog.Logger) *Redis {
	return &Redis{client: client, log: logger}
}

// Publish broadcasts payload on channel.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe starts a receive loop for channel. The loop survives
// handler-visible garbage (handlers own their own decode errors) and
// exits when ctx is cancelled or the subscription closes.
func (r *Redis) Subscribe(ctx context.Context, channel string, h Handler) error {
	sub := r.client.Subscribe(ctx, channel)

	// Force the subscription onto the wire before returning so callers
	// can rely on delivery once Subscribe succeeds.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					r.log.Warn().Str("channel", channel).Msg("bus subscription closed")
					return
				}
				h([]byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
