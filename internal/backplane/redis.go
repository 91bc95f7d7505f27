package backplane

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// channel is the Redis pub/sub channel shared by all server processes.
const channel = "directline:events"

// RedisConfig holds the parameters needed to connect to a Redis instance.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Redis implements Backplane over Redis pub/sub.
type Redis struct {
	rdb *redis.Client
	log *zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zerolog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{rdb: rdb, log: logger}, nil
}

// Publish sends an event to every subscribed process.
func (r *Redis) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := r.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	return nil
}

// Subscribe returns a channel of events relayed by other processes. Malformed
// payloads are logged and skipped.
func (r *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := r.rdb.Subscribe(ctx, channel)

	// Force the subscription to be established before returning so callers
	// never miss events published right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					if r.log != nil {
						r.log.Warn().Err(err).Msg("drop malformed backplane event")
					}
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close releases the underlying Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
