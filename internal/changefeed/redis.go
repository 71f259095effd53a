package changefeed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis fans signals out over Redis pub/sub.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) channel(topic string) string {
	return channelName("showcase:changes:", topic)
}

func (r *Redis) Publish(ctx context.Context, topic string) error {
	if err := r.client.Publish(ctx, r.channel(topic), "changed").Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Listen returns once the subscription is confirmed by the server, so a
// Publish issued after Listen returns is never missed.
func (r *Redis) Listen(ctx context.Context, topic string) (*Listener, error) {
	pubsub := r.client.Subscribe(ctx, r.channel(topic))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe changes: %w", err)
	}

	done := make(chan struct{})
	l := newListener(func() {
		close(done)
		_ = pubsub.Close()
	})
	messages := pubsub.Channel()

	go func() {
		defer l.finish()
		for {
			select {
			case <-done:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				l.signal()
			}
		}
	}()
	return l, nil
}
