package live

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroker fans out across server instances over Redis pub/sub.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBroker{client: client, prefix: "surokha:"}, nil
}

func (b *RedisBroker) Kind() string { return "redis" }

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.client.Publish(ctx, b.prefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	publishedTotal.WithLabelValues("redis").Inc()
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, b.prefix+topic)
	// Wait for the subscription confirmation so no publish after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	subscribers.WithLabelValues("redis").Inc()

	out := make(chan []byte, subscriberBuffer)
	done := make(chan struct{})
	s := &Subscription{C: out}
	s.release = func() {
		close(done)
	}

	go func() {
		defer func() {
			ps.Close()
			close(out)
			subscribers.WithLabelValues("redis").Dec()
		}()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					droppedTotal.WithLabelValues("redis").Inc()
				}
			}
		}
	}()
	return s, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
