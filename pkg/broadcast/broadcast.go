// Package broadcast is the Redis pub/sub hop between the Fan-out
// Bridge and the WebSocket Gateway: the bridge publishes normalized
// frames, the gateway subscribes and fans them out to connected
// clients, over a single channel since room filtering happens inside
// the Hub rather than at the Redis subscription itself.
package broadcast

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Channel is the single Redis pub/sub channel carrying every broadcast
// frame from bridge to gateway.
const Channel = "market:broadcast"

// Publisher publishes frames for the gateway to relay.
type Publisher struct {
	client *redis.Client
}

// NewPublisher wraps client for publishing.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish sends payload on Channel.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	return p.client.Publish(ctx, Channel, payload).Err()
}

// Subscriber receives frames published by the bridge.
type Subscriber struct {
	pubsub *redis.PubSub
}

// NewSubscriber subscribes to Channel on client.
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{pubsub: client.Subscribe(context.Background(), Channel)}
}

// Run blocks, calling handle for every message received, until ctx is
// cancelled or the underlying subscription closes.
func (s *Subscriber) Run(ctx context.Context, handle func(payload []byte)) {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handle([]byte(msg.Payload))
		}
	}
}

// Close releases the subscription.
func (s *Subscriber) Close() error {
	return s.pubsub.Close()
}
