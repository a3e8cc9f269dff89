package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bridge mirrors change-feed events across Whisper instances through a Redis
// pub/sub channel, so a browser connected to one instance still sees inserts
// made through another. Single-instance deployments run without one.
type Bridge struct {
	redis   *redis.Client
	channel string
	origin  string
	feed    *Feed
	cancel  context.CancelFunc
}

type bridgeEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// AttachBridge connects the feed to a Redis channel and starts relaying in
// both directions. Returns an error if Redis is unreachable.
func (f *Feed) AttachBridge(addr, channel string) (*Bridge, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		redis:   client,
		channel: channel,
		origin:  uuid.NewString(),
		feed:    f,
		cancel:  cancel,
	}

	f.mu.Lock()
	f.bridge = b
	f.mu.Unlock()

	go b.relay(ctx)
	return b, nil
}

func (b *Bridge) Close() error {
	b.feed.mu.Lock()
	b.feed.bridge = nil
	b.feed.mu.Unlock()
	b.cancel()
	return b.redis.Close()
}

// forward sends a locally published event to the other instances.
func (b *Bridge) forward(ev Event) {
	data, err := json.Marshal(bridgeEnvelope{Origin: b.origin, Event: ev})
	if err != nil {
		return
	}
	if err := b.redis.Publish(context.Background(), b.channel, data).Err(); err != nil {
		log.Printf("bridge: failed to publish %s event: %v", ev.Table, err)
	}
}

// relay re-injects events published by other instances into the local feed.
func (b *Bridge) relay(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("bridge: dropping malformed payload: %v", err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.feed.deliver(env.Event)
		}
	}
}
