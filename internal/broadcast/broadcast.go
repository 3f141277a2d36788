// Package broadcast is the profile-change notification channel. Every
// committed profile change is fanned out to in-process subscribers and,
// when Redis is configured, published for other agent processes.
package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Event mirrors the {key, value} shape of a storage change.
type Event struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type Handler func(Event)

type Broadcaster struct {
	mu     sync.Mutex
	origin string
	subs   map[int]Handler
	nextID int

	redis   *redis.Client
	channel string
	cancel  context.CancelFunc
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		origin: uuid.NewString(),
		subs:   make(map[int]Handler),
		logger: logger,
	}
}

// AttachRedis adds cross-process delivery on the given pub/sub channel.
// Remote events are relayed to local subscribers; our own publications come
// back on the channel and are dropped by origin.
func (b *Broadcaster) AttachRedis(ctx context.Context, client *redis.Client, channel string) {
	b.mu.Lock()
	b.redis = client
	b.channel = channel
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	pubsub := client.Subscribe(ctx, channel)
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping malformed broadcast", "error", err)
					continue
				}
				if event.Origin == b.origin {
					continue
				}
				b.deliver(event)
			}
		}
	}()
}

func (b *Broadcaster) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Broadcaster) Publish(ctx context.Context, key, value string) {
	event := Event{
		ID:     uuid.NewString(),
		Origin: b.origin,
		Key:    key,
		Value:  value,
	}
	b.deliver(event)

	b.mu.Lock()
	client, channel := b.redis, b.channel
	b.mu.Unlock()
	if client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := client.Publish(ctx, channel, payload).Err(); err != nil {
		b.logger.Warn("cross-process broadcast failed", "error", err)
	}
}

func (b *Broadcaster) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Broadcaster) deliver(event Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, handler := range b.subs {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}
