package overlay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	EventEdit   = "edit"
	EventDelete = "delete"
)

// Event is one broadcast mutation: an edit carries the overridden fields, a
// deletion only the id. Seq is the override sequence used for ordering (a
// late-arriving older broadcast must not clobber a newer edit).
type Event struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields,omitempty"`
	Seq       uint64         `json:"seq,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type Handler func(Event)

// Bus is the publish/subscribe capability behind edit/delete broadcasts. It
// exists in two implementations composed by FanoutBus: an in-process bus
// observed by the publishing process's own views, and a Redis-backed bus
// observed by every other process. One abstraction, two transports, so the
// merge logic cannot drift between them.
type Bus interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(ctx context.Context, topic string, h Handler) (cancel func(), err error)
}

// LocalBus dispatches synchronously within the process. A publisher's own
// handlers run before Publish returns, which is what gives the initiating
// view its write-your-own-writes guarantee.
type LocalBus struct {
	mu   sync.RWMutex
	next int
	subs map[string]map[int]Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: map[string]map[int]Handler{}}
}

func (b *LocalBus) Publish(_ context.Context, topic string, ev Event) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

func (b *LocalBus) Subscribe(_ context.Context, topic string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[int]Handler{}
	}
	id := b.next
	b.next++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}, nil
}

// RedisBus carries events across processes over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	ps := b.client.Subscribe(ctx, topic)
	// Force the subscription to be established before returning.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	go func() {
		for msg := range ps.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if b.logger != nil {
					b.logger.Warn("dropping malformed overlay event",
						zap.String("topic", topic), zap.Error(err))
				}
				continue
			}
			h(ev)
		}
	}()

	return func() { _ = ps.Close() }, nil
}

// FanoutBus publishes to the local bus first (so the initiating process sees
// its own write immediately), then to the remote bus. Subscribers listen on
// both; a process may therefore see its own event twice (locally and as the
// Redis echo), which is safe because applying an event is idempotent.
type FanoutBus struct {
	local  Bus
	remote Bus
	logger *zap.Logger
}

func NewFanoutBus(local, remote Bus, logger *zap.Logger) *FanoutBus {
	return &FanoutBus{local: local, remote: remote, logger: logger}
}

func (b *FanoutBus) Publish(ctx context.Context, topic string, ev Event) error {
	if err := b.local.Publish(ctx, topic, ev); err != nil {
		return err
	}
	if b.remote == nil {
		return nil
	}
	if err := b.remote.Publish(ctx, topic, ev); err != nil {
		// Cross-process delivery is best-effort; local views already applied.
		if b.logger != nil {
			b.logger.Warn("remote broadcast failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	return nil
}

func (b *FanoutBus) Subscribe(ctx context.Context, topic string, h Handler) (func(), error) {
	cancelLocal, err := b.local.Subscribe(ctx, topic, h)
	if err != nil {
		return nil, err
	}
	if b.remote == nil {
		return cancelLocal, nil
	}
	cancelRemote, err := b.remote.Subscribe(ctx, topic, h)
	if err != nil {
		cancelLocal()
		return nil, err
	}
	return func() {
		cancelLocal()
		cancelRemote()
	}, nil
}
