package redis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_tracker/internal/api"
	"stock_tracker/internal/platform/notify"
)

// DefaultEventsChannel is the pub/sub channel used when none is configured.
const DefaultEventsChannel = "stocktracker:events"

const (
	publishTimeout = 2 * time.Second
	drainTimeout   = 5 * time.Second
	queueSize      = 256
)

// Subscriber is the hub side the relay consumes.
type Subscriber interface {
	SubscribeAll(handler notify.Handler) func()
}

// EventRelay はハブの全イベントをRedisのチャネルへPUBLISHします。
// ハブ側ではキューに積むだけで、PUBLISHは専用のgoroutineが行います。
// キューが満杯の場合はそのイベントを破棄し、失敗はログに出力するのみです。
type EventRelay struct {
	rdb     *redis.Client
	channel string
	unsub   func()

	mu     sync.RWMutex
	closed bool
	queue  chan []byte
	done   chan struct{}
}

// NewEventRelay subscribes to hub and publishes every event to channel.
func NewEventRelay(hub Subscriber, rdb *redis.Client, channel string) *EventRelay {
	return newEventRelay(hub, rdb, channel, queueSize)
}

func newEventRelay(hub Subscriber, rdb *redis.Client, channel string, size int) *EventRelay {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	r := &EventRelay{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan []byte, size),
		done:    make(chan struct{}),
	}
	go r.run()
	r.unsub = hub.SubscribeAll(r.onEvent)
	return r
}

// Close stops relaying and publishes what is still queued, waiting at most drainTimeout.
func (r *EventRelay) Close() {
	r.unsub()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
	case <-time.After(drainTimeout):
		slog.Warn("redis event relay did not drain in time", "channel", r.channel)
	}
}

// onEvent encodes the event and queues it without blocking the publisher.
func (r *EventRelay) onEvent(ev notify.Event) {
	payload, err := api.EncodeEvent(string(ev.Kind), ev.Payload)
	if err != nil {
		slog.Error("failed to encode relay event", "event", ev.Kind, "error", err)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- payload:
	default:
		slog.Warn("redis event relay queue full, dropping event", "event", ev.Kind, "channel", r.channel)
	}
}

func (r *EventRelay) run() {
	defer close(r.done)
	for payload := range r.queue {
		r.publish(payload)
	}
}

func (r *EventRelay) publish(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		slog.Warn("failed to publish event to redis", "channel", r.channel, "error", err)
	}
}
