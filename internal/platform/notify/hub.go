// Package notify provides the in-process notification hub. Publishers broadcast typed
// events; observers subscribe by event kind.
package notify

import (
	"log/slog"
	"sync"

	"stock_tracker/internal/feature/instruments/domain/entity"
)

// Kind is the name of an event.
type Kind string

const (
	// KindInstrumentUpdated carries a single entity.Instrument.
	KindInstrumentUpdated Kind = "stock:update"
	// KindInstrumentList carries the full []entity.Instrument.
	KindInstrumentList Kind = "stock:list"
	// KindAlertTriggered carries an entity.AlertEvent.
	KindAlertTriggered Kind = "alarm:triggered"
)

// Event is one broadcast.
type Event struct {
	Kind    Kind
	Payload any
}

// Handler receives events. It is called on the publisher's goroutine and must not block for long.
type Handler func(Event)

type subscription struct {
	id      uint64
	kind    Kind // empty matches every kind
	handler Handler
}

// Hub is a synchronous fan-out registry. The zero value is not usable; use NewHub.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe は指定した種類のイベントを受け取るハンドラを登録し、登録解除用の関数を返します。
// 解除関数は何度呼んでも安全です。
func (h *Hub) Subscribe(kind Kind, handler Handler) func() {
	return h.add(kind, handler)
}

// SubscribeAll registers handler for every event kind.
func (h *Hub) SubscribeAll(handler Handler) func() {
	return h.add("", handler)
}

func (h *Hub) add(kind Kind, handler Handler) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscription{id: id, kind: kind, handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, s := range h.subs {
		if s.id == id {
			// 新しいスライスを作るので、配信中のスナップショットには影響しない
			next := make([]subscription, 0, len(h.subs)-1)
			next = append(next, h.subs[:i]...)
			h.subs = append(next, h.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every matching handler in subscription order.
// A panicking handler is recovered so the remaining handlers still run.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	subs := h.subs
	h.mu.RUnlock()

	for _, s := range subs {
		if s.kind != "" && s.kind != ev.Kind {
			continue
		}
		deliver(s.handler, ev)
	}
}

func deliver(handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification handler panicked", "event", ev.Kind, "panic", r)
		}
	}()
	handler(ev)
}

// BroadcastInstrument publishes a single instrument update.
func (h *Hub) BroadcastInstrument(inst entity.Instrument) {
	h.Publish(Event{Kind: KindInstrumentUpdated, Payload: inst})
}

// BroadcastInstruments publishes the full instrument list.
func (h *Hub) BroadcastInstruments(list []entity.Instrument) {
	h.Publish(Event{Kind: KindInstrumentList, Payload: list})
}

// BroadcastAlert publishes a triggered alert.
func (h *Hub) BroadcastAlert(ev entity.AlertEvent) {
	h.Publish(Event{Kind: KindAlertTriggered, Payload: ev})
}
