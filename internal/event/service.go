package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

// HandlerFunc handles one published event.
type HandlerFunc func(ctx context.Context, topic string, payload any) error

// UnsubscribeFunc removes a handler registered with Subscribe.
type UnsubscribeFunc func()

type subscription struct {
	id uint64
	fn HandlerFunc
}

// Bus is an in-process publish/subscribe hub for catalog events.
// Handlers run synchronously on the publisher's goroutine, in subscription order.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger.With(slog.String("service", "event")),
		subs:   make(map[string][]subscription),
	}
}

func (b *Bus) Subscribe(topic string, handler HandlerFunc) UnsubscribeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			b.subs[topic] = slices.DeleteFunc(b.subs[topic], func(s subscription) bool {
				return s.id == id
			})
		})
	}
}

// Publish delivers payload to every handler of topic. Handler errors and
// panics are logged and never reach the publisher.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) {
	b.mu.RLock()
	subs := slices.Clone(b.subs[topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.dispatch(ctx, sub.fn, topic, payload); err != nil {
			b.logger.ErrorContext(ctx, "error handling event",
				slog.String("topic", topic),
				slog.Any("error", err),
			)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, fn HandlerFunc, topic string, payload any) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			b.logger.ErrorContext(ctx, "panic in event handler",
				slog.String("topic", topic),
				slog.Any("recover", rvr),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("panic: %v", rvr)
		}
	}()

	return fn(ctx, topic, payload)
}
