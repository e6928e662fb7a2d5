package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/value"
)

// Handler processes a single published event
type Handler func(ctx context.Context, data value.Value) error

// Options control delivery behavior for a single subscription
type Options struct {
	// Once removes the subscription after its first delivery (at-most-once)
	Once bool
}

// DeliveryHook observes the outcome of each handler invocation.
// It is called after every delivery attempt, with a nil error on success.
type DeliveryHook func(topic string, err error)

// subscription is one entry in a topic's ordered subscriber list
type subscription struct {
	id      string
	topic   string
	owner   string // path of the owning service, "" for direct subscribers
	handler Handler
	opts    Options
}

// Bus is the in-process event bus. It maps topic strings to ordered
// subscriber lists and fans published values out to every matching
// subscriber. Deliveries run detached from the publisher; one handler's
// failure never blocks the rest.
//
// Topic resolution is prefix-aware: a subscription declared with a short
// topic (no slash) by a service is also reachable through the fully
// qualified form "<service_path>/<topic>".
type Bus struct {
	logger *slog.Logger
	hook   DeliveryHook

	mu     sync.RWMutex
	topics map[string][]*subscription
	closed bool

	// wg tracks in-flight deliveries so Drain can wait them out
	wg sync.WaitGroup
}

// Option is a functional option for configuring the Bus
type Option func(*Bus)

// WithLogger sets a custom logger for the bus
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithDeliveryHook registers an observer for delivery outcomes
func WithDeliveryHook(hook DeliveryHook) Option {
	return func(b *Bus) {
		b.hook = hook
	}
}

// New creates an empty event bus
func New(opts ...Option) *Bus {
	b := &Bus{
		logger: slog.Default().With("component", "eventbus"),
		topics: make(map[string][]*subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends a handler to the topic's subscriber list and returns the
// subscription id. Duplicate subscriptions by the same handler are allowed;
// each becomes an independent delivery. The owner is the path of the service
// the subscription belongs to ("" for direct node-level subscribers); all of
// an owner's subscriptions are removed together by UnsubscribeOwner.
func (b *Bus) Subscribe(topic, owner string, handler Handler, opts Options) (string, error) {
	if topic == "" {
		return "", errors.WrapInvalid(
			errors.ErrSubscriptionFailed, "Bus", "Subscribe", "empty topic")
	}
	if handler == nil {
		return "", errors.WrapInvalid(
			errors.ErrSubscriptionFailed, "Bus", "Subscribe", "nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", errors.WrapFatal(errors.ErrBusClosed, "Bus", "Subscribe", "subscription")
	}

	sub := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		owner:   owner,
		handler: handler,
		opts:    opts,
	}
	b.topics[topic] = append(b.topics[topic], sub)

	b.logger.Debug("subscription added",
		"topic", topic, "owner", owner, "subscription_id", sub.id)
	return sub.id, nil
}

// Unsubscribe removes the exact subscription entry. It is idempotent:
// removing an id that is already gone is a no-op.
func (b *Bus) Unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(topic, id)
}

// UnsubscribeOwner removes every subscription belonging to the given owner
// and returns how many were removed. Called when a service is removed or
// stopped so subscriptions never outlive their owning service.
func (b *Bus) UnsubscribeOwner(owner string) int {
	if owner == "" {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for topic, subs := range b.topics {
		kept := subs[:0]
		for _, sub := range subs {
			if sub.owner == owner {
				removed++
				continue
			}
			kept = append(kept, sub)
		}
		if len(kept) == 0 {
			delete(b.topics, topic)
		} else {
			b.topics[topic] = kept
		}
	}

	if removed > 0 {
		b.logger.Debug("owner subscriptions removed", "owner", owner, "count", removed)
	}
	return removed
}

// Publish fans data out to every current subscriber of topic. Delivery is
// asynchronous: handlers run detached from the caller in subscription order,
// with each failure isolated and reported through the logger and hook.
// Publishing to a topic with no subscribers is not an error.
func (b *Bus) Publish(ctx context.Context, topic string, data value.Value) error {
	matched, err := b.snapshot(topic, true)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}

	// Deliveries must survive the publisher's cancellation
	detached := context.WithoutCancel(ctx)
	go func() {
		defer b.wg.Done()
		b.deliver(detached, topic, matched, data)
	}()
	return nil
}

// PublishSync fans data out like Publish but waits for every handler of this
// event to finish. Handler failures are still isolated from each other; the
// joined errors are returned so an awaiting caller can observe them.
func (b *Bus) PublishSync(ctx context.Context, topic string, data value.Value) error {
	matched, err := b.snapshot(topic, true)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}

	defer b.wg.Done()
	return b.deliver(ctx, topic, matched, data)
}

// Subscribers returns the number of subscriptions that would receive a
// publish to the given topic, including short-form matches.
func (b *Bus) Subscribers(topic string) int {
	matched, err := b.snapshot(topic, false)
	if err != nil {
		return 0
	}
	return len(matched)
}

// SubscriptionCount returns the total number of live subscriptions
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, subs := range b.topics {
		total += len(subs)
	}
	return total
}

// Drain waits for all in-flight deliveries to complete, up to the timeout
func (b *Bus) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(
			errors.ErrDrainTimeout, "Bus", "Drain", "waiting for in-flight deliveries")
	}
}

// Close drains in-flight deliveries and tears down the subscription maps.
// Close is idempotent; a closed bus rejects Subscribe and Publish.
func (b *Bus) Close(timeout time.Duration) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.Drain(timeout)

	b.mu.Lock()
	b.topics = make(map[string][]*subscription)
	b.mu.Unlock()

	return err
}

// snapshot resolves topic to the ordered list of matching subscriptions.
// Exact matches come first; for a qualified topic "<path>/<name>", short-form
// subscriptions on "<name>" owned by the service at <path> follow.
//
// With track set, a non-empty match registers the pending delivery with the
// drain group while the lock is still held, so Close cannot observe a zero
// counter between our closed-check and the delivery starting. The caller
// owes a wg.Done once delivery finishes.
func (b *Bus) snapshot(topic string, track bool) ([]*subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.WrapFatal(errors.ErrBusClosed, "Bus", "Publish", "delivery")
	}

	matched := make([]*subscription, 0, len(b.topics[topic]))
	matched = append(matched, b.topics[topic]...)

	if i := strings.LastIndex(topic, "/"); i > 0 {
		ownerPath, short := topic[:i], topic[i+1:]
		for _, sub := range b.topics[short] {
			if sub.owner == ownerPath {
				matched = append(matched, sub)
			}
		}
	}

	if track && len(matched) > 0 {
		b.wg.Add(1)
	}
	return matched, nil
}

// deliver invokes the matched handlers sequentially in subscription order.
// Each handler is isolated: an error or panic is reported and delivery
// continues with the next subscriber.
func (b *Bus) deliver(ctx context.Context, topic string, subs []*subscription, data value.Value) error {
	var errs []error
	for _, sub := range subs {
		err := b.invoke(ctx, sub, data)
		if err != nil {
			errs = append(errs, err)
			b.logger.Error("event handler failed",
				"topic", topic,
				"subscription_id", sub.id,
				"owner", sub.owner,
				"error", err)
		}
		if b.hook != nil {
			b.hook(topic, err)
		}
		if sub.opts.Once {
			b.Unsubscribe(sub.topic, sub.id)
		}
	}
	return errors.Join(errs...)
}

// invoke runs a single handler, converting panics into errors
func (b *Bus) invoke(ctx context.Context, sub *subscription, data value.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapTransient(
				fmt.Errorf("%w: %v", errors.ErrHandlerPanic, r),
				"Bus", "deliver", "handler invocation")
		}
	}()
	return sub.handler(ctx, data)
}

// removeLocked deletes a subscription entry; the caller holds b.mu
func (b *Bus) removeLocked(topic, id string) {
	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	for i, sub := range subs {
		if sub.id == id {
			b.topics[topic] = append(subs[:i], subs[i+1:]...)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			return
		}
	}
}
