package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/eventbus"
	"github.com/runar-labs/runar-node/value"
)

// NodeHandler is the capability surface the node hands to services. Handlers
// never touch the node directly; everything they may do flows through the
// Context wrapping this interface.
type NodeHandler interface {
	// Request dispatches to another service by "<service_path>/<operation>"
	Request(ctx context.Context, address string, params value.Value) (Response, error)
	// Publish fans an event out to the topic's subscribers asynchronously
	Publish(ctx context.Context, topic string, data value.Value) error
	// PublishSync publishes and waits for all deliveries of this event
	PublishSync(ctx context.Context, topic string, data value.Value) error
	// SubscribeAs registers a handler on behalf of the named owner path
	SubscribeAs(owner, topic string, handler eventbus.Handler, opts eventbus.Options) (string, error)
	// Unsubscribe removes a single subscription; unknown ids are no-ops
	Unsubscribe(topic, id string)
}

// Context is the per-service view of the node passed to lifecycle hooks and
// operation handlers. It scopes topic resolution to the owning service: a
// relative topic (no slash) published or subscribed through the context is
// qualified with the service's path.
type Context struct {
	servicePath string
	node        NodeHandler
	logger      *slog.Logger
}

// NewContext builds a context bound to the given service path
func NewContext(servicePath string, node NodeHandler, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		servicePath: servicePath,
		node:        node,
		logger:      logger.With("service", servicePath),
	}
}

// ServicePath returns the path of the owning service
func (c *Context) ServicePath() string {
	return c.servicePath
}

// Logger returns a logger scoped to the owning service
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Request dispatches a request to another service through the node
func (c *Context) Request(ctx context.Context, address string, params value.Value) (Response, error) {
	return c.node.Request(ctx, address, params)
}

// Publish publishes an event. A relative topic is qualified with the owning
// service's path, so a service at "events" publishing "created" reaches
// subscribers of "events/created".
func (c *Context) Publish(ctx context.Context, topic string, data value.Value) error {
	return c.node.Publish(ctx, c.qualify(topic), data)
}

// PublishSync publishes like Publish but waits for every delivery of the
// event to finish, returning the joined handler errors
func (c *Context) PublishSync(ctx context.Context, topic string, data value.Value) error {
	return c.node.PublishSync(ctx, c.qualify(topic), data)
}

// Subscribe registers a handler owned by this service. An empty topic means
// the service's direct channel (its own path); a relative topic stays short
// so both "<topic>" and "<service_path>/<topic>" publishes reach it.
func (c *Context) Subscribe(topic string, handler eventbus.Handler, opts eventbus.Options) (string, error) {
	if topic == "" {
		topic = c.servicePath
	}
	if topic == "" {
		return "", errors.WrapInvalid(
			errors.ErrSubscriptionFailed, "Context", "Subscribe", "empty topic")
	}
	return c.node.SubscribeAs(c.servicePath, topic, handler, opts)
}

// Unsubscribe removes a subscription previously made through this context
func (c *Context) Unsubscribe(topic, id string) {
	c.node.Unsubscribe(topic, id)
}

// qualify prefixes a relative topic with the owning service path
func (c *Context) qualify(topic string) string {
	if c.servicePath == "" || strings.Contains(topic, "/") {
		return topic
	}
	return c.servicePath + "/" + topic
}
