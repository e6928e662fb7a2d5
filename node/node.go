package node

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/eventbus"
	"github.com/runar-labs/runar-node/health"
	"github.com/runar-labs/runar-node/metric"
	"github.com/runar-labs/runar-node/registry"
	"github.com/runar-labs/runar-node/service"
)

const defaultStopTimeout = 5 * time.Second

// Node hosts a set of path-addressed services behind a shared event bus.
// It owns the service registry, drives every service's lifecycle, dispatches
// requests by "<service_path>/<operation>" address, and routes published
// events to subscribers. The node follows the same lifecycle as its
// services: Created -> Initialized -> Running -> Stopped, stop being
// terminal.
type Node struct {
	name           string
	id             string
	logger         *slog.Logger
	fsm            *service.StateMachine
	registry       *registry.Registry
	bus            *eventbus.Bus
	metrics        *metric.Metrics
	registrar      *metric.MetricsRegistry
	stopTimeout    time.Duration
	requestTimeout time.Duration

	// mu serializes lifecycle operations and service add/remove
	mu sync.Mutex
}

// Option is a functional option for configuring the Node
type Option func(*Node)

// WithName sets a human-readable node name
func WithName(name string) Option {
	return func(n *Node) {
		if name != "" {
			n.name = name
		}
	}
}

// WithLogger sets a custom logger for the node
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithMetrics wires node instrumentation into the given core metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(n *Node) {
		n.metrics = m
	}
}

// WithMetricsRegistry wires node instrumentation into the registry's core
// metrics and lets hosted services register their own metrics through it.
// Service metrics are unregistered when their service is removed.
func WithMetricsRegistry(r *metric.MetricsRegistry) Option {
	return func(n *Node) {
		if r != nil {
			n.registrar = r
			n.metrics = r.CoreMetrics()
		}
	}
}

// WithStopTimeout bounds how long Stop waits for in-flight event deliveries
func WithStopTimeout(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.stopTimeout = d
		}
	}
}

// WithRequestTimeout puts a deadline on every dispatched request's context.
// Zero leaves requests bounded only by the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(n *Node) {
		if d > 0 {
			n.requestTimeout = d
		}
	}
}

// New creates a node with its built-in registry service already added
func New(opts ...Option) (*Node, error) {
	n := &Node{
		name:        "runar-node",
		id:          uuid.NewString(),
		logger:      slog.Default(),
		fsm:         service.NewStateMachine(),
		registry:    registry.New(),
		stopTimeout: defaultStopTimeout,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("node", n.name)

	busOpts := []eventbus.Option{eventbus.WithLogger(n.logger)}
	if n.metrics != nil {
		m := n.metrics
		busOpts = append(busOpts, eventbus.WithDeliveryHook(func(topic string, err error) {
			m.RecordDelivery(topic, err != nil)
		}))
	}
	n.bus = eventbus.New(busOpts...)

	if err := n.AddService(newRegistryService(n)); err != nil {
		return nil, errors.Wrap(err, "Node", "New", "built-in service registration")
	}
	return n, nil
}

// Name returns the node's human-readable name
func (n *Node) Name() string {
	return n.name
}

// ID returns the node's unique instance id
func (n *Node) ID() string {
	return n.id
}

// State returns the node's lifecycle state
func (n *Node) State() service.State {
	return n.fsm.State()
}

// AddService registers a service under its path. A duplicate or malformed
// path is rejected and the node is left unchanged. Adding to a node that is
// already initialized (or running) brings the new service up to the node's
// state before returning.
func (n *Node) AddService(svc service.Service) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	nodeState := n.fsm.State()
	if nodeState == service.StateStopped {
		return errors.WrapFatal(errors.ErrNodeStopped, "Node", "AddService", "registration")
	}

	if err := n.registry.Add(svc); err != nil {
		return err
	}
	path := svc.Path()

	// Catch the late arrival up with the node
	if nodeState == service.StateInitialized || nodeState == service.StateRunning {
		if err := n.initService(context.Background(), svc); err != nil {
			n.registry.Remove(path)
			return err
		}
	}
	if nodeState == service.StateRunning {
		if err := svc.Start(context.Background()); err != nil {
			n.registry.Remove(path)
			n.bus.UnsubscribeOwner(path)
			if n.registrar != nil {
				n.registrar.UnregisterService(path)
			}
			return errors.Wrap(err, "Node", "AddService", "starting "+path)
		}
	}

	n.recordServiceGauges()
	n.logger.Info("service added", "path", path, "state", svc.State().String())
	return nil
}

// RemoveService stops the service at path, removes its subscriptions and
// deletes it from the registry. The stop error, if any, is returned after
// the service is fully detached.
func (n *Node) RemoveService(ctx context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	svc, ok := n.registry.Remove(path)
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrServiceNotFound, path),
			"Node", "RemoveService", "lookup")
	}

	err := svc.Stop(ctx)
	n.bus.UnsubscribeOwner(path)
	if n.registrar != nil {
		n.registrar.UnregisterService(path)
	}
	n.recordServiceGauges()
	n.logger.Info("service removed", "path", path)

	if err != nil {
		return errors.Wrap(err, "Node", "RemoveService", "stopping "+path)
	}
	return nil
}

// Services returns metadata snapshots of all registered services in
// registration order
func (n *Node) Services() []service.Metadata {
	entries := n.registry.List()
	out := make([]service.Metadata, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Service.Metadata())
	}
	return out
}

// Init transitions the node to Initialized and initializes every service in
// registration order. The first failure aborts with the offending service's
// path in the error; already-initialized services are left as they are.
func (n *Node) Init(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fsm.Transition(service.StateInitialized); err != nil {
		return err
	}

	for _, entry := range n.registry.List() {
		if err := n.initService(ctx, entry.Service); err != nil {
			return err
		}
	}

	n.recordServiceGauges()
	n.logger.Info("node initialized", "services", n.registry.Len())
	return nil
}

// Start transitions the node to Running and starts every service in
// registration order, failing fast on the first error
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.fsm.Transition(service.StateRunning); err != nil {
		return err
	}

	for _, entry := range n.registry.List() {
		if err := entry.Service.Start(ctx); err != nil {
			return errors.Wrap(err, "Node", "Start", "starting "+entry.Path)
		}
	}

	n.recordServiceGauges()
	n.logger.Info("node started", "services", n.registry.Len())
	return nil
}

// Stop transitions the node to Stopped, stops every live service in reverse
// registration order and drains the event bus. Stop keeps going past
// individual failures and returns them joined; stopping an already stopped
// node is a no-op.
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fsm.State() == service.StateStopped {
		return nil
	}
	if err := n.fsm.Transition(service.StateStopped); err != nil {
		return err
	}

	var errs []error
	entries := n.registry.List()
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if err := entry.Service.Stop(ctx); err != nil {
			errs = append(errs, errors.Wrap(err, "Node", "Stop", "stopping "+entry.Path))
		}
		n.bus.UnsubscribeOwner(entry.Path)
	}

	if err := n.bus.Close(n.stopTimeout); err != nil {
		errs = append(errs, err)
	}

	n.recordServiceGauges()
	n.logger.Info("node stopped", "errors", len(errs))
	return errors.Join(errs...)
}

// Health aggregates the node's health from its services. A running service
// is healthy, a stopped one unhealthy, anything in between degraded.
func (n *Node) Health() health.Status {
	entries := n.registry.List()
	subs := make([]health.Status, 0, len(entries))
	for _, entry := range entries {
		st := entry.Service.State()
		switch st {
		case service.StateRunning:
			subs = append(subs, health.NewHealthy(entry.Path, "service running"))
		case service.StateStopped:
			subs = append(subs, health.NewUnhealthy(entry.Path, "service stopped"))
		default:
			subs = append(subs, health.NewDegraded(entry.Path, "service "+st.String()))
		}
	}

	agg := health.Aggregate(n.name, subs)
	if n.fsm.State() != service.StateRunning {
		agg = health.NewDegraded(n.name, "node "+n.fsm.State().String())
		agg.SubStatuses = subs
	}
	return agg
}

// initService registers the service's metrics and initializes it with a
// context scoped to its path. An init failure tears the metrics down again.
func (n *Node) initService(ctx context.Context, svc service.Service) error {
	path := svc.Path()
	if n.registrar != nil {
		if err := svc.RegisterMetrics(n.registrar); err != nil {
			return errors.Wrap(err, "Node", "Init", "registering metrics for "+path)
		}
	}
	rc := service.NewContext(path, n, n.logger)
	if err := svc.Init(ctx, rc); err != nil {
		if n.registrar != nil {
			n.registrar.UnregisterService(path)
		}
		return errors.Wrap(err, "Node", "Init", "initializing "+path)
	}
	return nil
}

// recordServiceGauges refreshes the registration and state gauges
func (n *Node) recordServiceGauges() {
	if n.metrics == nil {
		return
	}
	entries := n.registry.List()
	n.metrics.SetServicesRegistered(len(entries))
	for _, entry := range entries {
		n.metrics.RecordServiceState(entry.Path, int(entry.Service.State()))
	}
	n.metrics.SetActiveSubscriptions(n.bus.SubscriptionCount())
}

// Subscribe registers a node-level event handler, not owned by any service.
// The topic must match publishes exactly; short-form resolution only applies
// to service-owned subscriptions.
func (n *Node) Subscribe(topic string, handler eventbus.Handler, opts eventbus.Options) (string, error) {
	id, err := n.bus.Subscribe(topic, "", handler, opts)
	if err == nil && n.metrics != nil {
		n.metrics.SetActiveSubscriptions(n.bus.SubscriptionCount())
	}
	return id, err
}

// SubscribeAs registers a handler owned by the service at the given path.
// Service contexts call this; the owner path scopes short-form topic
// resolution and bulk teardown.
func (n *Node) SubscribeAs(owner, topic string, handler eventbus.Handler, opts eventbus.Options) (string, error) {
	id, err := n.bus.Subscribe(topic, owner, handler, opts)
	if err == nil && n.metrics != nil {
		n.metrics.SetActiveSubscriptions(n.bus.SubscriptionCount())
	}
	return id, err
}

// Unsubscribe removes a single subscription; unknown ids are no-ops
func (n *Node) Unsubscribe(topic, id string) {
	n.bus.Unsubscribe(topic, id)
	if n.metrics != nil {
		n.metrics.SetActiveSubscriptions(n.bus.SubscriptionCount())
	}
}

// dispatchKind maps a dispatch rejection to its metric kind
func dispatchKind(err error) string {
	switch {
	case errors.Is(err, errors.ErrAddressFormat):
		return "address_format"
	case errors.Is(err, errors.ErrServiceNotFound):
		return "service_not_found"
	case errors.Is(err, errors.ErrOperationNotFound):
		return "operation_not_found"
	case errors.Is(err, errors.ErrNodeNotRunning):
		return "node_not_running"
	case errors.Is(err, errors.ErrServiceNotRunning):
		return "service_not_running"
	default:
		return "other"
	}
}

// splitAddress parses "<service_path>/<operation>": the last segment names
// the operation, everything before it the service path. Surrounding slashes
// are tolerated; empty parts are not.
func splitAddress(address string) (path, op string, err error) {
	trimmed := strings.Trim(address, "/")
	i := strings.LastIndex(trimmed, "/")
	if i <= 0 || i == len(trimmed)-1 {
		return "", "", errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrAddressFormat, address),
			"Node", "Request", "address parsing")
	}
	return trimmed[:i], trimmed[i+1:], nil
}
