package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/eventbus"
	"github.com/runar-labs/runar-node/metric"
	"github.com/runar-labs/runar-node/value"
)

// OperationFunc handles a single dispatched operation. The service context
// gives it scoped access to the node (requests, publish, subscribe); params
// carries the caller's parameters, usually a map.
type OperationFunc func(ctx context.Context, rc *Context, params value.Value) (Response, error)

// Operation is one addressable entry in a service's operation table
type Operation struct {
	// Name is the operation's address segment, unique within the service
	Name string
	// Params names the declared parameters. A single-entry table lets a
	// bare scalar request be wrapped as {param: scalar} on dispatch.
	Params []string
	// Handler runs the operation
	Handler OperationFunc
}

// Subscription is a declared event subscription, registered when the
// service initializes. An empty topic means the service's direct channel.
type Subscription struct {
	Topic   string
	Handler eventbus.Handler
	Options eventbus.Options
}

// Metadata describes a service for discovery
type Metadata struct {
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	State       string   `json:"state"`
	Operations  []string `json:"operations"`
}

// Service is the contract every hosted service satisfies. The node drives
// Init, Start and Stop in order and dispatches requests through the
// operation table; implementations guard their own internal state.
type Service interface {
	// Metadata returns a snapshot of the service's descriptive fields
	Metadata() Metadata
	// Path returns the unique registration path
	Path() string
	// State returns the current lifecycle state
	State() State
	// Operation looks up an operation by name
	Operation(name string) (Operation, bool)
	// Operations returns the operation table in declaration order
	Operations() []Operation
	// RegisterMetrics registers the service's own metrics with the node's
	// registrar before the service initializes
	RegisterMetrics(registrar metric.MetricsRegistrar) error
	// Init wires resources and registers declared subscriptions
	Init(ctx context.Context, rc *Context) error
	// Start begins accepting requests
	Start(ctx context.Context) error
	// Stop releases resources; stopping an already stopped service is a no-op
	Stop(ctx context.Context) error
}

// Config holds the descriptive fields of a service
type Config struct {
	// Name is a human-readable label; defaults to Path when empty
	Name string
	// Path is the unique registration path, required
	Path string
	// Description is optional free text
	Description string
	// Version defaults to "0.1.0"
	Version string
}

// HookFunc runs custom logic during a lifecycle phase
type HookFunc func(ctx context.Context, rc *Context) error

// MetricsFunc declares a service's own metrics with the node's registrar.
// The service passes its path so the registrar can tear its metrics down
// when the service is removed.
type MetricsFunc func(registrar metric.MetricsRegistrar) error

// BaseService is the standard Service implementation, assembled from a
// Config and functional options. Handlers and hooks capture their own state
// in closures; BaseService only guards lifecycle and registration bookkeeping.
type BaseService struct {
	cfg    Config
	logger *slog.Logger
	fsm    *StateMachine

	ops     map[string]Operation
	opOrder []string
	subs    []Subscription

	initHook  HookFunc
	stopHook  HookFunc
	metricsFn MetricsFunc

	mu     sync.Mutex
	rc     *Context
	subIDs []subRef
}

type subRef struct {
	topic string
	id    string
}

// ServiceOption configures a BaseService during construction
type ServiceOption func(*BaseService) error

// WithOperation adds an operation to the service's table. Param names are
// declared in call order; a single declared param enables bare scalar
// wrapping for the operation.
func WithOperation(name string, handler OperationFunc, params ...string) ServiceOption {
	return func(s *BaseService) error {
		if name == "" {
			return errors.New("operation name cannot be empty")
		}
		if handler == nil {
			return fmt.Errorf("operation %q has nil handler", name)
		}
		if _, exists := s.ops[name]; exists {
			return fmt.Errorf("operation %q declared twice", name)
		}
		s.ops[name] = Operation{Name: name, Params: params, Handler: handler}
		s.opOrder = append(s.opOrder, name)
		return nil
	}
}

// WithSubscription declares an event subscription registered at init time.
// An empty topic subscribes the service's direct channel.
func WithSubscription(topic string, handler eventbus.Handler) ServiceOption {
	return WithSubscriptionOptions(topic, handler, eventbus.Options{})
}

// WithSubscriptionOptions declares a subscription with delivery options
func WithSubscriptionOptions(topic string, handler eventbus.Handler, opts eventbus.Options) ServiceOption {
	return func(s *BaseService) error {
		if handler == nil {
			return fmt.Errorf("subscription on %q has nil handler", topic)
		}
		s.subs = append(s.subs, Subscription{Topic: topic, Handler: handler, Options: opts})
		return nil
	}
}

// WithServiceLogger sets a custom logger for the service
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *BaseService) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithMetrics declares the service's own metrics, registered with the node's
// registrar before the service initializes and unregistered when the service
// is removed
func WithMetrics(fn MetricsFunc) ServiceOption {
	return func(s *BaseService) error {
		s.metricsFn = fn
		return nil
	}
}

// WithInitHook runs custom logic after declared subscriptions are registered
func WithInitHook(fn HookFunc) ServiceOption {
	return func(s *BaseService) error {
		s.initHook = fn
		return nil
	}
}

// WithStopHook runs custom logic while the service stops
func WithStopHook(fn HookFunc) ServiceOption {
	return func(s *BaseService) error {
		s.stopHook = fn
		return nil
	}
}

// New assembles a service from its config and options
func New(cfg Config, opts ...ServiceOption) (*BaseService, error) {
	if cfg.Path == "" {
		return nil, errors.WrapInvalid(errors.ErrEmptyPath, "Service", "New", "validation")
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Path
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	s := &BaseService{
		cfg:    cfg,
		logger: slog.Default().With("service", cfg.Path),
		fsm:    NewStateMachine(),
		ops:    make(map[string]Operation),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.WrapInvalid(err, "Service", "New", "configuration")
		}
	}
	return s, nil
}

// Metadata returns a snapshot of the service's descriptive fields
func (s *BaseService) Metadata() Metadata {
	return Metadata{
		Name:        s.cfg.Name,
		Path:        s.cfg.Path,
		Description: s.cfg.Description,
		Version:     s.cfg.Version,
		State:       s.State().String(),
		Operations:  append([]string(nil), s.opOrder...),
	}
}

// Path returns the unique registration path
func (s *BaseService) Path() string {
	return s.cfg.Path
}

// Name returns the human-readable label
func (s *BaseService) Name() string {
	return s.cfg.Name
}

// State returns the current lifecycle state
func (s *BaseService) State() State {
	return s.fsm.State()
}

// Operation looks up an operation by name
func (s *BaseService) Operation(name string) (Operation, bool) {
	op, ok := s.ops[name]
	return op, ok
}

// RegisterMetrics runs the declared metrics registration, if any
func (s *BaseService) RegisterMetrics(registrar metric.MetricsRegistrar) error {
	if s.metricsFn == nil {
		return nil
	}
	if err := s.metricsFn(registrar); err != nil {
		return errors.Wrap(err, "Service", "RegisterMetrics", "metric registration")
	}
	return nil
}

// Operations returns the operation table in declaration order
func (s *BaseService) Operations() []Operation {
	out := make([]Operation, 0, len(s.opOrder))
	for _, name := range s.opOrder {
		out = append(out, s.ops[name])
	}
	return out
}

// Subscriptions returns the declared subscriptions
func (s *BaseService) Subscriptions() []Subscription {
	return append([]Subscription(nil), s.subs...)
}

// Init registers the declared subscriptions through the node context, runs
// the init hook, and moves the service to StateInitialized. A failure leaves
// the service in StateCreated; registered subscriptions are rolled back.
func (s *BaseService) Init(ctx context.Context, rc *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.fsm.State(); st != StateCreated {
		return &TransitionError{From: st, To: StateInitialized}
	}
	s.rc = rc

	for _, sub := range s.subs {
		id, err := rc.Subscribe(sub.Topic, sub.Handler, sub.Options)
		if err != nil {
			s.rollbackSubsLocked(rc)
			return errors.Wrap(err, "Service", "Init", "subscription registration")
		}
		topic := sub.Topic
		if topic == "" {
			topic = s.cfg.Path
		}
		s.subIDs = append(s.subIDs, subRef{topic: topic, id: id})
	}

	if s.initHook != nil {
		if err := s.initHook(ctx, rc); err != nil {
			s.rollbackSubsLocked(rc)
			return errors.Wrap(
				fmt.Errorf("%w: %w", errors.ErrLifecycle, err), "Service", "Init", "init hook")
		}
	}

	if err := s.fsm.Transition(StateInitialized); err != nil {
		return err
	}
	s.logger.Debug("service initialized", "subscriptions", len(s.subIDs))
	return nil
}

// Start moves the service to StateRunning
func (s *BaseService) Start(_ context.Context) error {
	if err := s.fsm.Transition(StateRunning); err != nil {
		return err
	}
	s.logger.Debug("service started")
	return nil
}

// Stop runs the stop hook, removes the service's subscriptions and moves it
// to StateStopped. Stopping an already stopped service is a no-op.
func (s *BaseService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fsm.State() == StateStopped {
		return nil
	}

	var hookErr error
	if s.stopHook != nil {
		if err := s.stopHook(ctx, s.rc); err != nil {
			hookErr = errors.Wrap(
				fmt.Errorf("%w: %w", errors.ErrLifecycle, err), "Service", "Stop", "stop hook")
		}
	}

	s.rollbackSubsLocked(s.rc)

	if err := s.fsm.Transition(StateStopped); err != nil {
		return errors.Join(hookErr, err)
	}
	s.logger.Debug("service stopped")
	return hookErr
}

// rollbackSubsLocked removes every subscription this service registered;
// the caller holds s.mu
func (s *BaseService) rollbackSubsLocked(rc *Context) {
	if rc == nil {
		return
	}
	for _, ref := range s.subIDs {
		rc.Unsubscribe(ref.topic, ref.id)
	}
	s.subIDs = nil
}
