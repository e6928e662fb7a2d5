package node

import (
	"context"
	"fmt"
	"time"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/service"
	"github.com/runar-labs/runar-node/value"
)

// Request dispatches a request to the operation addressed by
// "<service_path>/<operation>". Dispatch failures (malformed address,
// unknown service or operation, node or service not running) are returned
// as errors; once a handler runs, its errors and panics are converted into
// an Error-status response so callers see a uniform envelope.
//
// When the target operation declares exactly one parameter and params is a
// bare scalar, the scalar is wrapped as {param_name: scalar} before the
// handler sees it. A configured request timeout puts a deadline on the
// handler's context.
func (n *Node) Request(ctx context.Context, address string, params value.Value) (service.Response, error) {
	svc, op, err := n.resolve(address)
	if err != nil {
		if n.metrics != nil {
			n.metrics.RecordDispatchError(dispatchKind(err))
		}
		return service.Response{}, err
	}

	params = wrapBareScalar(op, params)

	if n.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	resp := n.invoke(ctx, svc, op, params)
	if n.metrics != nil {
		n.metrics.RecordRequest(svc.Path(), op.Name, resp.Status.String(), time.Since(start))
	}
	return resp, nil
}

// Publish fans data out to the topic's subscribers asynchronously.
// Publishing to a topic nobody subscribes to is not an error.
func (n *Node) Publish(ctx context.Context, topic string, data value.Value) error {
	if n.metrics != nil {
		n.metrics.RecordPublish(topic)
	}
	return n.bus.Publish(ctx, topic, data)
}

// PublishSync publishes like Publish but waits for every handler of this
// event to finish and returns their joined errors
func (n *Node) PublishSync(ctx context.Context, topic string, data value.Value) error {
	if n.metrics != nil {
		n.metrics.RecordPublish(topic)
	}
	return n.bus.PublishSync(ctx, topic, data)
}

// resolve parses the address and looks up a running target operation
func (n *Node) resolve(address string) (service.Service, service.Operation, error) {
	var none service.Operation

	if n.fsm.State() != service.StateRunning {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("%w: state %s", errors.ErrNodeNotRunning, n.fsm.State()),
			"Node", "Request", "dispatch")
	}

	path, opName, err := splitAddress(address)
	if err != nil {
		return nil, none, err
	}

	svc, ok := n.registry.Get(path)
	if !ok {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrServiceNotFound, path),
			"Node", "Request", "service lookup")
	}
	if st := svc.State(); st != service.StateRunning {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("%w: %s is %s", errors.ErrServiceNotRunning, path, st),
			"Node", "Request", "dispatch")
	}

	op, ok := svc.Operation(opName)
	if !ok {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("%w: %s/%s", errors.ErrOperationNotFound, path, opName),
			"Node", "Request", "operation lookup")
	}
	return svc, op, nil
}

// invoke runs the handler, converting errors and panics into Error responses
func (n *Node) invoke(ctx context.Context, svc service.Service, op service.Operation, params value.Value) (resp service.Response) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("operation handler panicked",
				"service", svc.Path(), "operation", op.Name, "panic", r)
			resp = service.Errorf("operation %s/%s panicked: %v", svc.Path(), op.Name, r)
		}
	}()

	rc := service.NewContext(svc.Path(), n, n.logger)
	resp, err := op.Handler(ctx, rc, params)
	if err != nil {
		n.logger.Warn("operation handler failed",
			"service", svc.Path(), "operation", op.Name, "error", err)
		return service.Error(err.Error())
	}
	return resp
}

// wrapBareScalar applies the single-parameter convenience: a scalar request
// to an operation declaring exactly one parameter arrives at the handler as
// {param_name: scalar}
func wrapBareScalar(op service.Operation, params value.Value) value.Value {
	if len(op.Params) == 1 && params.IsScalar() {
		return value.NewMap().Set(op.Params[0], params).Build()
	}
	return params
}
