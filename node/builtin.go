package node

import (
	"context"
	"fmt"

	"github.com/runar-labs/runar-node/service"
	"github.com/runar-labs/runar-node/value"
)

// RegistryServicePath is where the built-in registry service is reachable
const RegistryServicePath = "internal/registry"

// newRegistryService builds the introspection service every node hosts.
// It answers requests such as
//
//	node.Request(ctx, "internal/registry/list_services", value.Null())
//
// from the live registry, so its results always reflect the current set of
// services.
func newRegistryService(n *Node) service.Service {
	svc, err := service.New(
		service.Config{
			Name:        "Registry",
			Path:        RegistryServicePath,
			Description: "Lists the node's services and their operations",
			Version:     "1.0.0",
		},
		service.WithOperation("list_services", n.listServices),
		service.WithOperation("list_operations", n.listOperations, "service"),
	)
	if err != nil {
		// static configuration, cannot fail
		panic(fmt.Sprintf("built-in registry service: %v", err))
	}
	return svc
}

// listServices returns {services: [name...], count}
func (n *Node) listServices(_ context.Context, _ *service.Context, _ value.Value) (service.Response, error) {
	entries := n.registry.List()
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Service.Metadata().Name)
	}

	data := value.NewMap().
		Set("services", value.Strings(names)).
		Set("count", value.Int(len(names))).
		Build()
	return service.Success(fmt.Sprintf("found %d services", len(names)), data), nil
}

// listOperations returns {operations: [name...], count} for one service
func (n *Node) listOperations(_ context.Context, _ *service.Context, params value.Value) (service.Response, error) {
	path := value.GetString(params, "service", "")
	if path == "" {
		return service.Error("missing required parameter: service"), nil
	}

	svc, ok := n.registry.Get(path)
	if !ok {
		return service.Errorf("service not found: %s", path), nil
	}

	ops := svc.Metadata().Operations
	data := value.NewMap().
		Set("operations", value.Strings(ops)).
		Set("count", value.Int(len(ops))).
		Build()
	return service.Success(fmt.Sprintf("found %d operations", len(ops)), data), nil
}
