// Package service defines the contract for hosted services and the standard
// implementation behind most of them.
//
// A Service bundles an identity (name, path, version), a table of named
// operations, declared event subscriptions and a lifecycle. The node drives
// the lifecycle Created -> Initialized -> Running -> Stopped through a total
// transition function; requests are only dispatched to running services.
//
// BaseService assembles a service from a Config and functional options:
//
//	svc, err := service.New(service.Config{Path: "counter"},
//	    service.WithOperation("increment", incrementHandler, "amount"),
//	    service.WithSubscription("reset", resetHandler),
//	)
//
// Handlers receive a Context scoping them to their owning service: relative
// topics published through it are qualified with the service path, and
// subscriptions it registers are removed when the service stops.
package service
