// Package node implements the in-process service host.
//
// A Node owns a registry of path-addressed services and an event bus, and
// drives both through a shared lifecycle. A typical embedding looks like:
//
//	n, err := node.New(node.WithName("example"))
//	...
//	err = n.AddService(counterService)
//	...
//	err = n.Init(ctx)
//	err = n.Start(ctx)
//
//	resp, err := n.Request(ctx, "counter/increment", value.Int(5))
//	...
//	err = n.Stop(ctx)
//
// Requests address an operation as "<service_path>/<operation>" and always
// yield a Success or Error response once a handler runs; only dispatch-time
// failures (bad address, unknown target, wrong lifecycle state) surface as
// errors. Events published through a service's context resolve prefix-aware
// topics against the bus, so a subscription a service declares as "created"
// is reachable as "<service_path>/created" from anywhere in the node.
//
// Every node hosts a built-in introspection service at "internal/registry".
package node
