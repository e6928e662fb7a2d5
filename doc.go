// Package runarnode is an in-process service host: a single Node owns a
// registry of path-addressed services, dispatches requests by
// "<service_path>/<operation>" address, and routes published events through
// a topic-based bus with prefix-aware resolution.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│               Node                  │  Lifecycle, dispatch,
//	│   (init, start, request, stop)      │  health, metrics
//	└─────────────────────────────────────┘
//	           ↓ orchestrates
//	┌─────────────────────────────────────┐
//	│             Services                │  Operation tables,
//	│     (path, operations, state)       │  declared subscriptions
//	└─────────────────────────────────────┘
//	           ↓ communicate via
//	┌─────────────────────────────────────┐
//	│            Event Bus                │  Ordered delivery,
//	│   (topics, owners, isolation)       │  owner-scoped topics
//	└─────────────────────────────────────┘
//
// Packages:
//   - node: the host itself, plus the built-in "internal/registry" service
//   - service: the Service contract, lifecycle FSM and request envelope
//   - registry: the path -> service table
//   - eventbus: the in-process publish/subscribe bus
//   - value: the tagged-union payload carried by requests and events
//   - errors, config, metric, health: ambient infrastructure
//
// Everything runs in one process. There is no network transport, no
// persistence and no delivery guarantee beyond best-effort fan-out to the
// subscribers present at publish time; embedders needing those properties
// layer them on top.
package runarnode
