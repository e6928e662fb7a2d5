// Package eventbus implements the node's in-process publish/subscribe bus.
//
// The bus maps hierarchical, slash-delimited topic strings to ordered
// subscriber lists. Publishing fans a value out to every current subscriber
// of the topic: same-topic handlers are invoked in subscription order,
// failures are isolated per subscriber, and delivery is detached from the
// publisher unless PublishSync is used.
//
// Resolution is prefix-aware. A subscription a service declares with a short
// topic such as "text_events" is reachable through the fully qualified topic
// "<service_path>/text_events"; the short form only matches when the
// qualifying prefix equals the subscription owner's path.
//
// There is no persistence, acknowledgment or retry: delivery is best-effort
// to the subscribers present at publish time.
package eventbus
