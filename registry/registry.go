// Package registry maintains the node's table of hosted services, keyed by
// their unique registration path. The registry only tracks membership and
// ordering; lifecycle and dispatch stay with the node.
package registry

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/runar-labs/runar-node/errors"
	"github.com/runar-labs/runar-node/service"
)

// Entry pairs a registered service with its registration metadata
type Entry struct {
	// Path is the unique registration key
	Path string
	// Service is the registered instance
	Service service.Service
	// Index is the registration sequence number, stable across removals
	Index int
}

// Registry is a concurrency-safe table of services. Reads return snapshots;
// holding a returned slice never blocks registration.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]Entry
	nextIdx int
}

// Option is a functional option for configuring the Registry
type Option func(*Registry)

// WithLogger sets a custom logger for the registry
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty registry
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:  slog.Default().With("component", "registry"),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a service under its path. Paths are slash-delimited with
// non-empty segments ("math", "internal/registry") and must not already be
// registered.
func (r *Registry) Add(svc service.Service) error {
	if svc == nil {
		return errors.WrapInvalid(errors.New("nil service"), "Registry", "Add", "validation")
	}
	path := svc.Path()
	if path == "" {
		return errors.WrapInvalid(errors.ErrEmptyPath, "Registry", "Add", "validation")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return errors.WrapInvalid(
				errors.New("service path has an empty segment: "+path),
				"Registry", "Add", "validation")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[path]; exists {
		return errors.WrapInvalid(errors.ErrDuplicatePath, "Registry", "Add", "registering "+path)
	}

	r.entries[path] = Entry{Path: path, Service: svc, Index: r.nextIdx}
	r.nextIdx++

	r.logger.Debug("service registered", "path", path, "index", r.nextIdx-1)
	return nil
}

// Get returns the service registered at path
func (r *Registry) Get(path string) (service.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	return entry.Service, true
}

// Remove deletes the service at path and returns it. Removing an unknown
// path returns false.
func (r *Registry) Remove(path string) (service.Service, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	delete(r.entries, path)

	r.logger.Debug("service removed", "path", path)
	return entry.Service, true
}

// List returns a snapshot of all entries in registration order
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Paths returns the registered paths in registration order
func (r *Registry) Paths() []string {
	entries := r.List()
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Path)
	}
	return out
}

// Len returns the number of registered services
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
