// Package route maps route keys to handler descriptors and resolves
// concrete request paths against registered path patterns.
package route

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/invoke"
	"go.uber.org/zap"
)

// MethodAny registers a route that matches every method without a more
// specific route.
const MethodAny = "ANY"

// Key identifies a route. Method and Path form its identity; MimeType is
// the content type the route's plain results are served with.
type Key struct {
	Method   string
	Path     string
	MimeType string
}

// Identity returns the (method, path) pair keys are compared by.
func (k Key) Identity() string {
	return strings.ToUpper(k.Method) + " " + k.Path
}

func (k Key) String() string {
	if k.MimeType == "" {
		return k.Identity()
	}
	return fmt.Sprintf("%s (%s)", k.Identity(), k.MimeType)
}

type entry struct {
	key     Key
	handler *invoke.Descriptor
}

// Registry holds the registered routes. It is safe for concurrent use;
// lookups only take the read lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	trees   map[string]*trieNode
	logger  *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger logs registrations at debug level.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]entry),
		trees:   make(map[string]*trieNode),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a route. The key's method is stored upper-cased.
func (r *Registry) Register(key Key, d *invoke.Descriptor) error {
	key.Method = strings.ToUpper(strings.TrimSpace(key.Method))
	if key.Method == "" || key.Path == "" {
		return errors.Wrapf(ErrInvalidRoute, "method %q path %q", key.Method, key.Path)
	}
	if !strings.HasPrefix(key.Path, "/") {
		return errors.Wrapf(ErrInvalidRoute, "path %q must start with /", key.Path)
	}
	if d == nil {
		return errors.Wrapf(ErrInvalidRoute, "%s has no handler", key.Identity())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := key.Identity()
	if existing, ok := r.entries[id]; ok {
		return errors.Wrapf(ErrDuplicateRoute, "%s already handled by %s", id, existing.handler.Name())
	}

	tree, ok := r.trees[key.Method]
	if !ok {
		tree = newTrieNode()
		r.trees[key.Method] = tree
	}
	if err := tree.add(key); err != nil {
		return err
	}

	r.entries[id] = entry{key: key, handler: d}
	r.logger.Debug("route registered",
		zap.String("method", key.Method),
		zap.String("path", key.Path),
		zap.String("handler", d.Name()),
	)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(key Key, d *invoke.Descriptor) {
	if err := r.Register(key, d); err != nil {
		panic(err)
	}
}

// Lookup returns the handler registered under key's identity. A miss is a
// normal outcome.
func (r *Registry) Lookup(key Key) (*invoke.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key.Identity()]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// Resolve maps a concrete method and path to the registered key whose
// pattern matches it, with the extracted path parameters. HEAD requests
// fall back to GET routes, and every method falls back to ANY routes.
func (r *Registry) Resolve(method, path string) (Key, map[string]string, bool) {
	method = strings.ToUpper(method)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if tree, ok := r.trees[method]; ok {
		if key, params, ok := tree.match(path); ok {
			return key, params, true
		}
	}

	if method == "HEAD" {
		if tree, ok := r.trees["GET"]; ok {
			if key, params, ok := tree.match(path); ok {
				return key, params, true
			}
		}
	}

	if tree, ok := r.trees[MethodAny]; ok {
		if key, params, ok := tree.match(path); ok {
			return key, params, true
		}
	}

	return Key{}, nil, false
}

// Allowed returns the methods that have a route matching path, sorted.
// Adapters use it to tell 405 from 404.
func (r *Registry) Allowed(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var methods []string
	for method, tree := range r.trees {
		if _, _, ok := tree.match(path); ok {
			methods = append(methods, method)
		}
	}
	slices.Sort(methods)
	return methods
}

// Routes returns every registered key sorted by path, then method.
func (r *Registry) Routes() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]Key, 0, len(r.entries))
	for _, e := range r.entries {
		keys = append(keys, e.key)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
	return keys
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
