package chain

import "sync"

// Discovery supplies the interceptor set. It is queried once, when a
// pipeline is built.
type Discovery interface {
	Interceptors() []Interceptor
}

// Static is a fixed interceptor set.
type Static []Interceptor

func (s Static) Interceptors() []Interceptor {
	return append([]Interceptor(nil), s...)
}

// Catalog collects interceptors registered at startup, typically from app
// wiring or init functions. It is safe for concurrent use.
type Catalog struct {
	mu           sync.Mutex
	interceptors []Interceptor
}

// NewCatalog creates a catalog holding the given interceptors.
func NewCatalog(interceptors ...Interceptor) *Catalog {
	c := &Catalog{}
	c.Add(interceptors...)
	return c
}

// Add registers interceptors. Nil entries are ignored.
func (c *Catalog) Add(interceptors ...Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range interceptors {
		if i != nil {
			c.interceptors = append(c.interceptors, i)
		}
	}
}

// Interceptors returns a snapshot in registration order.
func (c *Catalog) Interceptors() []Interceptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Interceptor(nil), c.interceptors...)
}

// Len returns the number of registered interceptors.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.interceptors)
}
