package route

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shravanasati/relay/internal/invoke"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func handler(name string) *invoke.Descriptor {
	return invoke.MustFunc(name, func() string { return name })
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	h := handler("home")
	require.NoError(t, r.Register(Key{Method: "get", Path: "/home", MimeType: "text/html"}, h))

	got, ok := r.Lookup(Key{Method: "GET", Path: "/home"})
	require.True(t, ok)
	assert.Same(t, h, got)

	// mime type is not part of the identity
	got, ok = r.Lookup(Key{Method: "Get", Path: "/home", MimeType: "application/json"})
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = r.Lookup(Key{Method: "POST", Path: "/home"})
	assert.False(t, ok)
	_, ok = r.Lookup(Key{Method: "GET", Path: "/home/"})
	assert.False(t, ok)
}

func TestRegistry_RegisterRejects(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Key{Method: "GET", Path: "/home"}, handler("a")))

	testCases := []struct {
		name   string
		key    Key
		d      *invoke.Descriptor
		target error
	}{
		{"duplicate", Key{Method: "GET", Path: "/home"}, handler("b"), ErrDuplicateRoute},
		{"duplicate case", Key{Method: "get", Path: "/home", MimeType: "text/html"}, handler("b"), ErrDuplicateRoute},
		{"empty method", Key{Path: "/x"}, handler("c"), ErrInvalidRoute},
		{"empty path", Key{Method: "GET"}, handler("c"), ErrInvalidRoute},
		{"relative path", Key{Method: "GET", Path: "x"}, handler("c"), ErrInvalidRoute},
		{"nil handler", Key{Method: "GET", Path: "/nil"}, nil, ErrInvalidRoute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, r.Register(tc.key, tc.d), tc.target)
		})
	}
	assert.Equal(t, 1, r.Len())
	assert.Panics(t, func() { r.MustRegister(Key{Method: "GET", Path: "/home"}, handler("d")) })
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Key{Method: "GET", Path: "/home"}, handler("get home"))
	r.MustRegister(Key{Method: "POST", Path: "/home"}, handler("post home"))
	r.MustRegister(Key{Method: "GET", Path: "/users/:id", MimeType: "application/json"}, handler("user"))
	r.MustRegister(Key{Method: "GET", Path: "/users/me"}, handler("me"))
	r.MustRegister(Key{Method: "GET", Path: "/users/:id/posts"}, handler("posts"))
	r.MustRegister(Key{Method: "HEAD", Path: "/only-head"}, handler("head"))
	r.MustRegister(Key{Method: MethodAny, Path: "/any"}, handler("any"))

	testCases := []struct {
		method       string
		path         string
		expectedKey  Key
		expectedArgs map[string]string
		found        bool
	}{
		{"GET", "/home", Key{Method: "GET", Path: "/home"}, map[string]string{}, true},
		{"post", "/home", Key{Method: "POST", Path: "/home"}, map[string]string{}, true},
		{"GET", "/users/7", Key{Method: "GET", Path: "/users/:id", MimeType: "application/json"}, map[string]string{"id": "7"}, true},
		{"HEAD", "/users/7", Key{Method: "GET", Path: "/users/:id", MimeType: "application/json"}, map[string]string{"id": "7"}, true},
		{"GET", "/users/me", Key{Method: "GET", Path: "/users/me"}, map[string]string{}, true},
		{"GET", "/users/me/posts", Key{Method: "GET", Path: "/users/:id/posts"}, map[string]string{"id": "me"}, true},
		{"HEAD", "/only-head", Key{Method: "HEAD", Path: "/only-head"}, map[string]string{}, true},
		{"DELETE", "/any", Key{Method: MethodAny, Path: "/any"}, map[string]string{}, true},
		{"PUT", "/home", Key{}, nil, false},
		{"GET", "/notfound", Key{}, nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			key, params, ok := r.Resolve(tc.method, tc.path)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expectedKey, key)
			assert.Equal(t, tc.expectedArgs, params)
		})
	}
}

func TestRegistry_AllowedAndRoutes(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(Key{Method: "POST", Path: "/b"}, handler("post b"))
	r.MustRegister(Key{Method: "GET", Path: "/b"}, handler("get b"))
	r.MustRegister(Key{Method: "GET", Path: "/a"}, handler("get a"))

	assert.Equal(t, []string{"GET", "POST"}, r.Allowed("/b"))
	assert.Empty(t, r.Allowed("/c"))

	assert.Equal(t, []Key{
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/b"},
		{Method: "POST", Path: "/b"},
	}, r.Routes())
}

func TestRegistry_LogsRegistrations(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRegistry(WithLogger(zap.New(core)))
	r.MustRegister(Key{Method: "GET", Path: "/x"}, handler("x"))

	entries := logs.FilterMessage("route registered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].ContextMap()["handler"])
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := NewRegistry()
	for i := range 50 {
		r.MustRegister(Key{Method: "GET", Path: fmt.Sprintf("/r/%d", i)}, handler(fmt.Sprint(i)))
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, ok := r.Lookup(Key{Method: "GET", Path: fmt.Sprintf("/r/%d", i)})
			assert.True(t, ok)
			assert.Equal(t, fmt.Sprint(i), d.Name())
		}()
	}
	wg.Wait()
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "GET /x", Key{Method: "get", Path: "/x"}.String())
	assert.Equal(t, "GET /x (text/html)", Key{Method: "GET", Path: "/x", MimeType: "text/html"}.String())
}
