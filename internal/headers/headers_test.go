package headers

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldLine(t *testing.T) {
	h := NewHeaders()
	require.NoError(t, h.ParseFieldLine([]byte("Host:   localhost:42069   ")))
	assert.Equal(t, "localhost:42069", h.Get("host"))

	require.NoError(t, h.ParseFieldLine([]byte("Accept: text/html")))
	require.NoError(t, h.ParseFieldLine([]byte("Accept: application/json")))
	assert.Equal(t, "text/html, application/json", h.Get("Accept"))

	testCases := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"space before colon", "       Host : localhost:42069       "},
		{"non token name", "HÂ©st: localhost:42069"},
		{"folded continuation", " part2"},
		{"at sign", "Invalid@Name: value"},
		{"null in value", "Valid-Name: a\x00b"},
		{"bell in value", "Valid-Name: a\x07b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewHeaders().ParseFieldLine([]byte(tc.line))
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestHeadersMethods(t *testing.T) {
	t.Run("add folds repeated fields", func(t *testing.T) {
		h := NewHeaders()
		h.Add("X-Custom-Header", "value1")
		h.Add("x-custom-header", "value2")
		assert.Equal(t, "value1, value2", h.Get("X-CUSTOM-HEADER"))
	})

	t.Run("set replaces", func(t *testing.T) {
		h := NewHeaders()
		h.Add("Vary", "Origin")
		h.Set("vary", "Accept")
		assert.Equal(t, "Accept", h.Get("Vary"))
	})

	t.Run("invalid fields are dropped", func(t *testing.T) {
		h := NewHeaders()
		h.Add("Bad Name", "x")
		h.Set("X-Split", "a\r\nInjected: yes")
		assert.Equal(t, 0, h.Size())
	})

	t.Run("has and remove", func(t *testing.T) {
		h := NewHeaders()
		h.Add("Empty-Value", "")
		assert.True(t, h.Has("empty-value"))
		h.Remove("EMPTY-VALUE")
		assert.False(t, h.Has("empty-value"))
		h.Remove("never-there")
	})

	t.Run("keys are sorted", func(t *testing.T) {
		h := FromMap(map[string]string{"B": "2", "a": "1", "C": "3"})
		assert.Equal(t, []string{"a", "b", "c"}, h.Keys())
	})

	t.Run("clone is independent", func(t *testing.T) {
		h := NewHeaders()
		h.Set("Content-Type", "text/plain")
		c := h.Clone()
		c.Set("Content-Type", "application/json")
		assert.Equal(t, "text/plain", h.Get("content-type"))
		assert.Equal(t, "application/json", c.Get("content-type"))
	})

	t.Run("nil receiver reads", func(t *testing.T) {
		var h *Headers
		assert.Equal(t, "", h.Get("x"))
		assert.Equal(t, 0, h.Size())
		assert.Empty(t, maps.Collect(h.All()))
		assert.Equal(t, 0, h.Clone().Size())
	})

	t.Run("all", func(t *testing.T) {
		h := NewHeaders()
		h.Add("Content-Type", "application/json")
		h.Add("Accept", "text/html")

		assert.Equal(t, map[string]string{
			"content-type": "application/json",
			"accept":       "text/html",
		}, maps.Collect(h.All()))
	})
}
