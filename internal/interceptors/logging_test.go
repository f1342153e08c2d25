package interceptors

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fixedClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLogging(zap.New(core))
	l.now = fixedClock(5 * time.Millisecond)

	req := request.New("GET", "/users/7").WithHeader(RequestIDHeader, "rid-1")
	term := &okTerminal{}
	key := route.Key{Method: "GET", Path: "/users/:id"}
	_, err := chain.Build([]chain.Interceptor{l}, term.next)(context.Background(), req, key)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "request", entries[0].Message)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/users/7", fields["path"])
	assert.Equal(t, "/users/:id", fields["route"])
	assert.Equal(t, int64(200), fields["status"])
	assert.Equal(t, 5*time.Millisecond, fields["duration"])
	assert.Equal(t, "rid-1", fields["request_id"])
}

func TestLoggingLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLogging(zap.New(core))

	serverError := func(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
		return response.Status(response.StatusInternalServerError), nil
	}
	_, err := chain.Build([]chain.Interceptor{l}, serverError)(context.Background(), request.New("GET", "/"), okKey)
	require.NoError(t, err)

	boom := errors.New("boom")
	failing := func(ctx context.Context, req request.Request, key route.Key) (response.Response, error) {
		return response.Response{}, boom
	}
	_, err = chain.Build([]chain.Interceptor{l}, failing)(context.Background(), request.New("GET", "/"), okKey)
	require.ErrorIs(t, err, boom)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "request failed", entries[1].Message)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestLoggingNilLogger(t *testing.T) {
	resp, _ := run(t, NewLogging(nil), request.New("GET", "/ok"))
	assert.Equal(t, response.StatusOK, resp.StatusCode())
}

func TestConsoleLogging(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleLogging(&buf)
	c.now = fixedClock(time.Millisecond)

	resp, _ := run(t, c, request.New("POST", "/ok"))
	assert.Equal(t, response.StatusOK, resp.StatusCode())

	line := buf.String()
	assert.Contains(t, line, "POST")
	assert.Contains(t, line, "/ok")
	assert.Contains(t, line, "200")
	assert.Contains(t, line, "in 1ms")
}

func TestStatusCodeStyle(t *testing.T) {
	testCases := []struct {
		code  int
		color string
	}{
		{200, "46"},
		{204, "46"},
		{301, "226"},
		{404, "208"},
		{500, "196"},
		{503, "196"},
		{100, "15"},
	}
	for _, tc := range testCases {
		style := statusCodeStyle(tc.code)
		assert.Equal(t, lipgloss.Color(tc.color), style.GetForeground(), tc.code)
		assert.True(t, style.GetBold())
	}
}
