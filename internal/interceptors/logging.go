package interceptors

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shravanasati/relay/internal/chain"
	"github.com/shravanasati/relay/internal/request"
	"github.com/shravanasati/relay/internal/response"
	"github.com/shravanasati/relay/internal/route"
	"go.uber.org/zap"
)

// Logging writes one structured line per request.
type Logging struct {
	base
	logger *zap.Logger
	now    func() time.Time
}

// NewLogging creates a zap request logger.
func NewLogging(logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{
		base:   base{name: "logging", priority: PriorityLogging},
		logger: logger,
		now:    time.Now,
	}
}

func (l *Logging) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	start := l.now()
	resp, err := next(ctx, req, key)

	fields := []zap.Field{
		zap.String("method", req.Method()),
		zap.String("path", req.Target()),
		zap.String("route", key.Path),
		zap.Duration("duration", l.now().Sub(start)),
	}
	if id := req.Header(RequestIDHeader); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	if err != nil {
		l.logger.Error("request failed", append(fields, zap.Error(err))...)
		return resp, err
	}

	fields = append(fields, zap.Int("status", int(resp.StatusCode())))
	switch code := resp.StatusCode(); {
	case code >= 500:
		l.logger.Warn("request", fields...)
	default:
		l.logger.Info("request", fields...)
	}
	return resp, nil
}

var methodStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("15")).
	Bold(true).
	Background(lipgloss.Color("12")).
	Width(8).
	Align(lipgloss.Center)

// ConsoleLogging prints a colored line per request, for humans watching a
// terminal.
type ConsoleLogging struct {
	base
	out io.Writer
	now func() time.Time
}

// NewConsoleLogging writes colored request lines to out.
func NewConsoleLogging(out io.Writer) *ConsoleLogging {
	return &ConsoleLogging{
		base: base{name: "console-logging", priority: PriorityLogging},
		out:  out,
		now:  time.Now,
	}
}

func (c *ConsoleLogging) Intercept(ctx context.Context, req request.Request, key route.Key, next chain.Next) (response.Response, error) {
	start := c.now()
	resp, err := next(ctx, req, key)

	status := "ERR"
	statusStyle := statusCodeStyle(int(response.StatusInternalServerError))
	if err == nil {
		status = fmt.Sprintf("%d", resp.StatusCode())
		statusStyle = statusCodeStyle(int(resp.StatusCode()))
	}

	fmt.Fprintf(c.out, "%s %s %s in %s\n",
		methodStyle.Render(req.Method()),
		req.Target(),
		statusStyle.Render(status),
		c.now().Sub(start),
	)
	return resp, err
}

// statusCodeStyle colors a status code by class.
func statusCodeStyle(statusCode int) lipgloss.Style {
	switch {
	case statusCode >= 200 && statusCode < 300:
		// green
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	case statusCode >= 300 && statusCode < 400:
		// yellow
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	case statusCode >= 400 && statusCode < 500:
		// orange
		return lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	case statusCode >= 500:
		// bright red
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	}
}
