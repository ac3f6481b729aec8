// internal/consumer/consumer.go
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamzrod/tag-poller/internal/exchange"
	"github.com/tamzrod/tag-poller/internal/future"
	"github.com/tamzrod/tag-poller/internal/plc"
)

// PollingConsumer reads a fixed tag set from one connection.
// Every receive call is exactly one request/response cycle.
// It holds no locks; the connection serializes concurrent reads.
type PollingConsumer struct {
	name    string
	conn    plc.Connection
	tags    map[string]any
	factory exchange.Factory
	handler ExceptionHandler
	logger  *slog.Logger
}

type Option func(*PollingConsumer)

// WithName sets the name used in String and log lines.
func WithName(name string) Option {
	return func(c *PollingConsumer) { c.name = name }
}

func WithExceptionHandler(h ExceptionHandler) Option {
	return func(c *PollingConsumer) { c.handler = h }
}

func WithExchangeFactory(f exchange.Factory) Option {
	return func(c *PollingConsumer) { c.factory = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *PollingConsumer) { c.logger = l }
}

// New creates a consumer over conn. tags maps tag name to address;
// the map is copied and never modified.
func New(conn plc.Connection, tags map[string]any, opts ...Option) (*PollingConsumer, error) {
	if conn == nil {
		return nil, errors.New("consumer: connection required")
	}

	cp := make(map[string]any, len(tags))
	for k, v := range tags {
		cp[k] = v
	}

	c := &PollingConsumer{
		conn: conn,
		tags: cp,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.name != "" {
		c.logger = c.logger.With("consumer", c.name)
	}
	if c.factory == nil {
		c.factory = exchange.NewFactory(c.name)
	}
	if c.handler == nil {
		c.handler = NewLoggingExceptionHandler(c.logger)
	}

	return c, nil
}

func (c *PollingConsumer) String() string {
	return "PollingConsumer[" + c.name + "]"
}

// Start reconnects once if the connection is down. It is not repeated per poll.
func (c *PollingConsumer) Start(ctx context.Context) error {
	if c.conn.IsConnected() {
		return nil
	}
	c.logger.Info("connection down at start, reconnecting")
	if err := c.conn.Reconnect(ctx); err != nil {
		return fmt.Errorf("consumer: reconnect: %w", err)
	}
	return nil
}

// Receive waits without bound.
func (c *PollingConsumer) Receive(ctx context.Context) (*exchange.Exchange, error) {
	return c.receive(ctx, -1)
}

// ReceiveNoWait returns at once; an unresolved read counts as a timeout.
func (c *PollingConsumer) ReceiveNoWait(ctx context.Context) (*exchange.Exchange, error) {
	return c.receive(ctx, 0)
}

// ReceiveTimeout waits up to timeoutMs milliseconds. Negative means no bound.
func (c *PollingConsumer) ReceiveTimeout(ctx context.Context, timeoutMs int64) (*exchange.Exchange, error) {
	return c.receive(ctx, timeoutMs)
}

// receive never returns a nil exchange.
// Read failures and timeouts go to the handler and leave an empty body.
// A done ctx also goes to the handler, leaves the body untouched,
// and is returned so the caller observes the cancellation.
func (c *PollingConsumer) receive(ctx context.Context, boundMs int64) (*exchange.Exchange, error) {
	req := c.buildRequest()
	ex := c.newExchange()

	pending := req.Execute()
	if pending == nil {
		pending = future.Failed[plc.ReadResponse](errors.New("driver returned no pending read"))
	}
	// reserved completion hook
	pending.WhenComplete(func(plc.ReadResponse, error) {})

	out := await(ctx, pending, boundMs)

	switch out.kind {
	case outcomeResolved:
		ex.In.SetBody(toBody(out.resp))
	case outcomeFailed, outcomeTimedOut:
		c.handler.HandleException(out.err)
		ex.In.SetBody(map[string]any{})
	case outcomeInterrupted:
		c.handler.HandleException(out.err)
		return ex, out.err
	}

	c.logger.Debug("receive done",
		"outcome", out.kind.String(),
		"bound_ms", boundMs,
		"tags", len(req.TagNames()),
	)
	return ex, nil
}

func (c *PollingConsumer) newExchange() *exchange.Exchange {
	ex := c.factory.CreateExchange()
	if ex == nil {
		ex = exchange.NewFactory(c.name).CreateExchange()
	}
	if ex.In == nil {
		ex.In = &exchange.Message{}
	}
	return ex
}
