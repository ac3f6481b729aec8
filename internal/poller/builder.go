// internal/poller/builder.go
package poller

import (
	"context"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/tag-poller/internal/config"
	"github.com/tamzrod/tag-poller/internal/consumer"
	"github.com/tamzrod/tag-poller/internal/exchange"
	"github.com/tamzrod/tag-poller/internal/plc"
	"github.com/tamzrod/tag-poller/internal/status"
)

// Build wires one unit: connection, consumer, health tracker, poller.
// The connection is opened once here (fail fast at startup); the consumer
// reconnects once on Start if it is already down.
// The returned closer releases the connection.
func Build(ctx context.Context, u cfg.UnitConfig, drivers *plc.DriverManager, logger *slog.Logger) (*Poller, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	target, err := plc.ParseConnectionString(u.Connection)
	if err != nil {
		return nil, nil, err
	}
	conn, err := drivers.GetConnection(ctx, u.Connection)
	if err != nil {
		return nil, nil, err
	}

	tracker := status.NewTracker(consumer.NewLoggingExceptionHandler(logger.With("unit", u.ID)))

	c, err := consumer.New(conn, u.Tags,
		consumer.WithName(u.ID),
		consumer.WithLogger(logger),
		consumer.WithExceptionHandler(tracker),
		// options may carry credentials (snmp community)
		consumer.WithExchangeFactory(exchange.NewFactory(target.Endpoint())),
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	p, err := New(
		Config{
			UnitID:    u.ID,
			Interval:  time.Duration(u.Poll.IntervalMs) * time.Millisecond,
			Mode:      u.Poll.Mode,
			TimeoutMs: int64(u.Poll.TimeoutMs),
		},
		c,
		tracker,
		logger,
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return p, conn.Close, nil
}
