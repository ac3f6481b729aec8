// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/tag-poller/internal/config"
	"github.com/tamzrod/tag-poller/internal/exchange"
	"github.com/tamzrod/tag-poller/internal/status"
)

// Receiver is the consumer surface the poller drives.
type Receiver interface {
	Receive(ctx context.Context) (*exchange.Exchange, error)
	ReceiveNoWait(ctx context.Context) (*exchange.Exchange, error)
	ReceiveTimeout(ctx context.Context, timeoutMs int64) (*exchange.Exchange, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID    string
	Interval  time.Duration
	Mode      string
	TimeoutMs int64
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg     Config
	recv    Receiver
	tracker *status.Tracker
	logger  *slog.Logger

	// tickEvery paces seconds-in-error.
	tickEvery time.Duration
}

// New creates a poller with immutable config.
// tracker must be the exception handler of recv so failures reach it.
func New(cfg Config, recv Receiver, tracker *status.Tracker, logger *slog.Logger) (*Poller, error) {
	if cfg.UnitID == "" {
		return nil, errors.New("poller: unit id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	switch cfg.Mode {
	case config.ModeBlocking, config.ModeImmediate, config.ModeTimed:
	default:
		return nil, fmt.Errorf("poller: unknown mode %q", cfg.Mode)
	}
	if recv == nil {
		return nil, errors.New("poller: receiver required")
	}
	if tracker == nil {
		return nil, errors.New("poller: status tracker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		recv:    recv,
		tracker: tracker,
		logger:  logger.With("unit", cfg.UnitID),

		tickEvery: time.Second,
	}, nil
}

func (p *Poller) Status() status.Snapshot {
	return p.tracker.Snapshot()
}

// PollOnce performs exactly one receive with the configured mode.
// Interrupted cycles do not touch health.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{
		UnitID: p.cfg.UnitID,
		At:     time.Now(),
	}

	ex, err := p.receive(ctx)
	res.Exchange = ex

	// the tracker has seen the context error too; drop it with the cycle
	cycleErr := p.tracker.TakeError()

	if err != nil {
		res.Err = err
		res.Interrupted = true
		res.Status = p.tracker.Snapshot()
		return res
	}

	res.Err = cycleErr
	res.Status, res.StatusChanged = p.tracker.Observe(cycleErr)
	if res.StatusChanged {
		p.logger.Info("health changed",
			"health", status.HealthName(res.Status.Health),
			"last_error_code", res.Status.LastErrorCode,
		)
	}
	return res
}

func (p *Poller) receive(ctx context.Context) (*exchange.Exchange, error) {
	switch p.cfg.Mode {
	case config.ModeBlocking:
		return p.recv.Receive(ctx)
	case config.ModeImmediate:
		return p.recv.ReceiveNoWait(ctx)
	default:
		return p.recv.ReceiveTimeout(ctx, p.cfg.TimeoutMs)
	}
}
