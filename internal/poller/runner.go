// internal/poller/runner.go
package poller

import (
	"context"
	"sync"
	"time"
)

// Run starts the ticker loop and emits PollResult on the provided channel.
// One goroutine per unit. No overlap. No retries.
// Seconds-in-error advances on its own goroutine, so it keeps counting
// while a blocking read hangs.
func (p *Poller) Run(ctx context.Context, out chan<- PollResult) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.tickHealth(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			res := p.PollOnce(ctx)
			if res.Interrupted {
				return
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Poller) tickHealth(ctx context.Context) {
	t := time.NewTicker(p.tickEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tracker.Tick()
		}
	}
}
