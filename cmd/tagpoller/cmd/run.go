// cmd/tagpoller/cmd/run.go
package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamzrod/tag-poller/internal/driver"
	"github.com/tamzrod/tag-poller/internal/poller"
	"github.com/tamzrod/tag-poller/internal/status"
	"github.com/tamzrod/tag-poller/internal/writer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll every configured unit until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("run", err)
		return err
	}

	logger := newLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drivers := driver.NewManager(logger)

	var (
		wg      sync.WaitGroup
		closers []func() error
		pollers []*poller.Poller
	)
	defer func() {
		for _, fn := range closers {
			_ = fn()
		}
	}()

	// --------------------
	// Build per-unit pipelines
	// --------------------

	for _, unit := range cfg.Poller.Units {
		p, closePoller, err := poller.Build(ctx, unit, drivers, logger)
		if err != nil {
			logger.Error("poller build failed", "unit", unit.ID, "err", err)
			stop()
			wg.Wait()
			return err
		}
		closers = append(closers, closePoller)
		pollers = append(pollers, p)

		w, closeWriter, err := writer.Build(unit, logger)
		if err != nil {
			logger.Error("writer build failed", "unit", unit.ID, "err", err)
			stop()
			wg.Wait()
			return err
		}
		closers = append(closers, closeWriter)

		out := make(chan poller.PollResult)

		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Run(ctx, out)
		}()
		go func(unitID string) {
			defer wg.Done()
			deliver(ctx, unitID, w, out)
		}(unit.ID)
	}

	logger.Info("polling", "units", len(cfg.Poller.Units))
	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()

	for i, p := range pollers {
		st := p.Status()
		logger.Info("final status",
			"unit", cfg.Poller.Units[i].ID,
			"health", status.HealthName(st.Health),
			"last_error_code", st.LastErrorCode,
			"seconds_in_error", st.SecondsInError,
		)
	}
	return nil
}

func deliver(ctx context.Context, unitID string, w writer.Writer, in <-chan poller.PollResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-in:
			if err := w.Write(res); err != nil {
				printError("writer (unit="+unitID+")", err)
			}
		}
	}
}
