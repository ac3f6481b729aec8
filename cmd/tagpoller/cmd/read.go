// cmd/tagpoller/cmd/read.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/tag-poller/internal/config"
	"github.com/tamzrod/tag-poller/internal/driver"
	"github.com/tamzrod/tag-poller/internal/poller"
)

var (
	readUnit      string
	readMode      string
	readTimeoutMs int
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Perform one receive on a unit and print the tag values",
	Long: `Performs exactly one read of the unit's tag set and prints the
resulting name/value map as YAML. A failed or timed out read prints an
empty map; the failure itself is logged.`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readUnit, "unit", "u", "", "unit id (default: first unit)")
	readCmd.Flags().StringVar(&readMode, "mode", "", "blocking|immediate|timed (default: unit's mode)")
	readCmd.Flags().IntVar(&readTimeoutMs, "timeout-ms", 0, "wait bound for timed mode (default: unit's timeout)")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("read", err)
		return err
	}

	unit, err := selectUnit(cfg, readUnit, readMode, readTimeoutMs)
	if err != nil {
		printError("read", err)
		return err
	}

	logger := newLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, closePoller, err := poller.Build(ctx, unit, driver.NewManager(logger), logger)
	if err != nil {
		printError("read", err)
		return err
	}
	defer closePoller()

	res := p.PollOnce(ctx)
	if res.Interrupted {
		return res.Err
	}
	return printBody(cmd.OutOrStdout(), res)
}

// selectUnit picks the unit by id and applies flag overrides.
func selectUnit(cfg *config.Config, id, mode string, timeoutMs int) (config.UnitConfig, error) {
	var (
		unit  config.UnitConfig
		found bool
	)
	for _, u := range cfg.Poller.Units {
		if id == "" || u.ID == id {
			unit, found = u, true
			break
		}
	}
	if !found {
		return config.UnitConfig{}, fmt.Errorf("unit %q not found", id)
	}

	if mode != "" {
		switch mode {
		case config.ModeBlocking, config.ModeImmediate, config.ModeTimed:
			unit.Poll.Mode = mode
		default:
			return config.UnitConfig{}, fmt.Errorf("mode %q: want blocking|immediate|timed", mode)
		}
	}
	if timeoutMs < 0 {
		return config.UnitConfig{}, fmt.Errorf("timeout-ms %d: must be >= 0", timeoutMs)
	}
	if timeoutMs > 0 {
		unit.Poll.TimeoutMs = timeoutMs
	}
	if unit.Poll.Mode == config.ModeTimed && unit.Poll.TimeoutMs == 0 {
		unit.Poll.TimeoutMs = unit.Poll.IntervalMs
	}
	return unit, nil
}

func printBody(w io.Writer, res poller.PollResult) error {
	body := res.Exchange.BodyMap()
	if body == nil {
		body = map[string]any{}
	}
	raw, err := yaml.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	_, err = w.Write(raw)
	return err
}
