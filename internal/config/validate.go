// internal/config/validate.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/tag-poller/internal/plc"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: empty")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q: want debug|info|warn|error", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q: want text|json", cfg.Logging.Format)
	}

	if len(cfg.Poller.Units) == 0 {
		return fmt.Errorf("poller.units: at least one unit required")
	}

	seen := make(map[string]struct{})
	cborPaths := make(map[string]string)

	for _, u := range cfg.Poller.Units {
		if u.ID == "" {
			return fmt.Errorf("unit: id required")
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("unit %q: duplicate id", u.ID)
		}
		seen[u.ID] = struct{}{}

		if _, err := plc.ParseConnectionString(u.Connection); err != nil {
			return fmt.Errorf("unit %q: %w", u.ID, err)
		}

		// Address types are not checked here; non-string addresses are
		// skipped per poll so the remaining tags still read.
		if len(u.Tags) == 0 {
			return fmt.Errorf("unit %q: at least one tag required", u.ID)
		}

		if u.Poll.IntervalMs <= 0 {
			return fmt.Errorf("unit %q: poll.interval_ms must be > 0", u.ID)
		}

		switch strings.ToLower(u.Poll.Mode) {
		case "", ModeTimed:
			if u.Poll.TimeoutMs < 0 {
				return fmt.Errorf("unit %q: poll.timeout_ms must be >= 0", u.ID)
			}
		case ModeBlocking, ModeImmediate:
			if u.Poll.TimeoutMs != 0 {
				return fmt.Errorf("unit %q: poll.timeout_ms only applies to mode %q", u.ID, ModeTimed)
			}
		default:
			return fmt.Errorf("unit %q: poll.mode %q: want blocking|immediate|timed", u.ID, u.Poll.Mode)
		}

		switch u.Output.Kind {
		case "", OutputLog:
			if u.Output.Path != "" {
				return fmt.Errorf("unit %q: output.path only applies to kind %q", u.ID, OutputCBOR)
			}
		case OutputCBOR:
			if u.Output.Path == "" {
				return fmt.Errorf("unit %q: output.path required for kind %q", u.ID, OutputCBOR)
			}
			if prev, exists := cborPaths[u.Output.Path]; exists {
				return fmt.Errorf(
					"output path collision: %s used by units %q and %q",
					u.Output.Path,
					prev,
					u.ID,
				)
			}
			cborPaths[u.Output.Path] = u.ID
		default:
			return fmt.Errorf("unit %q: output.kind %q: want log|cbor", u.ID, u.Output.Kind)
		}
	}

	return nil
}
