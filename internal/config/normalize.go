// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	for ui := range cfg.Poller.Units {
		u := &cfg.Poller.Units[ui]

		if u.Poll.Mode == "" {
			u.Poll.Mode = ModeTimed
		}
		u.Poll.Mode = strings.ToLower(u.Poll.Mode)

		// timed mode defaults its bound to the poll interval
		if u.Poll.Mode == ModeTimed && u.Poll.TimeoutMs == 0 {
			u.Poll.TimeoutMs = u.Poll.IntervalMs
		}

		if u.Output.Kind == "" {
			u.Output.Kind = OutputLog
		}
	}
}
