// internal/writer/builder.go
package writer

import (
	"fmt"
	"log/slog"

	cfg "github.com/tamzrod/tag-poller/internal/config"
)

// Build creates the writer selected by the unit's output config.
// Assumes config has already been validated and normalized.
func Build(u cfg.UnitConfig, logger *slog.Logger) (Writer, func() error, error) {
	switch u.Output.Kind {
	case cfg.OutputLog, "":
		return NewLogWriter(logger), func() error { return nil }, nil

	case cfg.OutputCBOR:
		w, err := NewCBORWriter(u.Output.Path)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil

	default:
		return nil, nil, fmt.Errorf("writer: unit %s: unknown output kind %q", u.ID, u.Output.Kind)
	}
}
