// internal/writer/status_writer.go
package writer

import (
	"log/slog"
	"sync"

	"github.com/tamzrod/tag-poller/internal/status"
)

// StatusWriter is the delivery-only contract for unit health.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(unitID string, s status.Snapshot) error
}

// logStatusWriter logs the full snapshot the first time a unit is seen and
// only the fields that moved afterwards.
type logStatusWriter struct {
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]status.Snapshot
}

func NewLogStatusWriter(logger *slog.Logger) StatusWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &logStatusWriter{
		logger: logger,
		last:   make(map[string]status.Snapshot),
	}
}

func (sw *logStatusWriter) WriteStatus(unitID string, s status.Snapshot) error {
	sw.mu.Lock()
	prev, seen := sw.last[unitID]
	sw.last[unitID] = s
	sw.mu.Unlock()

	if !seen {
		sw.logger.Info("status",
			"unit", unitID,
			"health", status.HealthName(s.Health),
			"last_error_code", s.LastErrorCode,
			"seconds_in_error", s.SecondsInError,
		)
		return nil
	}

	var attrs []any
	if prev.Health != s.Health {
		attrs = append(attrs, "health", status.HealthName(s.Health))
	}
	if prev.LastErrorCode != s.LastErrorCode {
		attrs = append(attrs, "last_error_code", s.LastErrorCode)
	}
	if prev.SecondsInError != s.SecondsInError {
		attrs = append(attrs, "seconds_in_error", s.SecondsInError)
	}
	if len(attrs) == 0 {
		return nil
	}
	sw.logger.Info("status", append([]any{"unit", unitID}, attrs...)...)
	return nil
}
