// internal/writer/writer.go
package writer

import (
	"log/slog"

	"github.com/tamzrod/tag-poller/internal/poller"
)

// LogWriter prints every result as one structured log line and
// reports health changes through a StatusWriter.
type LogWriter struct {
	logger *slog.Logger
	status StatusWriter
}

func NewLogWriter(logger *slog.Logger) *LogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogWriter{
		logger: logger,
		status: NewLogStatusWriter(logger),
	}
}

func (w *LogWriter) Write(res poller.PollResult) error {
	l := w.logger.With("unit", res.UnitID)

	switch {
	case res.Interrupted:
		l.Debug("poll interrupted", "err", res.Err)
		return nil
	case res.Err != nil:
		l.Warn("poll failed", "err", res.Err)
	default:
		attrs := []any{"at", res.At}
		if ex := res.Exchange; ex != nil {
			attrs = append(attrs, "exchange", ex.ID)
		}
		for name, v := range res.Exchange.BodyMap() {
			attrs = append(attrs, slog.Any("tag."+name, v))
		}
		l.Info("poll", attrs...)
	}

	if res.StatusChanged {
		return w.status.WriteStatus(res.UnitID, res.Status)
	}
	return nil
}
