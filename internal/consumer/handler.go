// internal/consumer/handler.go
package consumer

import "log/slog"

// ExceptionHandler is the sink for failures of a receive call.
// It must not block; its own failures are its concern.
type ExceptionHandler interface {
	HandleException(err error)
}

// HandlerFunc adapts a function to ExceptionHandler.
type HandlerFunc func(err error)

func (f HandlerFunc) HandleException(err error) { f(err) }

// LoggingExceptionHandler logs every failure at warn level.
type LoggingExceptionHandler struct {
	logger *slog.Logger
}

func NewLoggingExceptionHandler(logger *slog.Logger) *LoggingExceptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingExceptionHandler{logger: logger}
}

func (h *LoggingExceptionHandler) HandleException(err error) {
	h.logger.Warn("receive failed", "err", err)
}
