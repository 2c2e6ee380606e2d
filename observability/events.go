package observability

import (
	"log/slog"

	"stakevault/core/events"
)

// LogEmitter forwards ledger events to a structured logger. It is the default
// emitter wired by the daemon so every state transition leaves a log line.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter writing to the supplied logger. A nil
// logger falls back to the process default.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements the events.Emitter interface.
func (e *LogEmitter) Emit(evt *events.Event) {
	if e == nil || e.logger == nil || evt == nil {
		return
	}
	args := make([]any, 0, len(evt.Attributes)*2)
	for key, value := range evt.Attributes {
		args = append(args, slog.String(key, value))
	}
	e.logger.Info(evt.Type, args...)
}
