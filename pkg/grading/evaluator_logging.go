package grading

import (
	"time"

	"github.com/rs/zerolog"
)

// EvaluatorLogEvent describes one rule evaluation for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Rule     string
	Scope    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records rule evaluations.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// NewZerologEvaluatorLogger adapts a zerolog logger; failures log at error
// level, successes at debug.
func NewZerologEvaluatorLogger(logger zerolog.Logger) EvaluatorLogger {
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		entry := logger.Debug()
		if event.Err != nil {
			entry = logger.Error().Err(event.Err)
		}
		entry.
			Str("engine", event.Engine).
			Str("rule", event.Rule).
			Str("scope", event.Scope).
			Dur("duration", event.Duration).
			Msg("rule evaluated")
	})
}
