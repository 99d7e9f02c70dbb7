// Package utils holds small helpers shared across packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultSlowThreshold is the duration above which an operation is logged at warn level
const DefaultSlowThreshold = 30 * time.Second

// OperationTimer provides a defer-friendly way to measure operation duration.
// The returned func logs the duration at debug level, or at warn level when it
// exceeds slow, and returns it.
//
// Usage:
//
//	stop := utils.OperationTimer("portfolio_warmup", utils.DefaultSlowThreshold, log)
//	defer stop()
func OperationTimer(operation string, slow time.Duration, log zerolog.Logger) func() time.Duration {
	return operationTimer(operation, slow, log, time.Now)
}

func operationTimer(operation string, slow time.Duration, log zerolog.Logger, now func() time.Time) func() time.Duration {
	start := now()

	return func() time.Duration {
		duration := now().Sub(start)

		if slow > 0 && duration > slow {
			log.Warn().
				Str("operation", operation).
				Dur("duration", duration).
				Msg("Slow operation detected")
			return duration
		}

		log.Debug().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg("Operation completed")

		return duration
	}
}
