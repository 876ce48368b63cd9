// Package logger provides structured logging using Zap.
package logger

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	apperrors "treasury/internal/errors"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init initializes the global logger for the given environment.
// "production" uses a JSON encoder, "test" discards everything, and any
// other value uses a human-readable console encoder.
func Init(env string) {
	once.Do(func() {
		var base *zap.Logger
		var err error

		switch env {
		case "production":
			base, err = zap.NewProduction()
		case "test":
			base = zap.NewNop()
		default:
			base, err = zap.NewDevelopment()
		}

		if err != nil {
			base = zap.NewNop()
		}

		sugar = base.Sugar()
	})
}

// Get returns the global sugared logger.
// If Init has not been called, it initializes a development logger.
func Get() *zap.SugaredLogger {
	if sugar == nil {
		Init("development")
	}
	return sugar
}

// Named returns the global logger scoped to a component.
func Named(component string) *zap.SugaredLogger {
	return Get().Named(component)
}

// LogError writes err at the severity its type calls for, with keysAndValues
// appended. Integrity violations carry an alert flag for log-based alerting.
func LogError(err error, msg string, keysAndValues ...any) {
	log := Get()
	keysAndValues = append(keysAndValues, "error", err.Error())
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		keysAndValues = append(keysAndValues, "code", appErr.Code)
		if appErr.Internal != nil {
			keysAndValues = append(keysAndValues, "internal", appErr.Internal.Error())
		}
	}

	switch apperrors.SeverityOf(err) {
	case apperrors.SeverityDebug:
		log.Debugw(msg, keysAndValues...)
	case apperrors.SeverityInfo:
		log.Infow(msg, keysAndValues...)
	case apperrors.SeverityWarn:
		log.Warnw(msg, keysAndValues...)
	case apperrors.SeverityCritical:
		log.Errorw(msg, append(keysAndValues, "alert", true)...)
	default:
		log.Errorw(msg, keysAndValues...)
	}
}

// Sync flushes any buffered log entries. Call this before application exit.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
