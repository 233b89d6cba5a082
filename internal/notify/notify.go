// Package notify is the seam for surfacing user-visible notifications
// (blocking call errors, failed sends, failed reaction submits).
package notify

import (
	"go.uber.org/zap"

	"freightlink-client/pkg/logger"
)

// Level classifies a notification
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notifier delivers a user-visible notification. The UI layer supplies an
// implementation that renders banners; the core never renders anything.
type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to the application log. Used for
// headless runs and as a safe default.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the notification
func (n *LogNotifier) Notify(level Level, message string) {
	switch level {
	case LevelError:
		logger.Error("user notification", zap.String("message", message))
	default:
		logger.Info("user notification", zap.String("message", message))
	}
}

// Func adapts a function to the Notifier interface
type Func func(level Level, message string)

// Notify calls the wrapped function
func (f Func) Notify(level Level, message string) {
	f(level, message)
}
