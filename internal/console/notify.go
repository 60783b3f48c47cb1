package console

import "sovdscope/internal/logging"

// NotifyLevel grades a user-facing notification.
type NotifyLevel string

// Notification levels. Errors are blocking (connection failures), warnings
// and infos are transient toasts.
const (
	LevelInfo    NotifyLevel = "info"
	LevelWarning NotifyLevel = "warning"
	LevelError   NotifyLevel = "error"
)

// Notifier is the side channel for user-facing messages. Failures inside the
// tree and collection layers degrade to empty results and a notification;
// they never propagate as errors into rendering.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

// LogNotifier writes notifications to the application log. It is the default
// when no UI bridge is attached.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(level NotifyLevel, message string) {
	switch level {
	case LevelError:
		logging.Error("%s", message)
	case LevelWarning:
		logging.Warning("%s", message)
	default:
		logging.Info("%s", message)
	}
}

// EventSink receives state-change events (fault updates, execution
// transitions, notifications) for push delivery to connected browsers.
type EventSink func(event string, payload interface{})
