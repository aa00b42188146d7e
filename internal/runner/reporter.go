package runner

import (
	"fmt"
	"log"

	"github.com/hochfrequenz/taskforge/internal/notify"
)

// ErrorReporter turns run failures into a persisted failure record and a
// notification. Store writes are best effort: a reporting failure never
// masks the original error.
type ErrorReporter struct {
	store    Store
	notifier notify.Notifier
}

// NewErrorReporter creates a reporter writing to the given store and notifier
func NewErrorReporter(store Store, notifier notify.Notifier) *ErrorReporter {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &ErrorReporter{store: store, notifier: notifier}
}

// Report logs the failure, marks the run FAILED when a handle exists, and
// sends a notification. The notification is returned so callers can inspect
// what was emitted.
func (er *ErrorReporter) Report(stageErr *StageError, handle, goalID, ownerID string) notify.Notification {
	log.Printf("run failed: goal=%s owner=%s handle=%s kind=%s: %v",
		goalID, ownerID, handle, stageErr.Kind, stageErr.Cause)

	if handle != "" {
		if err := er.store.MarkRunFailed(handle, stageErr.Kind, stageErr.Cause.Error()); err != nil {
			// Swallowed on purpose; the run may already be terminal or the
			// store may be the thing that is broken.
			log.Printf("marking run %s failed: %v", handle, err)
		}
	}

	n := notify.Notification{
		Title:     "Task generation failed",
		Message:   fmt.Sprintf("%s: %v", stageErr.Kind, stageErr.Cause),
		Type:      notify.NotifyError,
		GoalID:    goalID,
		RunHandle: handle,
	}
	if err := er.notifier.Send(n); err != nil {
		log.Printf("sending failure notification for goal %s: %v", goalID, err)
	}
	return n
}
