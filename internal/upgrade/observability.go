package upgrade

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the minimal logging interface phases print progress through.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured run event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "preflight", "shutdown")
	Message   string            // Human-readable message
	Resource  string            // Unit, node or path if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of run event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase failed and the run is aborting.
	EventPhaseFailed EventType = "phase.failed"
	// EventPhaseSkipped indicates a conditional phase did not apply.
	EventPhaseSkipped EventType = "phase.skipped"

	// EventWarning indicates a recoverable condition.
	EventWarning EventType = "warning"

	// EventServiceStopped indicates a unit was stopped.
	EventServiceStopped EventType = "service.stopped"
	// EventServiceStarted indicates a unit was started.
	EventServiceStarted EventType = "service.started"

	// EventBackupCreated indicates the backup record exists.
	EventBackupCreated EventType = "backup.created"

	// EventNodeAvailability indicates a swarm availability change was requested.
	EventNodeAvailability EventType = "node.availability"

	// EventConfigWritten indicates the runtime configuration was written.
	EventConfigWritten EventType = "config.written"
)

// ZerologObserver implements Observer on top of a zerolog.Logger.
type ZerologObserver struct {
	log           zerolog.Logger
	contextFields map[string]string
}

// NewZerologObserver creates an observer writing to log.
func NewZerologObserver(log zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{
		log:           log,
		contextFields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *ZerologObserver) Printf(format string, v ...any) {
	o.log.Info().Msgf(format, v...)
}

// Event implements Observer.
func (o *ZerologObserver) Event(event Event) {
	var ev *zerolog.Event
	switch event.Type {
	case EventPhaseFailed:
		ev = o.log.Error()
	case EventWarning:
		ev = o.log.Warn()
	default:
		ev = o.log.Info()
	}

	ev = ev.Str("event", string(event.Type))
	if event.Phase != "" {
		ev = ev.Str("phase", event.Phase)
	}
	if event.Resource != "" {
		ev = ev.Str("resource", event.Resource)
	}
	if !event.Timestamp.IsZero() {
		ev = ev.Time("at", event.Timestamp)
	}

	fields := make(map[string]string, len(o.contextFields)+len(event.Fields))
	maps.Copy(fields, o.contextFields)
	maps.Copy(fields, event.Fields)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		ev = ev.Str(k, fields[k])
	}

	ev.Msg(o.formatEvent(event))
}

// WithFields implements Observer.
func (o *ZerologObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	maps.Copy(newFields, o.contextFields)
	maps.Copy(newFields, fields)

	return &ZerologObserver{
		log:           o.log,
		contextFields: newFields,
	}
}

// formatEvent renders the human part of an event. Phase starts are
// printed as banners so the log reads like a runbook.
func (o *ZerologObserver) formatEvent(event Event) string {
	switch event.Type {
	case EventPhaseStarted:
		return fmt.Sprintf("==== %s ====", event.Phase)
	case EventPhaseSkipped:
		return fmt.Sprintf("[%s] skipped: %s", event.Phase, event.Message)
	}
	if event.Phase != "" {
		return fmt.Sprintf("[%s] %s", event.Phase, event.Message)
	}
	return event.Message
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogPhaseSkipped logs that a conditional phase did not apply.
func LogPhaseSkipped(observer Observer, phase, reason string) {
	observer.Event(Event{
		Type:    EventPhaseSkipped,
		Phase:   phase,
		Message: reason,
	})
}
