package telemetry

import (
	"time"

	"github.com/google/uuid"

	"ssohub/pkg/logging"
)

// DefaultCredentialSourceID is recorded when the caller of a login or
// logout operation does not supply a source identifier.
const DefaultCredentialSourceID = "ssohub"

// Event is one metric event emitted by the auth coordinators.
type Event struct {
	// ID uniquely identifies the event instance.
	ID string

	// Name is the metric name, e.g. "auth_reuseConnection".
	Name string

	// Result is "Succeeded" or "Failed".
	Result string

	// CredentialSourceID identifies which feature initiated the
	// operation. Defaults to DefaultCredentialSourceID.
	CredentialSourceID string

	// Source is an optional caller-supplied origin. Present only when the
	// caller set it; never defaulted.
	Source string

	// Time is when the event was recorded.
	Time time.Time
}

// Emitter receives metric events. The transport behind an emitter is out
// of scope here; the boundary is the interface.
type Emitter interface {
	Emit(ev Event)
}

// New builds an event with a fresh ID and timestamp. An empty sourceID is
// replaced by DefaultCredentialSourceID; source stays empty unless
// supplied.
func New(name, result, sourceID, source string) Event {
	if sourceID == "" {
		sourceID = DefaultCredentialSourceID
	}
	return Event{
		ID:                 uuid.NewString(),
		Name:               name,
		Result:             result,
		CredentialSourceID: sourceID,
		Source:             source,
		Time:               time.Now(),
	}
}

// LogEmitter writes events through the logging package. It is the default
// emitter when no telemetry transport is wired in.
type LogEmitter struct{}

func (LogEmitter) Emit(ev Event) {
	if ev.Source != "" {
		logging.Info("Telemetry", "[METRIC] %s result=%s credentialSourceId=%s source=%s",
			ev.Name, ev.Result, ev.CredentialSourceID, ev.Source)
		return
	}
	logging.Info("Telemetry", "[METRIC] %s result=%s credentialSourceId=%s",
		ev.Name, ev.Result, ev.CredentialSourceID)
}

// Recorder is an Emitter that captures events for assertions in tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.Events = append(r.Events, ev)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}
