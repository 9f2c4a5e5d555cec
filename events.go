package krrs

import "time"

// EventType identifies an orchestrator event.
type EventType string

const (
	// EventPhase fires on every state-machine transition.
	EventPhase EventType = "phase"

	// EventToolCall fires when a capability request starts executing.
	EventToolCall EventType = "tool_call"

	// EventToolResult fires when a capability request resolves.
	EventToolResult EventType = "tool_result"

	// EventCompleted fires once per invocation, at the terminal step.
	EventCompleted EventType = "completed"
)

// Event is one step in an invocation, published to the registered callback.
// Callbacks run synchronously on the orchestrator goroutine; slow consumers
// should hand off to their own channel.
type Event struct {
	InvocationID string    `json:"invocation_id"`
	Type         EventType `json:"type"`
	Phase        string    `json:"phase,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	Time         time.Time `json:"time"`
}

// EventFunc receives orchestrator events.
type EventFunc func(Event)

func (o *Orchestrator) emit(id string, typ EventType, phase, detail string) {
	if o.onEvent == nil {
		return
	}
	o.onEvent(Event{
		InvocationID: id,
		Type:         typ,
		Phase:        phase,
		Detail:       detail,
		Time:         time.Now(),
	})
}
