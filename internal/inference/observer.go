package inference

import "github.com/google/uuid"

// EventKind classifies an Observer event. Ordering within one query is
// guaranteed by the strategy emitting in source order; across queries no
// ordering is implied.
type EventKind string

const (
	EventInferenceStart    EventKind = "inference-start"
	EventThought           EventKind = "thought"
	EventToolDiscovery     EventKind = "tool-discovery"
	EventToolSelection     EventKind = "tool-selection"
	EventToolExecution     EventKind = "tool-execution"
	EventPartialResponse   EventKind = "partial-response"
	EventInferenceComplete EventKind = "inference-complete"
	EventError             EventKind = "error"
)

// Event is a single progress notification emitted by a strategy. Only the
// fields relevant to Kind are populated; the rest are left zero.
type Event struct {
	QueryID  string
	Kind     EventKind
	Strategy string

	Text    string   // thought text, partial/final response text
	Names   []string // tool-discovery candidate names
	Name    string   // tool-selection / tool-execution tool name
	Args    map[string]any
	Result  string // tool-execution outcome
	Details string // error detail
}

// observerBufferSize bounds the Observer's channel. A slow consumer (a
// REPL rendering loop) drops low-priority events rather than stalling the
// strategy mid-query.
const observerBufferSize = 64

// Observer is a bounded push channel of progress events consumed by the
// presentation layer. A nil *Observer is valid everywhere strategies accept
// one: every method is a no-op against a nil receiver, so callers that
// don't care about progress can simply omit it.
type Observer struct {
	events chan Event
}

// NewObserver creates an Observer with the standard buffer size.
func NewObserver() *Observer {
	return &Observer{events: make(chan Event, observerBufferSize)}
}

// Events returns the channel to range over. Closed once the owning
// strategy's query completes and Close is called.
func (o *Observer) Events() <-chan Event {
	if o == nil {
		return nil
	}
	return o.events
}

// Emit publishes e. Thought events are the lowest priority: if the buffer
// is full they are dropped silently rather than blocking the strategy.
// Every other kind blocks briefly (the buffer is large enough in practice
// that a live consumer never backs it up) so the presentation layer never
// silently misses a tool call, an error, or the final answer.
func (o *Observer) Emit(e Event) {
	if o == nil {
		return
	}
	if e.QueryID == "" {
		e.QueryID = uuid.NewString()
	}
	if e.Kind == EventThought {
		select {
		case o.events <- e:
		default:
		}
		return
	}
	o.events <- e
}

// Close releases the channel. Safe to call once per Observer; callers
// should stop calling Emit afterward.
func (o *Observer) Close() {
	if o == nil {
		return
	}
	close(o.events)
}
