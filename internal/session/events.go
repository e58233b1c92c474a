package session

import "github.com/verte-zerg/ddk/internal/model"

// EventKind identifies what changed.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventTap
	EventTick
	EventPreferences
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state"
	case EventTap:
		return "tap"
	case EventTick:
		return "tick"
	case EventPreferences:
		return "preferences"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after the controller has applied a change.
type Event struct {
	Kind     EventKind
	Previous model.State
	Snapshot model.Snapshot
}

// Finished reports whether the event is the transition into finished.
func (e Event) Finished() bool {
	return e.Kind == EventStateChanged &&
		e.Snapshot.State == model.StateFinished &&
		e.Previous != model.StateFinished
}

// Listener receives controller events synchronously.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// broadcaster holds an ordered listener list. It is embedded by the
// assessment types so each exposes Subscribe.
type broadcaster struct {
	listeners []subscription
	nextSubID int
}

// Subscribe registers fn and returns a function that removes it.
// Listeners run in subscription order on the caller's goroutine.
func (b *broadcaster) Subscribe(fn Listener) func() {
	b.nextSubID++
	id := b.nextSubID
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range b.listeners {
			if sub.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *broadcaster) emit(ev Event) {
	if len(b.listeners) == 0 {
		return
	}
	// Copy so a listener may unsubscribe while being notified.
	subs := append([]subscription(nil), b.listeners...)
	for _, sub := range subs {
		sub.fn(ev)
	}
}

func (c *Controller) publish(kind EventKind, prev model.State) {
	c.emit(Event{Kind: kind, Previous: prev, Snapshot: c.snap})
}
