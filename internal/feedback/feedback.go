// Package feedback reacts to accepted taps and finished runs.
package feedback

import (
	"io"

	"github.com/verte-zerg/ddk/internal/session"
)

// Notifier is told about accepted taps and run completion.
type Notifier interface {
	Tap()
	Finished()
}

// Subscriber is the part of session.Controller a Notifier attaches to.
type Subscriber interface {
	Subscribe(session.Listener) func()
}

// Attach forwards controller events to n and returns a detach function.
func Attach(sub Subscriber, n Notifier) func() {
	return sub.Subscribe(func(ev session.Event) {
		switch {
		case ev.Kind == session.EventTap:
			n.Tap()
		case ev.Finished():
			n.Finished()
		}
	})
}

// Funcs adapts plain functions to a Notifier. Nil fields are skipped.
type Funcs struct {
	OnTap      func()
	OnFinished func()
}

// Tap implements Notifier.
func (f Funcs) Tap() {
	if f.OnTap != nil {
		f.OnTap()
	}
}

// Finished implements Notifier.
func (f Funcs) Finished() {
	if f.OnFinished != nil {
		f.OnFinished()
	}
}

// Multi fans out to several notifiers in order.
type Multi []Notifier

// Tap implements Notifier.
func (m Multi) Tap() {
	for _, n := range m {
		n.Tap()
	}
}

// Finished implements Notifier.
func (m Multi) Finished() {
	for _, n := range m {
		n.Finished()
	}
}

// Bell rings the terminal bell when a run finishes.
type Bell struct {
	W io.Writer
}

// Tap implements Notifier. The bell only marks completion.
func (Bell) Tap() {}

// Finished implements Notifier.
func (b Bell) Finished() {
	if b.W == nil {
		return
	}
	if _, err := io.WriteString(b.W, "\a"); err != nil {
		// Best-effort bell.
		_ = err
	}
}
