package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
)

type tickMsg struct {
	gen int
	at  time.Time
}

// ticker drives a run clock from clock readings. Each loop carries a
// generation id; stop and begin invalidate loops still in flight.
type ticker struct {
	clock    clockwork.Clock
	interval time.Duration
	gen      int
	last     time.Time
}

func newTicker(clock clockwork.Clock, interval time.Duration) ticker {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return ticker{clock: clock, interval: interval}
}

func (t *ticker) begin() tea.Cmd {
	t.gen++
	t.last = t.clock.Now()
	return t.next()
}

func (t *ticker) stop() {
	t.gen++
}

func (t *ticker) next() tea.Cmd {
	gen, clock, interval := t.gen, t.clock, t.interval
	return func() tea.Msg {
		at := <-clock.After(interval)
		return tickMsg{gen: gen, at: at}
	}
}

// accept returns the seconds since the previous reading, or false for a
// message from a stale loop.
func (t *ticker) accept(msg tickMsg) (float64, bool) {
	if msg.gen != t.gen {
		return 0, false
	}
	delta := msg.at.Sub(t.last).Seconds()
	t.last = msg.at
	return delta, true
}
