package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/ddk/internal/model"
)

type keyMap struct {
	Tap     key.Binding
	Primary key.Binding
	Reset   key.Binding
	Longer  key.Binding
	Shorter key.Binding
	Unit    key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Tap: key.NewBinding(
			key.WithKeys(" ", "t"),
			key.WithHelp("space", "tap"),
		),
		Primary: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "start"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r", "esc"),
			key.WithHelp("r", "reset"),
		),
		Longer: key.NewBinding(
			key.WithKeys("up", "k", "+"),
			key.WithHelp("↑", "+1s"),
		),
		Shorter: key.NewBinding(
			key.WithKeys("down", "j", "-"),
			key.WithHelp("↓", "-1s"),
		),
		Unit: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "bpm/bps"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// sync enables the bindings that mean something in state and relabels the
// primary action the way the start/pause button does.
func (k *keyMap) sync(state model.State) {
	k.Tap.SetEnabled(state == model.StateCounting)
	k.Longer.SetEnabled(state == model.StateReady)
	k.Shorter.SetEnabled(state == model.StateReady)
	k.Reset.SetEnabled(state != model.StateReady)
	switch state {
	case model.StateReady:
		k.Primary.SetHelp("enter", "start")
	case model.StateCountdown, model.StateCounting:
		k.Primary.SetHelp("enter", "pause")
		k.Reset.SetHelp("r", "stop")
	case model.StatePaused:
		k.Primary.SetHelp("enter", "resume")
		k.Reset.SetHelp("r", "stop")
	case model.StateFinished:
		k.Primary.SetHelp("enter", "count/rate")
		k.Reset.SetHelp("r", "reset")
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tap, k.Primary, k.Reset, k.Longer, k.Shorter, k.Unit, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type counterKeyMap struct {
	Tap   key.Binding
	Stop  key.Binding
	Reset key.Binding
	Unit  key.Binding
	Quit  key.Binding
}

func newCounterKeyMap() counterKeyMap {
	base := newKeyMap()
	return counterKeyMap{
		Tap: base.Tap,
		Stop: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "stop"),
		),
		Reset: base.Reset,
		Unit:  base.Unit,
		Quit:  base.Quit,
	}
}

func (k *counterKeyMap) sync(state model.State) {
	k.Tap.SetEnabled(state != model.StateFinished)
	k.Stop.SetEnabled(state == model.StateCounting)
	k.Reset.SetEnabled(state != model.StateReady)
	k.Reset.SetHelp("r", "reset")
}

// ShortHelp implements help.KeyMap.
func (k counterKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tap, k.Stop, k.Reset, k.Unit, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k counterKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
