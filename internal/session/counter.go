package session

import (
	"context"
	"fmt"
	"math"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/settings"
)

// Counter runs an untimed assessment. The first tap starts the clock and the
// run lasts until Stop. Count runs report taps over the elapsed time; heart
// rate runs report the beat intervals between the first and last tap.
//
// Like Controller, a Counter is owned by a single event loop.
type Counter struct {
	repo settings.Repository
	kind model.Kind
	unit model.RateUnit
	snap model.Snapshot

	broadcaster
}

// NewCounter constructs a Counter in the ready state for an untimed kind.
func NewCounter(ctx context.Context, repo settings.Repository, kind model.Kind) (*Counter, error) {
	if kind != model.KindCount && kind != model.KindHeartRate {
		return nil, fmt.Errorf("%w: %q is not an untimed assessment", ErrInvalidConfiguration, kind)
	}
	unit, err := settings.LoadRateUnit(ctx, repo, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return &Counter{repo: repo, kind: kind, unit: unit}, nil
}

// Kind returns the assessment kind.
func (c *Counter) Kind() model.Kind {
	return c.kind
}

// Snapshot returns a copy of the current run state.
func (c *Counter) Snapshot() model.Snapshot {
	return c.snap
}

// State returns the current state: ready, counting or finished.
func (c *Counter) State() model.State {
	return c.snap.State
}

// Tap counts one tap. A tap in ready begins the run at elapsed zero.
func (c *Counter) Tap() bool {
	switch c.snap.State {
	case model.StateReady:
		c.snap = model.Snapshot{State: model.StateCounting, TapCount: 1}
		c.publish(EventStateChanged, model.StateReady)
		c.publish(EventTap, c.snap.State)
		return true
	case model.StateCounting:
		c.snap.TapCount++
		c.snap.LastTapSeconds = c.snap.ElapsedSeconds
		c.publish(EventTap, c.snap.State)
		return true
	default:
		return false
	}
}

// Tick advances the run clock by delta seconds while counting.
func (c *Counter) Tick(delta float64) {
	if delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	if c.snap.State != model.StateCounting {
		return
	}
	c.snap.ElapsedSeconds += delta
	c.publish(EventTick, c.snap.State)
}

// Stop ends a run in progress.
func (c *Counter) Stop() bool {
	if c.snap.State != model.StateCounting {
		return false
	}
	prev := c.snap.State
	c.snap.State = model.StateFinished
	c.publish(EventStateChanged, prev)
	return true
}

// Reset discards the current run and returns to ready.
func (c *Counter) Reset() {
	prev := c.snap.State
	c.snap = model.Snapshot{}
	c.publish(EventStateChanged, prev)
}

// WindowSeconds is the span the rate is measured over: the elapsed time for
// counts, the time between first and last tap for heart rate.
func (c *Counter) WindowSeconds() float64 {
	if c.kind == model.KindHeartRate {
		return c.snap.LastTapSeconds
	}
	return c.snap.ElapsedSeconds
}

// Rate returns the live rate in the preferred unit once the window is open.
func (c *Counter) Rate() (float64, bool) {
	if c.snap.State == model.StateReady {
		return 0, false
	}
	beats := c.kind.Beats(c.snap.TapCount)
	if beats == 0 {
		return 0, false
	}
	rate, err := ComputedRate(beats, c.WindowSeconds(), c.unit)
	if err != nil {
		return 0, false
	}
	return rate, true
}

// Label is the primary text: the tap count for counts, the rate for heart rate.
func (c *Counter) Label() string {
	if c.snap.State == model.StateReady {
		return "Tap to begin"
	}
	if c.kind == model.KindHeartRate {
		if rate, ok := c.Rate(); ok {
			return FormatRate(rate, c.unit)
		}
		return "--"
	}
	return TapsText(c.snap.TapCount)
}

// ElapsedLabel shows the time since the first tap.
func (c *Counter) ElapsedLabel() string {
	return formatSeconds(c.snap.ElapsedSeconds) + " s"
}

// RateUnit is the unit used by Rate and Label.
func (c *Counter) RateUnit() model.RateUnit {
	return c.unit
}

// SetRateUnit saves the rate display unit for this kind.
func (c *Counter) SetRateUnit(ctx context.Context, unit model.RateUnit) error {
	parsed, ok := model.ParseRateUnit(string(unit))
	if !ok {
		return fmt.Errorf("unknown rate unit %q", unit)
	}
	if parsed == c.unit {
		return nil
	}
	if err := settings.SaveKindRateUnit(ctx, c.repo, c.kind, parsed); err != nil {
		return fmt.Errorf("failed to save rate unit: %w", err)
	}
	c.unit = parsed
	c.publish(EventPreferences, c.snap.State)
	return nil
}

func (c *Counter) publish(kind EventKind, prev model.State) {
	c.emit(Event{Kind: kind, Previous: prev, Snapshot: c.snap})
}
