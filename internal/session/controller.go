// Package session implements the timed tapping assessment state machine.
//
// A Controller is owned by a single event loop. It has no internal locking:
// ticks from the clock and user actions must be delivered from the same
// goroutine. All operations complete immediately; operations that are not
// valid in the current state are ignored and report false.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/settings"
)

// ErrInvalidConfiguration is returned when a run cannot start with the given config.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Controller owns one assessment snapshot and the user's timed preferences.
type Controller struct {
	repo  settings.Repository
	prefs settings.Preferences
	snap  model.Snapshot

	broadcaster
}

// New constructs a Controller in the ready state, reading preferences from repo.
func New(ctx context.Context, repo settings.Repository) (*Controller, error) {
	prefs, err := settings.Load(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return &Controller{repo: repo, prefs: prefs}, nil
}

// Snapshot returns a copy of the current run state.
func (c *Controller) Snapshot() model.Snapshot {
	return c.snap
}

// State returns the current state.
func (c *Controller) State() model.State {
	return c.snap.State
}

// Start begins a run from ready or finished. Calling Start while a run is
// active or paused is a no-op.
func (c *Controller) Start(cfg model.Config) error {
	switch c.snap.State {
	case model.StateCountdown, model.StateCounting, model.StatePaused:
		return nil
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	prev := c.snap.State
	c.snap = model.Snapshot{
		Config:             cfg,
		CountdownRemaining: float64(cfg.CountdownSeconds),
	}
	if cfg.CountdownSeconds > 0 {
		c.snap.State = model.StateCountdown
	} else {
		c.snap.State = model.StateCounting
	}
	c.publish(EventStateChanged, prev)
	return nil
}

// Tick advances the clock by delta seconds.
func (c *Controller) Tick(delta float64) {
	if delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	switch c.snap.State {
	case model.StateCountdown:
		c.snap.CountdownRemaining -= delta
		if c.snap.CountdownRemaining <= 0 {
			c.snap.CountdownRemaining = 0
			c.snap.ElapsedSeconds = 0
			c.transition(model.StateCounting)
			return
		}
		c.publish(EventTick, c.snap.State)
	case model.StateCounting:
		target := float64(c.snap.Config.TargetSeconds)
		c.snap.ElapsedSeconds += delta
		if c.snap.ElapsedSeconds >= target {
			c.snap.ElapsedSeconds = target
			c.transition(model.StateFinished)
			return
		}
		c.publish(EventTick, c.snap.State)
	}
}

// RegisterTap counts one tap. Taps outside the counting window are dropped.
func (c *Controller) RegisterTap() bool {
	if c.snap.State != model.StateCounting {
		return false
	}
	c.snap.TapCount++
	c.snap.LastTapSeconds = c.snap.ElapsedSeconds
	c.publish(EventTap, c.snap.State)
	return true
}

// Pause freezes a countdown or counting run.
func (c *Controller) Pause() bool {
	switch c.snap.State {
	case model.StateCountdown, model.StateCounting:
	default:
		return false
	}
	c.snap.Resume = c.snap.State
	c.snap.Pauses++
	c.transition(model.StatePaused)
	return true
}

// Resume returns a paused run to the state it was paused from.
func (c *Controller) Resume() bool {
	if c.snap.State != model.StatePaused {
		return false
	}
	c.transition(c.snap.Resume)
	return true
}

// Reset discards the current run and returns to ready.
func (c *Controller) Reset() {
	prev := c.snap.State
	c.snap = model.Snapshot{}
	c.publish(EventStateChanged, prev)
}

// Rate returns the finished run's tap rate in the preferred unit.
func (c *Controller) Rate() (float64, bool) {
	if c.snap.State != model.StateFinished {
		return 0, false
	}
	rate, err := ComputedRate(c.snap.TapCount, float64(c.snap.Config.TargetSeconds), c.prefs.RateUnit)
	if err != nil {
		return 0, false
	}
	return rate, true
}

func (c *Controller) transition(next model.State) {
	prev := c.snap.State
	c.snap.State = next
	c.publish(EventStateChanged, prev)
}

// ValidateConfig rejects configurations a run cannot start with.
func ValidateConfig(cfg model.Config) error {
	if cfg.TargetSeconds <= 0 {
		return fmt.Errorf("%w: target duration must be > 0, got %d", ErrInvalidConfiguration, cfg.TargetSeconds)
	}
	if cfg.CountdownSeconds < 0 {
		return fmt.Errorf("%w: countdown must be >= 0, got %d", ErrInvalidConfiguration, cfg.CountdownSeconds)
	}
	return nil
}

// ComputedRate normalizes a tap count over a duration to the given unit.
func ComputedRate(taps int, durationSeconds float64, unit model.RateUnit) (float64, error) {
	if durationSeconds <= 0 {
		return 0, fmt.Errorf("%w: duration must be > 0", ErrInvalidConfiguration)
	}
	if unit == model.RateBPS {
		return float64(taps) / durationSeconds, nil
	}
	return float64(taps) / (durationSeconds / 60), nil
}
