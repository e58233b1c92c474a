package session

import (
	"context"
	"fmt"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/settings"
)

// Preferences returns the loaded preference values.
func (c *Controller) Preferences() settings.Preferences {
	return c.prefs
}

// TargetSeconds is the saved run length used for the next Start.
func (c *Controller) TargetSeconds() int {
	return c.prefs.TargetSeconds
}

// SetTargetSeconds saves a new run length. It does not affect a run in progress.
func (c *Controller) SetTargetSeconds(ctx context.Context, n int) error {
	if !settings.ValidTargetSeconds(n) {
		return fmt.Errorf("%w: target duration must be between %d and %d, got %d",
			ErrInvalidConfiguration, settings.MinTargetSeconds, settings.MaxTargetSeconds, n)
	}
	if n == c.prefs.TargetSeconds {
		return nil
	}
	if err := settings.SaveTargetSeconds(ctx, c.repo, n); err != nil {
		return fmt.Errorf("failed to save target duration: %w", err)
	}
	c.prefs.TargetSeconds = n
	c.publish(EventPreferences, c.snap.State)
	return nil
}

// ShowRate reports whether finished runs display the rate instead of the tap count.
func (c *Controller) ShowRate() bool {
	return c.prefs.ShowRate
}

// ToggleRateDisplay flips between tap count and rate on a finished run.
func (c *Controller) ToggleRateDisplay(ctx context.Context) (bool, error) {
	if c.snap.State != model.StateFinished {
		return false, nil
	}
	next := !c.prefs.ShowRate
	if err := settings.SaveShowRate(ctx, c.repo, next); err != nil {
		return false, fmt.Errorf("failed to save rate display: %w", err)
	}
	c.prefs.ShowRate = next
	c.publish(EventPreferences, c.snap.State)
	return true, nil
}

// RateUnit is the unit used by Rate and Label.
func (c *Controller) RateUnit() model.RateUnit {
	return c.prefs.RateUnit
}

// SetRateUnit saves the rate display unit.
func (c *Controller) SetRateUnit(ctx context.Context, unit model.RateUnit) error {
	parsed, ok := model.ParseRateUnit(string(unit))
	if !ok {
		return fmt.Errorf("unknown rate unit %q", unit)
	}
	unit = parsed
	if unit == c.prefs.RateUnit {
		return nil
	}
	if err := settings.SaveRateUnit(ctx, c.repo, unit); err != nil {
		return fmt.Errorf("failed to save rate unit: %w", err)
	}
	c.prefs.RateUnit = unit
	c.publish(EventPreferences, c.snap.State)
	return nil
}

// ResetPreferences clears saved preferences and reverts to defaults.
func (c *Controller) ResetPreferences(ctx context.Context) error {
	if err := settings.Reset(ctx, c.repo); err != nil {
		return err
	}
	c.prefs = settings.DefaultPreferences()
	c.publish(EventPreferences, c.snap.State)
	return nil
}
