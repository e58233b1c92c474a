package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/verte-zerg/ddk/internal/model"
)

// Defaults used when a key has never been written.
const (
	DefaultTargetSeconds = 10
	MinTargetSeconds     = 1
	MaxTargetSeconds     = 60
)

// Preferences is a typed view over a Repository.
type Preferences struct {
	TargetSeconds int
	ShowRate      bool
	RateUnit      model.RateUnit
}

// DefaultPreferences returns the values used for unset keys.
func DefaultPreferences() Preferences {
	return Preferences{
		TargetSeconds: DefaultTargetSeconds,
		ShowRate:      false,
		RateUnit:      model.RateBPM,
	}
}

// Load reads all preferences, falling back to defaults for missing or unparsable values.
func Load(ctx context.Context, repo Repository) (Preferences, error) {
	prefs := DefaultPreferences()

	if v, ok, err := repo.Get(ctx, KeyTargetSeconds); err != nil {
		return prefs, fmt.Errorf("failed to read %s: %w", KeyTargetSeconds, err)
	} else if ok {
		if n, perr := strconv.Atoi(v); perr == nil && ValidTargetSeconds(n) {
			prefs.TargetSeconds = n
		}
	}

	if v, ok, err := repo.Get(ctx, KeyShowRate); err != nil {
		return prefs, fmt.Errorf("failed to read %s: %w", KeyShowRate, err)
	} else if ok {
		if b, perr := strconv.ParseBool(v); perr == nil {
			prefs.ShowRate = b
		}
	}

	if v, ok, err := repo.Get(ctx, KeyRateUnit); err != nil {
		return prefs, fmt.Errorf("failed to read %s: %w", KeyRateUnit, err)
	} else if ok {
		if unit, valid := model.ParseRateUnit(v); valid {
			prefs.RateUnit = unit
		}
	}

	return prefs, nil
}

// SaveTargetSeconds writes the target duration.
func SaveTargetSeconds(ctx context.Context, repo Repository, n int) error {
	return repo.Set(ctx, KeyTargetSeconds, strconv.Itoa(n))
}

// SaveShowRate writes the rate display flag.
func SaveShowRate(ctx context.Context, repo Repository, show bool) error {
	return repo.Set(ctx, KeyShowRate, strconv.FormatBool(show))
}

// SaveRateUnit writes the rate display unit.
func SaveRateUnit(ctx context.Context, repo Repository, unit model.RateUnit) error {
	return repo.Set(ctx, KeyRateUnit, string(unit))
}

// Reset deletes every preference key so defaults apply again.
func Reset(ctx context.Context, repo Repository) error {
	for _, key := range []string{KeyTargetSeconds, KeyShowRate, KeyRateUnit} {
		if err := repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// ValidTargetSeconds reports whether n is within the selectable range.
func ValidTargetSeconds(n int) bool {
	return n >= MinTargetSeconds && n <= MaxTargetSeconds
}
