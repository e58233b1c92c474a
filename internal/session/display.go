package session

import (
	"fmt"
	"math"

	"github.com/verte-zerg/ddk/internal/model"
)

// PercentComplete returns elapsed/target clamped to [0,1].
func (c *Controller) PercentComplete() float64 {
	target := float64(c.snap.Config.TargetSeconds)
	if target <= 0 {
		return 0
	}
	return clamp01(c.snap.ElapsedSeconds / target)
}

// TimeRemainingDisplay formats what the timer face shows: the countdown
// counter during the pre-roll, otherwise the seconds left in the run.
func (c *Controller) TimeRemainingDisplay() string {
	switch c.snap.State {
	case model.StateReady:
		return formatSeconds(float64(c.prefs.TargetSeconds))
	case model.StateCountdown:
		return countdownText(c.snap.CountdownRemaining)
	case model.StatePaused:
		if c.snap.Resume == model.StateCountdown {
			return countdownText(c.snap.CountdownRemaining)
		}
		return formatSeconds(float64(c.snap.Config.TargetSeconds) - c.snap.ElapsedSeconds)
	case model.StateCounting:
		return formatSeconds(float64(c.snap.Config.TargetSeconds) - c.snap.ElapsedSeconds)
	default:
		return formatSeconds(0)
	}
}

// Label is the primary text for the timer face. Once finished it shows the
// tap count, or the rate when rate display is enabled.
func (c *Controller) Label() string {
	if c.snap.State != model.StateFinished {
		return c.TimeRemainingDisplay()
	}
	if c.prefs.ShowRate {
		if rate, ok := c.Rate(); ok {
			return FormatRate(rate, c.prefs.RateUnit)
		}
	}
	return TapsText(c.snap.TapCount)
}

// TapsLabel is the secondary text under the timer face; blank once finished.
func (c *Controller) TapsLabel() string {
	if c.snap.State == model.StateFinished {
		return ""
	}
	return TapsText(c.snap.TapCount)
}

// TapsText pluralizes a tap count.
func TapsText(n int) string {
	if n == 1 {
		return "1 tap"
	}
	return fmt.Sprintf("%d taps", n)
}

// FormatRate renders a rate with its unit. Per-minute rates are whole numbers.
func FormatRate(rate float64, unit model.RateUnit) string {
	if unit == model.RateBPS {
		return fmt.Sprintf("%.1f bps", rate)
	}
	return fmt.Sprintf("%d bpm", int(math.Round(rate)))
}

func countdownText(remaining float64) string {
	return fmt.Sprintf("%d...", int(math.Ceil(remaining)))
}

func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%.1f", s)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
