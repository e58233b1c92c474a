// Package model defines shared data structures.
package model

import (
	"strings"
	"time"
)

// State is the phase of a timed assessment run.
type State int

const (
	StateReady State = iota
	StateCountdown
	StateCounting
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateCountdown:
		return "countdown"
	case StateCounting:
		return "counting"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Active reports whether the clock should be delivering ticks.
func (s State) Active() bool {
	return s == StateCountdown || s == StateCounting
}

// Config defines a timed assessment run.
type Config struct {
	TargetSeconds    int
	CountdownSeconds int
}

// Snapshot is the mutable state of one assessment run.
type Snapshot struct {
	State              State
	Config             Config
	ElapsedSeconds     float64
	TapCount           int
	CountdownRemaining float64
	// Resume is the state restored when leaving StatePaused.
	Resume State
	Pauses int
	// LastTapSeconds is ElapsedSeconds at the most recent tap.
	LastTapSeconds float64
}

// Kind identifies an assessment type.
type Kind string

const (
	KindTimed     Kind = "timed"
	KindCount     Kind = "count"
	KindHeartRate Kind = "heart-rate"
)

// Kinds lists every assessment kind in display order.
func Kinds() []Kind {
	return []Kind{KindTimed, KindCount, KindHeartRate}
}

// ParseKind accepts a kind name in any case.
func ParseKind(v string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Kinds() {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Title is the human-readable kind name.
func (k Kind) Title() string {
	switch k {
	case KindTimed:
		return "Timed"
	case KindCount:
		return "Count"
	case KindHeartRate:
		return "Heart Rate"
	default:
		return string(k)
	}
}

// Beats is the number of rate-bearing events in taps. Heart rate counts the
// intervals between beats, so the first tap only opens the window.
func (k Kind) Beats(taps int) int {
	if k == KindHeartRate {
		return max(taps-1, 0)
	}
	return taps
}

// RateUnit selects how a finished run's tap rate is displayed.
type RateUnit string

const (
	RateBPM RateUnit = "bpm"
	RateBPS RateUnit = "bps"
)

// ParseRateUnit accepts "bpm" or "bps" in any case.
func ParseRateUnit(v string) (RateUnit, bool) {
	switch RateUnit(strings.ToLower(strings.TrimSpace(v))) {
	case RateBPM:
		return RateBPM, true
	case RateBPS:
		return RateBPS, true
	default:
		return "", false
	}
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	// Kind restricts results to one assessment kind; empty means all kinds.
	Kind          Kind
	Since         *time.Time
	Last          int
	CurveWindow   int
	TargetSeconds int
}

// SessionRecord captures a finished assessment run.
type SessionRecord struct {
	Kind             Kind
	StartedAt        time.Time
	EndedAt          time.Time
	TargetSeconds    int
	CountdownSeconds int
	Taps             int
	Pauses           int
	// DurationSeconds is the measured window; timed runs use TargetSeconds.
	DurationSeconds float64
}

// SessionAggregate summarizes a stored run for reporting.
type SessionAggregate struct {
	SessionID       int64
	Kind            Kind
	EndedAt         time.Time
	TargetSeconds   int
	DurationSeconds float64
	Taps            int
}

// Seconds is the window the run's rate is measured over.
func (s SessionAggregate) Seconds() float64 {
	if s.DurationSeconds > 0 {
		return s.DurationSeconds
	}
	return float64(s.TargetSeconds)
}

// History summarizes how many runs were recorded and when the last one ended.
type History struct {
	Count  int
	LastAt time.Time
}
