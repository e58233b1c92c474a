// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/ddk/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Metrics computes beats per minute and per second for taps over seconds.
func Metrics(kind model.Kind, taps int, seconds float64) (bpm, bps float64) {
	if seconds <= 0 {
		return 0, 0
	}
	bps = float64(kind.Beats(taps)) / seconds
	return bps * 60, bps
}

// SessionMetrics computes the rates of a stored run.
func SessionMetrics(s model.SessionAggregate) (bpm, bps float64) {
	return Metrics(s.Kind, s.Taps, s.Seconds())
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

func minMax(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	return minVal, maxVal
}

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalBPM, totalTaps float64
	bestBPM := 0.0
	for _, s := range sessions {
		bpm, _ := SessionMetrics(s)
		totalBPM += bpm
		totalTaps += float64(s.Taps)
		if bpm > bestBPM {
			bestBPM = bpm
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Avg BPM: %.1f", totalBPM/count),
		fmt.Sprintf("Best BPM: %.1f", bestBPM),
		fmt.Sprintf("Avg Taps: %.1f", totalTaps/count),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints a moving-average BPM sparkline no wider than width.
// A width of zero leaves the line unbounded.
func RenderCurve(w io.Writer, sessions []model.SessionAggregate, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	values := make([]float64, len(sessions))
	for i, s := range sessions {
		values[i], _ = SessionMetrics(s)
	}
	values = MovingAverage(values, window)
	const prefix = "BPM "
	if width > len(prefix) && len(values) > width-len(prefix) {
		values = values[len(values)-(width-len(prefix)):]
	}
	minVal, maxVal := minMax(values)
	if _, err := fmt.Fprintf(w, "Curve (window %d)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, prefix+Sparkline(values)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "min %.1f · max %.1f\n\n", minVal, maxVal); err != nil {
		return err
	}
	return nil
}

// RenderHistoryTable prints one row per session, most recent last.
func RenderHistoryTable(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	headers := []string{"Ended", "Kind", "Seconds", "Taps", "BPM", "BPS"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		bpm, bps := SessionMetrics(s)
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.Kind.Title(),
			fmt.Sprintf("%.1f", s.Seconds()),
			fmt.Sprintf("%d", s.Taps),
			fmt.Sprintf("%.1f", bpm),
			fmt.Sprintf("%.2f", bps),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true}
	for _, line := range (table{headers: headers, rows: rows, right: rightAlign}).lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
