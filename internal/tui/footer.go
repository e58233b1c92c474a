package tui

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/ddk/internal/model"
	statsPkg "github.com/verte-zerg/ddk/internal/stats"
)

// footerStats tracks the last and all-time rate of one assessment kind.
type footerStats struct {
	lastBPM    float64
	hasLast    bool
	allBeats   int
	allSeconds float64
	allBPM     float64
	hasAllTime bool
}

func (f *footerStats) load(sessions []model.SessionAggregate) {
	for _, s := range sessions {
		f.add(s)
	}
}

func (f *footerStats) add(s model.SessionAggregate) {
	f.lastBPM, _ = statsPkg.SessionMetrics(s)
	f.hasLast = true
	f.allBeats += s.Kind.Beats(s.Taps)
	f.allSeconds += s.Seconds()
	if f.allSeconds > 0 {
		f.allBPM = float64(f.allBeats) / f.allSeconds * 60
		f.hasAllTime = true
	}
}

func (f footerStats) render(lead ...string) string {
	segments := append([]string(nil), lead...)
	if f.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.0f bpm", f.lastBPM))
	}
	if f.hasAllTime {
		segments = append(segments, fmt.Sprintf("All-time %.1f bpm", f.allBPM))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
