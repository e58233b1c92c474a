// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/ddk/internal/model"
)

// SessionLister loads stored sessions.
type SessionLister interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions    []model.SessionAggregate
	CurveWindow int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st SessionLister, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return Report{Sessions: sessions, CurveWindow: cfg.CurveWindow}, nil
}

// Render writes the summary, curve and history table. width bounds the curve.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if err := RenderCurve(w, r.Sessions, r.CurveWindow, width); err != nil {
		return err
	}
	return RenderHistoryTable(w, r.Sessions)
}
