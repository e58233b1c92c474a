package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/session"
	"github.com/verte-zerg/ddk/internal/settings"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "ddk.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSettingsRepository(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, settings.KeyTargetSeconds); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, settings.KeyTargetSeconds, "12"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, settings.KeyTargetSeconds, "20"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := st.Get(ctx, settings.KeyTargetSeconds)
	if err != nil || !ok || v != "20" {
		t.Fatalf("expected 20, got %q ok=%v err=%v", v, ok, err)
	}
	if err := st.Delete(ctx, settings.KeyTargetSeconds); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Get(ctx, settings.KeyTargetSeconds); ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestControllerReadsSavedTarget(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	c, err := session.New(ctx, st)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := c.SetTargetSeconds(ctx, 42); err != nil {
		t.Fatalf("set target: %v", err)
	}

	reopened, err := session.New(ctx, st)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if reopened.TargetSeconds() != 42 {
		t.Fatalf("expected saved target 42, got %d", reopened.TargetSeconds())
	}
}

func TestSessionHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	h, err := st.SessionHistory(ctx, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.Count != 0 || !h.LastAt.IsZero() {
		t.Fatalf("expected empty history, got %+v", h)
	}

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i, target := range []int{10, 10, 20} {
		start := base.Add(time.Duration(i) * time.Hour)
		rec := model.SessionRecord{
			StartedAt:        start,
			EndedAt:          start.Add(time.Duration(target+3) * time.Second),
			TargetSeconds:    target,
			CountdownSeconds: 3,
			Taps:             40 + i,
		}
		if _, err := st.InsertSession(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Taps != 40 || all[2].TargetSeconds != 20 {
		t.Fatalf("unexpected sessions: %+v", all)
	}

	tens, err := st.ListSessions(ctx, model.StatsConfig{TargetSeconds: 10})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(tens) != 2 {
		t.Fatalf("expected 2 ten-second sessions, got %d", len(tens))
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent session, got %d", len(recent))
	}

	h, err = st.SessionHistory(ctx, model.KindTimed)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.Count != 3 || !h.LastAt.Equal(base.Add(2*time.Hour+23*time.Second)) {
		t.Fatalf("unexpected history: %+v", h)
	}

	n, err := st.DeleteSessions(ctx, "")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 deleted, got %d err=%v", n, err)
	}
}

func TestSubSecondEndTimesSortInTimeOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	whole := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	// Same instant as half, written with a non-UTC offset.
	east := half.In(time.FixedZone("UTC+2", 2*60*60))
	for _, end := range []time.Time{half, whole, east.Add(-time.Millisecond)} {
		rec := model.SessionRecord{StartedAt: end.Add(-10 * time.Second), EndedAt: end, TargetSeconds: 10, Taps: 30}
		if _, err := st.InsertSession(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	sessions, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].EndedAt.Before(sessions[i-1].EndedAt) {
			t.Fatalf("sessions out of order: %v then %v", sessions[i-1].EndedAt, sessions[i].EndedAt)
		}
	}
	if !sessions[0].EndedAt.Equal(whole) || !sessions[2].EndedAt.Equal(half) {
		t.Fatalf("unexpected order: %+v", sessions)
	}

	since := whole.Add(100 * time.Millisecond)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 sessions after %v, got %d", since, len(recent))
	}

	h, err := st.SessionHistory(ctx, "")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !h.LastAt.Equal(half) {
		t.Fatalf("expected last %v, got %v", half, h.LastAt)
	}
}

func TestSessionsByKind(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)

	recs := []model.SessionRecord{
		{Kind: model.KindTimed, TargetSeconds: 10, Taps: 40},
		{Kind: model.KindCount, DurationSeconds: 7.5, Taps: 12},
		{Kind: model.KindHeartRate, DurationSeconds: 15, Taps: 19},
		{Kind: model.KindCount, DurationSeconds: 3, Taps: 4},
	}
	for i, rec := range recs {
		rec.StartedAt = base.Add(time.Duration(i) * time.Minute)
		rec.EndedAt = rec.StartedAt.Add(20 * time.Second)
		if _, err := st.InsertSession(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	counts, err := st.ListSessions(ctx, model.StatsConfig{Kind: model.KindCount})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(counts) != 2 || counts[0].DurationSeconds != 7.5 || counts[0].Kind != model.KindCount {
		t.Fatalf("unexpected count sessions: %+v", counts)
	}

	timed, err := st.ListSessions(ctx, model.StatsConfig{Kind: model.KindTimed})
	if err != nil {
		t.Fatalf("list timed: %v", err)
	}
	if len(timed) != 1 || timed[0].DurationSeconds != 10 {
		t.Fatalf("timed runs should store their target as duration: %+v", timed)
	}

	byKind, err := st.KindHistory(ctx)
	if err != nil {
		t.Fatalf("kind history: %v", err)
	}
	if byKind[model.KindCount].Count != 2 || !byKind[model.KindCount].LastAt.Equal(base.Add(3*time.Minute+20*time.Second)) {
		t.Fatalf("unexpected count history: %+v", byKind[model.KindCount])
	}
	if byKind[model.KindHeartRate].Count != 1 {
		t.Fatalf("unexpected heart rate history: %+v", byKind)
	}

	n, err := st.DeleteSessions(ctx, model.KindCount)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d err=%v", n, err)
	}
	h, err := st.SessionHistory(ctx, "")
	if err != nil || h.Count != 2 {
		t.Fatalf("expected 2 remaining, got %+v err=%v", h, err)
	}
}
