package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/ddk/internal/config"
	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/settings"
	"github.com/verte-zerg/ddk/internal/store"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	meta, err := toml.Decode(defaultConfigTemplate(), &cfg)
	if err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if len(meta.Undecoded()) != 0 {
		t.Fatalf("unexpected keys: %v", meta.Undecoded())
	}
	if cfg.Session.TargetSeconds != nil {
		t.Fatalf("template should leave values commented out")
	}
}

func TestWriteDefaultConfigKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ddk", "config.toml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(path, []byte("[session]\nseconds = 20\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("second write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.TargetSeconds == nil || *cfg.Session.TargetSeconds != 20 {
		t.Fatalf("existing config was replaced")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--countdown", "5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	fromFile := 0
	seconds := 30
	applyIntConfig(cmd, "countdown", &runCountdown, &fromFile)
	applyIntConfig(cmd, "seconds", &runSeconds, &seconds)
	if runCountdown != 5 {
		t.Fatalf("flag should win, got countdown %d", runCountdown)
	}
	if runSeconds != 30 {
		t.Fatalf("config should fill unset flag, got seconds %d", runSeconds)
	}
}

func TestValidateRunFlags(t *testing.T) {
	cases := []struct {
		seconds, countdown, tick int
		ok                       bool
	}{
		{0, 3, 100, true},
		{60, 0, 16, true},
		{61, 3, 100, false},
		{10, -1, 100, false},
		{10, 3, 0, false},
	}
	for _, tc := range cases {
		err := validateRunFlags(tc.seconds, tc.countdown, tc.tick)
		if (err == nil) != tc.ok {
			t.Fatalf("validateRunFlags(%d, %d, %d) = %v", tc.seconds, tc.countdown, tc.tick, err)
		}
	}
}

func TestBuildStatsConfig(t *testing.T) {
	cfg, err := buildStatsConfig("timed", "2026-01-02", 5, 3, 15)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if cfg.Kind != model.KindTimed || cfg.Since == nil || cfg.Since.Day() != 2 || cfg.Last != 5 || cfg.CurveWindow != 3 || cfg.TargetSeconds != 15 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := buildStatsConfig("timed", "yesterday", 0, 3, 0); err == nil {
		t.Fatalf("expected bad date to fail")
	}
	if _, err := buildStatsConfig("timed", "", 0, 0, 0); err == nil {
		t.Fatalf("expected zero window to fail")
	}
	if _, err := buildStatsConfig("pulse", "", 0, 3, 0); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
	all, err := buildStatsConfig("ALL", "", 0, 3, 0)
	if err != nil || all.Kind != "" {
		t.Fatalf("expected all kinds, got %+v (%v)", all, err)
	}
	hr, err := buildStatsConfig("Heart-Rate", "", 0, 3, 0)
	if err != nil || hr.Kind != model.KindHeartRate {
		t.Fatalf("expected heart-rate, got %+v (%v)", hr, err)
	}
}

func TestPrintLogsAndReset(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ddk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	end := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		rec := model.SessionRecord{StartedAt: end.Add(-10 * time.Second), EndedAt: end, TargetSeconds: 10, Taps: 40}
		if _, err := st.InsertSession(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	count := model.SessionRecord{Kind: model.KindCount, StartedAt: end, EndedAt: end.Add(time.Minute), Taps: 12, DurationSeconds: 7.5}
	if _, err := st.InsertSession(ctx, count); err != nil {
		t.Fatalf("insert count: %v", err)
	}

	var buf bytes.Buffer
	if err := printLogs(ctx, &buf, st, model.KindCount, true); err != nil {
		t.Fatalf("reset count: %v", err)
	}
	if buf.String() != "Deleted 1 assessment\n" {
		t.Fatalf("unexpected count reset output: %q", buf.String())
	}

	buf.Reset()
	if err := printLogs(ctx, &buf, st, "", false); err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "2 assessments\nLast: ") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	if err := printLogs(ctx, &buf, st, "", true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if buf.String() != "Deleted 2 assessments\n" {
		t.Fatalf("unexpected reset output: %q", buf.String())
	}

	buf.Reset()
	if err := printLogs(ctx, &buf, st, "", false); err != nil {
		t.Fatalf("logs after reset: %v", err)
	}
	if buf.String() != "0 assessments\n" {
		t.Fatalf("unexpected output after reset: %q", buf.String())
	}
}

func TestPrintPrefsReset(t *testing.T) {
	repo := settings.NewMemory()
	ctx := context.Background()
	if err := settings.SaveTargetSeconds(ctx, repo, 25); err != nil {
		t.Fatalf("save: %v", err)
	}

	var buf bytes.Buffer
	if err := printPrefs(ctx, &buf, repo, model.KindTimed, false); err != nil {
		t.Fatalf("prefs: %v", err)
	}
	if !strings.Contains(buf.String(), "seconds   25\n") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	if err := printPrefs(ctx, &buf, repo, model.KindTimed, true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := "seconds   10\nshow-rate false\nunit      bpm\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestPrintPrefsForUntimedKind(t *testing.T) {
	repo := settings.NewMemory()
	ctx := context.Background()
	if err := settings.SaveKindRateUnit(ctx, repo, model.KindHeartRate, model.RateBPS); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := settings.SaveTargetSeconds(ctx, repo, 25); err != nil {
		t.Fatalf("save: %v", err)
	}

	var buf bytes.Buffer
	if err := printPrefs(ctx, &buf, repo, model.KindHeartRate, true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if want := "unit      bpm\nfavorite  false\n"; buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
	prefs, err := settings.Load(ctx, repo)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prefs.TargetSeconds != 25 {
		t.Fatalf("resetting heart-rate touched timed preferences: %+v", prefs)
	}
}

func TestNewFeedbackWritesToGivenWriter(t *testing.T) {
	if n := newFeedback(false, os.Stderr); n != nil {
		t.Fatalf("disabled bell should be nil, got %#v", n)
	}
	var buf bytes.Buffer
	n := newFeedback(true, &buf)
	n.Tap()
	n.Finished()
	if buf.String() != "\a" {
		t.Fatalf("unexpected bell output: %q", buf.String())
	}
}

func TestPrintKinds(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ddk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()
	end := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)
	recs := []model.SessionRecord{
		{Kind: model.KindCount, StartedAt: end, EndedAt: end, Taps: 10, DurationSeconds: 5},
		{Kind: model.KindCount, StartedAt: end, EndedAt: end.Add(time.Hour), Taps: 10, DurationSeconds: 5},
		{Kind: model.KindTimed, StartedAt: end, EndedAt: end.Add(2 * time.Hour), TargetSeconds: 10, Taps: 40},
	}
	for _, rec := range recs {
		if _, err := st.InsertSession(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := printKinds(ctx, &buf, st, st, kindsRequest{}); err != nil {
		t.Fatalf("kinds: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Sorted by kind, ascending\n\nAssessments\n") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "Favorites") {
		t.Fatalf("no favorites yet: %q", out)
	}
	if !strings.Contains(out, "  Heart Rate  No assessments yet\n") || !strings.Contains(out, "  Count       2 assessments, last ") {
		t.Fatalf("unexpected rows: %q", out)
	}

	desc := false
	buf.Reset()
	req := kindsRequest{SortBy: "date", Desc: &desc, Favorite: "heart-rate"}
	if err := printKinds(ctx, &buf, st, st, req); err != nil {
		t.Fatalf("kinds: %v", err)
	}
	out = buf.String()
	fav := strings.Index(out, "Favorites\n  Heart Rate")
	timed := strings.Index(out, "  Timed ")
	count := strings.Index(out, "  Count ")
	if !strings.HasPrefix(out, "Sorted by date, ascending\n") || fav < 0 || timed < fav || count < timed {
		t.Fatalf("unexpected order: %q", out)
	}

	order, err := settings.LoadKindSort(ctx, st)
	if err != nil || order.By != settings.SortByDate {
		t.Fatalf("sort order not saved: %+v (%v)", order, err)
	}
	if err := printKinds(ctx, &buf, st, st, kindsRequest{SortBy: "name"}); err == nil {
		t.Fatalf("expected bad sort to fail")
	}
}
