// Package tui provides the Bubble Tea tapping interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/ddk/internal/feedback"
	"github.com/verte-zerg/ddk/internal/logging"
	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/session"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	flashDuration       = 120 * time.Millisecond
	maxBarWidth         = 60
)

// SessionStore records finished runs and lists past ones for the footer.
type SessionStore interface {
	InsertSession(ctx context.Context, rec model.SessionRecord) (int64, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// Options configures a Model.
type Options struct {
	CountdownSeconds int
	TickInterval     time.Duration
	Clock            clockwork.Clock
	Logger           *slog.Logger
	// Feedback is notified in addition to the on-screen tap flash.
	Feedback feedback.Notifier
}

// Model implements the Bubble Tea tapping UI.
type Model struct {
	ctrl      *session.Controller
	store     SessionStore
	clock     clockwork.Clock
	log       *slog.Logger
	countdown int
	ticks     ticker

	keys keyMap
	help help.Model
	bar  progress.Model

	width  int
	height int

	startedAt  time.Time
	flashUntil time.Time
	errMsg     string
	footer     footerStats
	detach     func()
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	subLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	padEnabled    = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DCDCDC")).
			Background(lipgloss.Color("#2F5D8A")).
			Bold(true).
			Padding(1, 6)
	padFlash = padEnabled.
			Background(lipgloss.Color("#47D3C6")).
			Foreground(lipgloss.Color("#1A1A1A"))
	padDisabled = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Background(lipgloss.Color("#3A3A3A")).
			Padding(1, 6)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a tapping TUI model around ctrl.
func NewModel(ctrl *session.Controller, store SessionStore, opts Options) *Model {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	m := &Model{
		ctrl:      ctrl,
		store:     store,
		clock:     opts.Clock,
		log:       opts.Logger,
		countdown: opts.CountdownSeconds,
		ticks:     newTicker(opts.Clock, opts.TickInterval),
		keys:      newKeyMap(),
		help:      help.New(),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.bar.Width = maxBarWidth

	notifiers := feedback.Multi{feedback.Funcs{OnTap: m.flash, OnFinished: m.recordFinished}}
	if opts.Feedback != nil {
		notifiers = append(notifiers, opts.Feedback)
	}
	m.detach = feedback.Attach(ctrl, notifiers)

	m.keys.sync(ctrl.State())
	m.loadFooterStats(model.KindTimed)
	return m
}

// Close detaches the model from its controller.
func (m *Model) Close() {
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = min(maxBarWidth, max(10, msg.Width-8))
	case tickMsg:
		cmd = m.handleTick(msg)
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		cmd = m.handleKey(msg)
	}
	m.keys.sync(m.ctrl.State())
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	ctx := context.Background()
	switch {
	case key.Matches(msg, m.keys.Tap):
		m.ctrl.RegisterTap()
	case key.Matches(msg, m.keys.Primary):
		return m.primaryAction(ctx)
	case key.Matches(msg, m.keys.Reset):
		m.ctrl.Reset()
		m.ticks.stop()
		m.errMsg = ""
	case key.Matches(msg, m.keys.Longer):
		m.adjustTarget(ctx, 1)
	case key.Matches(msg, m.keys.Shorter):
		m.adjustTarget(ctx, -1)
	case key.Matches(msg, m.keys.Unit):
		next := model.RateBPS
		if m.ctrl.RateUnit() == model.RateBPS {
			next = model.RateBPM
		}
		if err := m.ctrl.SetRateUnit(ctx, next); err != nil {
			m.fail("failed to save rate unit", err)
		}
	}
	return nil
}

// primaryAction is the start / pause / resume / count-or-rate button.
func (m *Model) primaryAction(ctx context.Context) tea.Cmd {
	switch m.ctrl.State() {
	case model.StateReady:
		cfg := model.Config{TargetSeconds: m.ctrl.TargetSeconds(), CountdownSeconds: m.countdown}
		if err := m.ctrl.Start(cfg); err != nil {
			m.fail("failed to start session", err)
			return nil
		}
		m.errMsg = ""
		m.startedAt = m.clock.Now()
		m.log.Debug("session started", "target_seconds", cfg.TargetSeconds, "countdown_seconds", cfg.CountdownSeconds)
		return m.ticks.begin()
	case model.StateCountdown, model.StateCounting:
		m.ctrl.Pause()
		m.ticks.stop()
	case model.StatePaused:
		m.ctrl.Resume()
		return m.ticks.begin()
	case model.StateFinished:
		if _, err := m.ctrl.ToggleRateDisplay(ctx); err != nil {
			m.fail("failed to save rate display", err)
		}
	}
	return nil
}

func (m *Model) adjustTarget(ctx context.Context, delta int) {
	if err := m.ctrl.SetTargetSeconds(ctx, m.ctrl.TargetSeconds()+delta); err != nil {
		if !errors.Is(err, session.ErrInvalidConfiguration) {
			m.fail("failed to save target duration", err)
		}
	}
}

func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	delta, ok := m.ticks.accept(msg)
	if !ok {
		return nil
	}
	m.ctrl.Tick(delta)
	if !m.ctrl.State().Active() {
		return nil
	}
	return m.ticks.next()
}

func (m *Model) flash() {
	m.flashUntil = m.clock.Now().Add(flashDuration)
}

func (m *Model) recordFinished() {
	snap := m.ctrl.Snapshot()
	rec := model.SessionRecord{
		Kind:             model.KindTimed,
		StartedAt:        m.startedAt,
		EndedAt:          m.clock.Now(),
		TargetSeconds:    snap.Config.TargetSeconds,
		CountdownSeconds: snap.Config.CountdownSeconds,
		Taps:             snap.TapCount,
		Pauses:           snap.Pauses,
		DurationSeconds:  float64(snap.Config.TargetSeconds),
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}
	m.log.Info("session finished", "kind", rec.Kind, "taps", rec.Taps, "target_seconds", rec.TargetSeconds, "pauses", rec.Pauses)
	m.fail("failed to save session", saveRecord(m.store, &m.footer, rec))
}

func (m *Model) loadFooterStats(kind model.Kind) {
	sessions, err := m.store.ListSessions(context.Background(), model.StatsConfig{Kind: kind})
	if err != nil {
		m.log.Error("failed to load session stats", "err", err)
		return
	}
	m.footer.load(sessions)
}

// saveRecord persists rec and folds it into the footer totals.
func saveRecord(store SessionStore, footer *footerStats, rec model.SessionRecord) error {
	_, err := store.InsertSession(context.Background(), rec)
	footer.add(model.SessionAggregate{
		Kind:            rec.Kind,
		EndedAt:         rec.EndedAt,
		TargetSeconds:   rec.TargetSeconds,
		DurationSeconds: rec.DurationSeconds,
		Taps:            rec.Taps,
	})
	return err
}

func (m *Model) fail(msg string, err error) {
	if err == nil {
		return
	}
	m.log.Error(msg, "err", err)
	m.errMsg = fmt.Sprintf("%s: %v", msg, err)
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{titleStyle.Render("Timed Mode"), "", m.renderFace(), "", m.renderPad(), "", m.help.View(m.keys)}
	if m.errMsg != "" {
		sections = append(sections, errorStyle.Render(m.errMsg))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFace() string {
	if m.ctrl.State() == model.StateReady {
		picker := fmt.Sprintf("◀ %d ▶", m.ctrl.TargetSeconds())
		return lipgloss.JoinVertical(lipgloss.Center,
			subLabelStyle.Render("Set the Seconds"),
			labelStyle.Render(picker),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		m.bar.ViewAs(m.ctrl.PercentComplete()),
		"",
		labelStyle.Render(m.ctrl.Label()),
		subLabelStyle.Render(m.ctrl.TapsLabel()),
	)
}

func (m *Model) renderPad() string {
	if m.ctrl.State() != model.StateCounting {
		return padDisabled.Render("Disabled")
	}
	if m.clock.Now().Before(m.flashUntil) {
		return padFlash.Render("Tap!")
	}
	return padEnabled.Render("Tap!")
}

func (m *Model) renderFooter() string {
	return m.footer.render(fmt.Sprintf("Progress %d%%", int(m.ctrl.PercentComplete()*100)))
}
