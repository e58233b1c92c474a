package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/ddk/internal/feedback"
	"github.com/verte-zerg/ddk/internal/logging"
	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/session"
)

// CounterModel is the tapping UI for untimed count and heart rate runs.
type CounterModel struct {
	counter *session.Counter
	store   SessionStore
	clock   clockwork.Clock
	log     *slog.Logger
	ticks   ticker

	keys counterKeyMap
	help help.Model

	width  int
	height int

	startedAt  time.Time
	flashUntil time.Time
	errMsg     string
	footer     footerStats
	detach     func()
}

// NewCounterModel constructs the untimed tapping UI around counter.
// Options.CountdownSeconds is ignored.
func NewCounterModel(counter *session.Counter, store SessionStore, opts Options) *CounterModel {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	m := &CounterModel{
		counter: counter,
		store:   store,
		clock:   opts.Clock,
		log:     opts.Logger,
		ticks:   newTicker(opts.Clock, opts.TickInterval),
		keys:    newCounterKeyMap(),
		help:    help.New(),
	}

	notifiers := feedback.Multi{feedback.Funcs{OnTap: m.flash, OnFinished: m.recordFinished}}
	if opts.Feedback != nil {
		notifiers = append(notifiers, opts.Feedback)
	}
	m.detach = feedback.Attach(counter, notifiers)

	m.keys.sync(counter.State())
	sessions, err := store.ListSessions(context.Background(), model.StatsConfig{Kind: counter.Kind()})
	if err != nil {
		m.log.Error("failed to load session stats", "err", err)
	} else {
		m.footer.load(sessions)
	}
	return m
}

// Close detaches the model from its counter.
func (m *CounterModel) Close() {
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

// Init implements tea.Model.
func (m *CounterModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *CounterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case tickMsg:
		if delta, ok := m.ticks.accept(msg); ok && m.counter.State() == model.StateCounting {
			m.counter.Tick(delta)
			cmd = m.ticks.next()
		}
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		cmd = m.handleKey(msg)
	}
	m.keys.sync(m.counter.State())
	return m, cmd
}

func (m *CounterModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Tap):
		first := m.counter.State() == model.StateReady
		if m.counter.Tap() && first {
			m.errMsg = ""
			m.startedAt = m.clock.Now()
			m.log.Debug("session started", "kind", m.counter.Kind())
			return m.ticks.begin()
		}
	case key.Matches(msg, m.keys.Stop):
		m.counter.Stop()
		m.ticks.stop()
	case key.Matches(msg, m.keys.Reset):
		m.counter.Reset()
		m.ticks.stop()
		m.errMsg = ""
	case key.Matches(msg, m.keys.Unit):
		next := model.RateBPS
		if m.counter.RateUnit() == model.RateBPS {
			next = model.RateBPM
		}
		if err := m.counter.SetRateUnit(context.Background(), next); err != nil {
			m.fail("failed to save rate unit", err)
		}
	}
	return nil
}

func (m *CounterModel) flash() {
	m.flashUntil = m.clock.Now().Add(flashDuration)
}

func (m *CounterModel) recordFinished() {
	snap := m.counter.Snapshot()
	rec := model.SessionRecord{
		Kind:            m.counter.Kind(),
		StartedAt:       m.startedAt,
		EndedAt:         m.clock.Now(),
		Taps:            snap.TapCount,
		DurationSeconds: m.counter.WindowSeconds(),
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}
	m.log.Info("session finished", "kind", rec.Kind, "taps", rec.Taps, "duration_seconds", rec.DurationSeconds)
	m.fail("failed to save session", saveRecord(m.store, &m.footer, rec))
}

func (m *CounterModel) fail(msg string, err error) {
	if err == nil {
		return
	}
	m.log.Error(msg, "err", err)
	m.errMsg = fmt.Sprintf("%s: %v", msg, err)
}

// View implements tea.Model.
func (m *CounterModel) View() string {
	face := lipgloss.JoinVertical(lipgloss.Center,
		labelStyle.Render(m.counter.Label()),
		subLabelStyle.Render(m.subLabel()),
	)
	sections := []string{titleStyle.Render(m.counter.Kind().Title() + " Mode"), "", face, "", m.renderPad(), "", m.help.View(m.keys)}
	if m.errMsg != "" {
		sections = append(sections, errorStyle.Render(m.errMsg))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	footer := m.footer.render()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *CounterModel) subLabel() string {
	snap := m.counter.Snapshot()
	if snap.State == model.StateReady {
		return " "
	}
	if m.counter.Kind() == model.KindHeartRate {
		return fmt.Sprintf("%s · %s", session.TapsText(snap.TapCount), m.counter.ElapsedLabel())
	}
	return m.counter.ElapsedLabel()
}

func (m *CounterModel) renderPad() string {
	switch {
	case m.counter.State() == model.StateFinished:
		return padDisabled.Render("Done")
	case m.clock.Now().Before(m.flashUntil):
		return padFlash.Render("Tap!")
	default:
		return padEnabled.Render("Tap!")
	}
}
