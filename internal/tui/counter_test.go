package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/ddk/internal/model"
	"github.com/verte-zerg/ddk/internal/session"
	"github.com/verte-zerg/ddk/internal/settings"
)

func newTestCounterModel(t *testing.T, st *memStore, kind model.Kind) *CounterModel {
	t.Helper()
	counter, err := session.NewCounter(context.Background(), settings.NewMemory(), kind)
	require.NoError(t, err)
	m := NewCounterModel(counter, st, Options{Clock: clockwork.NewFakeClockAt(testEpoch)})
	t.Cleanup(m.Close)
	return m
}

func (m *CounterModel) press(msg tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func (m *CounterModel) tickAt(offset time.Duration) tea.Cmd {
	_, cmd := m.Update(tickMsg{gen: m.ticks.gen, at: testEpoch.Add(offset)})
	return cmd
}

func TestCountRunStartsOnFirstTap(t *testing.T) {
	st := &memStore{}
	m := newTestCounterModel(t, st, model.KindCount)
	require.Contains(t, m.View(), "Count Mode")
	require.Contains(t, m.View(), "Tap to begin")
	require.Nil(t, m.press(keyEnter), "stop does nothing before the first tap")

	require.NotNil(t, m.press(keyTap), "first tap starts the clock")
	require.Equal(t, model.StateCounting, m.counter.State())
	require.Nil(t, m.press(keyTap))

	require.NotNil(t, m.tickAt(4*time.Second))
	m.press(keyTap)
	m.tickAt(6 * time.Second)
	require.Contains(t, m.View(), "3 taps")
	require.Contains(t, m.View(), "6.0 s")

	m.press(keyEnter)
	require.Equal(t, model.StateFinished, m.counter.State())
	require.Nil(t, m.tickAt(7*time.Second), "loop ends after stop")
	require.Equal(t, 6.0, m.counter.Snapshot().ElapsedSeconds)

	require.Len(t, st.records, 1)
	rec := st.records[0]
	require.Equal(t, model.KindCount, rec.Kind)
	require.Equal(t, 3, rec.Taps)
	require.Equal(t, 6.0, rec.DurationSeconds)
	require.Equal(t, testEpoch, rec.StartedAt)
	require.Contains(t, m.footer.render(), "Last 30 bpm")
	require.Contains(t, m.View(), "Done")

	m.press(keyReset)
	require.Equal(t, model.StateReady, m.counter.State())
	require.Len(t, st.records, 1)
}

func TestHeartRateShowsLiveRate(t *testing.T) {
	st := &memStore{}
	m := newTestCounterModel(t, st, model.KindHeartRate)
	require.Contains(t, m.View(), "Heart Rate Mode")

	m.press(keyTap)
	require.Contains(t, m.View(), "--")
	for i := 1; i <= 4; i++ {
		m.tickAt(time.Duration(i) * 750 * time.Millisecond)
		m.press(keyTap)
	}
	require.Contains(t, m.View(), "80 bpm")
	require.Contains(t, m.View(), "5 taps")

	m.press(keyUnit)
	require.Contains(t, m.View(), "1.3 bps")

	m.press(keyEnter)
	require.Len(t, st.records, 1)
	require.Equal(t, model.KindHeartRate, st.records[0].Kind)
	require.InDelta(t, 3.0, st.records[0].DurationSeconds, 1e-9)
}

func TestCounterResetDropsStaleTicks(t *testing.T) {
	m := newTestCounterModel(t, &memStore{}, model.KindCount)
	m.press(keyTap)
	staleGen := m.ticks.gen
	m.press(keyReset)

	_, cmd := m.Update(tickMsg{gen: staleGen, at: testEpoch.Add(time.Second)})
	require.Nil(t, cmd)
	require.Zero(t, m.counter.Snapshot().ElapsedSeconds)
}
