package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HatiCode/kpiboard/pkg/adapters"
	"github.com/HatiCode/kpiboard/pkg/history"
	"github.com/HatiCode/kpiboard/pkg/trend"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{12345, "12,345"},
		{999999, "999,999"},
		{1_000_000, "1.0M"},
		{1_260_000, "1.3M"},
		{48_000_000, "48.0M"},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, FormatNumber(tt.in), "FormatNumber(%v)", tt.in)
	}
	assert.Equal(t, "$12,345", FormatMoney(12345))
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{59 * time.Minute, "59m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{10 * 24 * time.Hour, "2025-02-28"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(now.Add(-tt.ago), now))
	}
	assert.Equal(t, "Unknown time", FormatAge(time.Time{}, now))
}

func TestValuesAndInsights(t *testing.T) {
	snap := adapters.Snapshot{ActiveUsers: 1520, MRR: 2_500_000, UsersCreatedToday: 4}

	v := Values(snap)
	assert.Len(t, v, len(Slots))
	assert.Equal(t, "1,520", v[SlotActiveUsers])
	assert.Equal(t, "$2.5M", v[SlotMRR])
	assert.Equal(t, "0", v[SlotActiveTrials])

	items := Insights(snap, now)
	require.Len(t, items, 5)
	assert.Equal(t, "1,520 users are actively using the platform", items[0].Description)
	assert.Equal(t, "$2,500,000 in monthly recurring revenue", items[1].Description)
	assert.Equal(t, now, items[0].Timestamp)
}

func TestState_SnapshotIsACopy(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	assert.True(t, snap.Loading)
	assert.True(t, snap.Chart.Empty)

	s.SetMetric(SlotMRR, "$10")
	s.SetCaption(SlotMRR, Captions[SlotMRR])
	s.SetStale(true)
	s.SetLoading(false)
	s.SetError(errors.New("HTTP error! status: 500"))

	snap = s.Snapshot()
	snap.Metrics[SlotMRR] = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "$10", again.Metrics[SlotMRR])
	assert.Equal(t, "Monthly Recurring", again.Captions[SlotMRR])
	assert.True(t, again.Stale)
	assert.False(t, again.Loading)
	assert.Equal(t, "HTTP error! status: 500", again.Error)

	s.SetError(nil)
	assert.Empty(t, s.Snapshot().Error)
}

type flushCounter struct {
	*State
	flushes int
	err     error
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return f.err
}

func TestMulti(t *testing.T) {
	a := &flushCounter{State: NewState(), err: errors.New("broken pipe")}
	b := &flushCounter{State: NewState()}
	m := Multi(a, b)

	m.SetMetric(SlotActiveUsers, "7")
	m.SetSettingsVisible(true)
	m.SetLastUpdated(now)

	err := m.Flush()
	assert.EqualError(t, err, "broken pipe")
	for _, p := range []*flushCounter{a, b} {
		snap := p.Snapshot()
		assert.Equal(t, "7", snap.Metrics[SlotActiveUsers])
		assert.True(t, snap.SettingsVisible)
		assert.Equal(t, now, snap.LastUpdated)
		assert.Equal(t, 1, p.flushes)
	}
}

func TestTerminal_FlushNonTTY(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.now = func() time.Time { return now }

	snap := adapters.Snapshot{ActiveUsers: 1520, MRR: 48250}
	for slot, v := range Values(snap) {
		term.SetMetric(slot, v)
		term.SetCaption(slot, Captions[slot])
	}
	term.SetActivity(Insights(snap, now.Add(-5*time.Minute)))
	term.SetLastUpdated(now)
	term.SetStale(true)
	term.SetLoading(false)

	series := history.Series{
		{Hour: now.Add(-time.Hour), Value: 48000},
		{Hour: now, Value: 48250},
	}
	term.SetChart(trend.Render(series, trend.Options{Location: time.UTC}))

	require.NoError(t, term.Flush())
	out := buf.String()

	assert.False(t, strings.HasPrefix(out, clearScreen), "no escape codes on a non-terminal writer")
	assert.Contains(t, out, "KPIBOARD  updated 12:00:00 (cached)")
	assert.Contains(t, out, "1,520")
	assert.Contains(t, out, "$48,250")
	assert.Contains(t, out, "Monthly Recurring")
	assert.Contains(t, out, "MRR TREND (2h)")
	assert.Contains(t, out, "+$250 (0.5%)")
	assert.Contains(t, out, "11 12h")
	assert.Contains(t, out, "users are actively using the platform  (5m ago)")
}

func TestRender_States(t *testing.T) {
	s := NewState()
	out := Render(s.Snapshot(), 40, now)
	assert.Contains(t, out, "Loading...")
	assert.Contains(t, out, "No MRR history available yet")
	assert.Contains(t, out, "No recent activity")

	s.SetLoading(false)
	s.SetSettingsVisible(true)
	s.SetError(errors.New("HTTP error! status: 401"))
	out = Render(s.Snapshot(), 120, now)
	assert.Contains(t, out, "Not configured")
	assert.Contains(t, out, "ERROR: HTTP error! status: 401")
	assert.NotContains(t, out, "Loading...")
}
