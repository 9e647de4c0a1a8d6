package view

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/HatiCode/kpiboard/pkg/trend"
)

// Snapshot is a point-in-time copy of everything a Port has been told.
type Snapshot struct {
	Metrics         map[Slot]string `json:"metrics"`
	Captions        map[Slot]string `json:"captions"`
	Activity        []Activity      `json:"activity"`
	Chart           trend.Result    `json:"chart"`
	LastUpdated     time.Time       `json:"lastUpdated"`
	Stale           bool            `json:"stale"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	SettingsVisible bool            `json:"settingsVisible"`
}

// State is a Port that records the latest value of every slot.
// It is safe for concurrent use; the HTTP API reads it while refreshes write.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewState returns an empty State with the loading overlay shown and an
// empty chart, matching what a freshly opened dashboard displays.
func NewState() *State {
	return &State{snap: Snapshot{
		Metrics:  make(map[Slot]string),
		Captions: make(map[Slot]string),
		Chart:    trend.Result{Empty: true},
		Loading:  true,
	}}
}

func (s *State) SetMetric(slot Slot, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Metrics[slot] = value
}

func (s *State) SetCaption(slot Slot, caption string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Captions[slot] = caption
}

func (s *State) SetActivity(items []Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Activity = slices.Clone(items)
}

func (s *State) SetChart(chart trend.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Chart = chart
}

func (s *State) SetLastUpdated(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastUpdated = t
}

func (s *State) SetStale(stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Stale = stale
}

func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Loading = loading
}

func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.snap.Error = ""
		return
	}
	s.snap.Error = err.Error()
}

func (s *State) SetSettingsVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SettingsVisible = visible
}

// Flush is a no-op; State is always current.
func (s *State) Flush() error { return nil }

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	out.Metrics = maps.Clone(s.snap.Metrics)
	out.Captions = maps.Clone(s.snap.Captions)
	out.Activity = slices.Clone(s.snap.Activity)
	return out
}
