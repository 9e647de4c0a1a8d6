// Package view defines the output side of the dashboard: a Port with one
// setter per named slot, and the implementations that render it.
//
// The dashboard never looks up output targets itself; it is handed a Port
// and writes every slot through it, then calls Flush once per cycle.
package view

import (
	"time"

	"github.com/HatiCode/kpiboard/pkg/trend"
)

// Slot names one KPI output slot.
type Slot string

const (
	SlotActiveUsers          Slot = "activeUsers"
	SlotMRR                  Slot = "mrr"
	SlotActiveSubscriptions  Slot = "activeSubscriptions"
	SlotActiveTrials         Slot = "activeTrials"
	SlotNewCustomers         Slot = "newCustomers"
	SlotRevenue              Slot = "revenue"
	SlotUsersCreatedToday    Slot = "usersCreatedToday"
	SlotUsersCreatedLastHour Slot = "usersCreatedLastHour"
)

// Slots lists every KPI slot in display order.
var Slots = []Slot{
	SlotActiveUsers,
	SlotMRR,
	SlotActiveSubscriptions,
	SlotActiveTrials,
	SlotNewCustomers,
	SlotRevenue,
	SlotUsersCreatedToday,
	SlotUsersCreatedLastHour,
}

// Titles are the display names of the slots.
var Titles = map[Slot]string{
	SlotActiveUsers:          "Active Users",
	SlotMRR:                  "MRR",
	SlotActiveSubscriptions:  "Subscriptions",
	SlotActiveTrials:         "Trials",
	SlotNewCustomers:         "New Customers",
	SlotRevenue:              "Revenue",
	SlotUsersCreatedToday:    "Signups Today",
	SlotUsersCreatedLastHour: "Signups Last Hour",
}

// Captions are the fixed sub-labels shown under each value.
var Captions = map[Slot]string{
	SlotActiveUsers:          "Total Active",
	SlotMRR:                  "Monthly Recurring",
	SlotActiveSubscriptions:  "Current Active",
	SlotActiveTrials:         "Current Trials",
	SlotNewCustomers:         "Past Month",
	SlotRevenue:              "Past Month",
	SlotUsersCreatedToday:    "Today",
	SlotUsersCreatedLastHour: "Last Hour",
}

// Activity is one line of the insights list.
type Activity struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Port receives everything the dashboard shows.
type Port interface {
	SetMetric(slot Slot, value string)
	SetCaption(slot Slot, caption string)
	SetActivity(items []Activity)
	SetChart(chart trend.Result)
	SetLastUpdated(t time.Time)
	// SetStale marks the shown data as served from cache.
	SetStale(stale bool)
	SetLoading(loading bool)
	// SetError shows err as the error state; nil clears it.
	SetError(err error)
	SetSettingsVisible(visible bool)
	// Flush renders the accumulated state.
	Flush() error
}

type multi []Port

// Multi returns a Port that forwards every call to all ports.
// Flush returns the first error but still flushes every port.
func Multi(ports ...Port) Port {
	return multi(ports)
}

func (m multi) SetMetric(slot Slot, value string) {
	for _, p := range m {
		p.SetMetric(slot, value)
	}
}

func (m multi) SetCaption(slot Slot, caption string) {
	for _, p := range m {
		p.SetCaption(slot, caption)
	}
}

func (m multi) SetActivity(items []Activity) {
	for _, p := range m {
		p.SetActivity(items)
	}
}

func (m multi) SetChart(chart trend.Result) {
	for _, p := range m {
		p.SetChart(chart)
	}
}

func (m multi) SetLastUpdated(t time.Time) {
	for _, p := range m {
		p.SetLastUpdated(t)
	}
}

func (m multi) SetStale(stale bool) {
	for _, p := range m {
		p.SetStale(stale)
	}
}

func (m multi) SetLoading(loading bool) {
	for _, p := range m {
		p.SetLoading(loading)
	}
}

func (m multi) SetError(err error) {
	for _, p := range m {
		p.SetError(err)
	}
}

func (m multi) SetSettingsVisible(visible bool) {
	for _, p := range m {
		p.SetSettingsVisible(visible)
	}
}

func (m multi) Flush() error {
	var first error
	for _, p := range m {
		if err := p.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
