package view

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/HatiCode/kpiboard/pkg/adapters"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders v for a KPI slot: millions get one decimal and an
// "M" suffix, everything else is grouped with thousands separators.
func FormatNumber(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.1fM", v/1_000_000)
	}
	return FormatGrouped(v)
}

// FormatGrouped renders v with thousands separators and at most three
// fraction digits.
func FormatGrouped(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

// FormatMoney prefixes FormatNumber with a dollar sign.
func FormatMoney(v float64) string {
	return "$" + FormatNumber(v)
}

// FormatAge describes how long before now t was.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "Unknown time"
	}
	diff := now.Sub(t)
	mins := int(math.Floor(diff.Minutes()))
	hours := mins / 60
	days := hours / 24

	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// Values maps a snapshot onto the slots with display formatting applied.
func Values(s adapters.Snapshot) map[Slot]string {
	return map[Slot]string{
		SlotActiveUsers:          FormatNumber(s.ActiveUsers),
		SlotMRR:                  FormatMoney(s.MRR),
		SlotActiveSubscriptions:  FormatNumber(s.ActiveSubscriptions),
		SlotActiveTrials:         FormatNumber(s.ActiveTrials),
		SlotNewCustomers:         FormatNumber(s.NewCustomers),
		SlotRevenue:              FormatMoney(s.Revenue),
		SlotUsersCreatedToday:    FormatNumber(s.UsersCreatedToday),
		SlotUsersCreatedLastHour: FormatNumber(s.UsersCreatedInLastHour),
	}
}

// Insights builds the activity list for a snapshot.
func Insights(s adapters.Snapshot, now time.Time) []Activity {
	return []Activity{
		{Description: fmt.Sprintf("%s users are actively using the platform", FormatGrouped(s.ActiveUsers)), Timestamp: now},
		{Description: fmt.Sprintf("$%s in monthly recurring revenue", FormatGrouped(s.MRR)), Timestamp: now},
		{Description: fmt.Sprintf("%s new users created today", FormatGrouped(s.UsersCreatedToday)), Timestamp: now},
		{Description: fmt.Sprintf("%s users registered in the last hour", FormatGrouped(s.UsersCreatedInLastHour)), Timestamp: now},
		{Description: fmt.Sprintf("%s active subscriptions generating revenue", FormatGrouped(s.ActiveSubscriptions)), Timestamp: now},
	}
}
