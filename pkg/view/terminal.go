package view

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	clearScreen = "\033[H\033[2J"
	// wideLayout is the terminal width from which KPIs are shown two per line.
	wideLayout = 80
)

// Terminal renders the dashboard as plain text on Flush.
// When the writer is a terminal the screen is cleared before each frame.
type Terminal struct {
	*State
	w     io.Writer
	fd    int
	isTTY bool
	now   func() time.Time
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	t := &Terminal{State: NewState(), w: w, fd: -1, now: time.Now}
	if f, ok := w.(*os.File); ok {
		t.fd = int(f.Fd())
		t.isTTY = term.IsTerminal(t.fd)
	}
	return t
}

func (t *Terminal) width() int {
	if !t.isTTY {
		return wideLayout
	}
	w, _, err := term.GetSize(t.fd)
	if err != nil || w <= 0 {
		return wideLayout
	}
	return w
}

// Flush writes one frame.
func (t *Terminal) Flush() error {
	frame := Render(t.Snapshot(), t.width(), t.now())
	if t.isTTY {
		frame = clearScreen + frame
	}
	_, err := io.WriteString(t.w, frame)
	return err
}

// Render formats a snapshot as a text frame for a terminal of the given width.
func Render(s Snapshot, width int, now time.Time) string {
	var b strings.Builder

	header := "KPIBOARD"
	if !s.LastUpdated.IsZero() {
		header += "  updated " + s.LastUpdated.Format("15:04:05")
	}
	if s.Stale {
		header += " (cached)"
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", min(width, 60)) + "\n")

	switch {
	case s.SettingsVisible:
		b.WriteString("Not configured: set an API URL via -api-url or POST /api/settings\n")
	case s.Loading:
		b.WriteString("Loading...\n")
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "ERROR: %s (retry: POST /api/refresh)\n", s.Error)
	}

	perLine := 1
	if width >= wideLayout {
		perLine = 2
	}
	for i, slot := range Slots {
		value, ok := s.Metrics[slot]
		if !ok {
			value = "-"
		}
		cell := fmt.Sprintf("%-18s %12s  %-18s", Titles[slot], value, s.Captions[slot])
		if perLine == 2 && i%2 == 0 {
			b.WriteString(cell + "  ")
			continue
		}
		b.WriteString(strings.TrimRight(cell, " ") + "\n")
	}
	if perLine == 2 && len(Slots)%2 == 1 {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Chart.Text(FormatGrouped))
	b.WriteString("\n\n")

	if len(s.Activity) == 0 {
		b.WriteString("No recent activity\n")
	}
	for _, a := range s.Activity[:min(len(s.Activity), 5)] {
		fmt.Fprintf(&b, "• %s  (%s)\n", a.Description, FormatAge(a.Timestamp, now))
	}
	return b.String()
}
