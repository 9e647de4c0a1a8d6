// Package trend turns a history series into a summary and a fixed-height
// quantized bar chart.
//
// Render is a pure function. Turning the Result into markup or terminal
// output is left to the caller; Lines, LabelStrip and Text cover the common
// text rendering.
package trend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/HatiCode/kpiboard/pkg/history"
)

const (
	DefaultWidth  = 12
	DefaultHeight = 8

	// FilledCell and EmptyCell are the two-column glyphs used by Text.
	FilledCell = "██"
	EmptyCell  = "  "
)

// Options controls chart geometry and label time zone.
type Options struct {
	// Width is the maximum number of columns (most recent samples).
	Width int
	// Height is the number of rows.
	Height int
	// Location is used for the hour labels.
	Location *time.Location
}

// DefaultOptions returns a 12x8 chart labelled in local time.
func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight, Location: time.Local}
}

// Result is the rendered summary of a series.
type Result struct {
	// Empty is set when the series had no samples; every other field is zero.
	Empty bool `json:"empty"`

	// Samples is the number of samples in the whole series.
	Samples int `json:"samples"`

	Latest        float64 `json:"latest"`
	Oldest        float64 `json:"oldest"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`

	// Max and Min are taken over the charted window only.
	Max float64 `json:"max"`
	Min float64 `json:"min"`

	// Bars holds the bar height of every column, in [0, Height-1].
	Bars []int `json:"bars"`
	// Grid is row-major, top row first. Grid[r][c] is true when column c
	// reaches row Height-1-r.
	Grid [][]bool `json:"grid"`
	// Labels holds the zero-padded hour of day of every column.
	Labels []string `json:"labels"`
}

// Render computes the trend summary and chart for series.
func Render(series history.Series, opts Options) Result {
	if len(series) == 0 {
		return Result{Empty: true}
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	latest := series[len(series)-1]
	oldest := series[0]
	change := latest.Value - oldest.Value

	var changePercent float64
	if oldest.Value > 0 {
		changePercent = change / oldest.Value * 100
	}

	window := series
	if len(window) > opts.Width {
		window = window[len(window)-opts.Width:]
	}

	maxValue, minValue := window[0].Value, window[0].Value
	for _, smp := range window[1:] {
		maxValue = math.Max(maxValue, smp.Value)
		minValue = math.Min(minValue, smp.Value)
	}
	valueRange := maxValue - minValue

	bars := make([]int, len(window))
	labels := make([]string, len(window))
	for i, smp := range window {
		normalized := 0.5
		if valueRange > 0 {
			normalized = (smp.Value - minValue) / valueRange
		}
		bars[i] = int(math.Round(normalized * float64(opts.Height-1)))
		labels[i] = fmt.Sprintf("%02d", smp.Hour.In(opts.Location).Hour())
	}

	grid := make([][]bool, 0, opts.Height)
	for row := opts.Height - 1; row >= 0; row-- {
		cells := make([]bool, len(bars))
		for i, h := range bars {
			cells[i] = h >= row
		}
		grid = append(grid, cells)
	}

	return Result{
		Samples:       len(series),
		Latest:        latest.Value,
		Oldest:        oldest.Value,
		Change:        change,
		ChangePercent: changePercent,
		Max:           maxValue,
		Min:           minValue,
		Bars:          bars,
		Grid:          grid,
		Labels:        labels,
	}
}

// Lines renders the grid top to bottom using filled and empty per cell.
func (r Result) Lines(filled, empty string) []string {
	lines := make([]string, len(r.Grid))
	var b strings.Builder
	for i, row := range r.Grid {
		b.Reset()
		for _, on := range row {
			if on {
				b.WriteString(filled)
			} else {
				b.WriteString(empty)
			}
		}
		lines[i] = b.String()
	}
	return lines
}

// LabelStrip joins the hour labels with single spaces and appends "h".
func (r Result) LabelStrip() string {
	if len(r.Labels) == 0 {
		return ""
	}
	return strings.Join(r.Labels, " ") + "h"
}

// Text renders the result as a plain text block. Money values are formatted
// with format, which receives the raw value and returns its display form.
func (r Result) Text(format func(float64) string) string {
	if r.Empty {
		return "No MRR history available yet"
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%g", v) }
	}

	sign := "+"
	if r.Change < 0 {
		sign = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MRR TREND (%dh)\n", r.Samples)
	fmt.Fprintf(&b, "$%s\n", format(r.Latest))
	fmt.Fprintf(&b, "%s$%s (%s%%)\n", sign, format(math.Abs(r.Change)), r.percentText())
	fmt.Fprintf(&b, "$%s\n", format(r.Max))
	for _, line := range r.Lines(FilledCell, EmptyCell) {
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "$%s\n", format(r.Min))
	b.WriteString(r.LabelStrip())
	return b.String()
}

// percentText is the change percent to one decimal, or a bare "0" when the
// oldest value is not positive and no percentage is defined.
func (r Result) percentText() string {
	if r.Oldest <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", r.ChangePercent)
}
