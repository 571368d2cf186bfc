// Package render turns occupancy stats into the values shown on the dashboard.
// Everything here is a pure function of its input.
package render

import (
	"fmt"
	"strings"

	"parkvision/pkg/models"
)

const (
	highThreshold   = 70
	mediumThreshold = 30

	maxPercent = 100
	textBarLen = 20
)

// Band is the qualitative availability level driving the bar color.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

var bandColors = map[Band]string{
	BandHigh:   "#4CAF50",
	BandMedium: "#FF9800",
	BandLow:    "#F44336",
}

// View is the target state of the dashboard widgets.
type View struct {
	Empty      int    `json:"empty"`
	Occupied   int    `json:"occupied"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	BarWidth   int    `json:"bar_width"`
	Band       Band   `json:"band"`
	Color      string `json:"color"`
	Label      string `json:"label"`
}

// Percentage returns round(empty/total*100), or 0 when total is not positive.
// Halves round up, matching the browser's Math.round. Integer arithmetic
// keeps exact halves such as 1/40 from drifting.
func Percentage(stats models.OccupancyStats) int {
	if stats.Total <= 0 {
		return 0
	}
	return floorDiv(2*maxPercent*stats.Empty+stats.Total, 2*stats.Total)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// BandFor classifies a percentage: >70 high, >30 medium, otherwise low.
func BandFor(percent int) Band {
	switch {
	case percent > highThreshold:
		return BandHigh
	case percent > mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Render builds the view for the given stats.
func Render(stats models.OccupancyStats) View {
	percent := Percentage(stats)
	band := BandFor(percent)

	return View{
		Empty:      stats.Empty,
		Occupied:   stats.Occupied,
		Total:      stats.Total,
		Percentage: percent,
		BarWidth:   clamp(percent, 0, maxPercent),
		Band:       band,
		Color:      bandColors[band],
		Label:      fmt.Sprintf("%d%% Available", percent),
	}
}

// Text renders a view as a single terminal line.
func Text(view View) string {
	filled := view.BarWidth * textBarLen / maxPercent
	bar := strings.Repeat("#", filled) + strings.Repeat(".", textBarLen-filled)

	return fmt.Sprintf("[%s] %s  empty=%d occupied=%d total=%d",
		bar, view.Label, view.Empty, view.Occupied, view.Total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
