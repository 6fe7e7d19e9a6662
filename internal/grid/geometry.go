// Package grid maps calendar periods to displayable cells and positions
// events inside them. Every function takes "now" explicitly.
package grid

import "time"

const (
	HoursPerDay = 24

	DefaultPxPerHour      = 60
	DefaultMinHeightPx    = 30
	DefaultMaxMonthEvents = 3
)

// Geometry is the pixel scale and month overflow policy of a layout.
type Geometry struct {
	PxPerHour      float64
	MinHeightPx    float64
	MaxMonthEvents int
	WeekStart      time.Weekday
}

func DefaultGeometry() Geometry {
	return Geometry{
		PxPerHour:      DefaultPxPerHour,
		MinHeightPx:    DefaultMinHeightPx,
		MaxMonthEvents: DefaultMaxMonthEvents,
		WeekStart:      time.Sunday,
	}
}

// Normalize replaces non-positive values with defaults.
func (g Geometry) Normalize() Geometry {
	if g.PxPerHour <= 0 {
		g.PxPerHour = DefaultPxPerHour
	}
	if g.MinHeightPx <= 0 {
		g.MinHeightPx = DefaultMinHeightPx
	}
	if g.MaxMonthEvents <= 0 {
		g.MaxMonthEvents = DefaultMaxMonthEvents
	}
	if g.WeekStart < time.Sunday || g.WeekStart > time.Saturday {
		g.WeekStart = time.Sunday
	}
	return g
}

// PxPerMinute is PxPerHour/60.
func (g Geometry) PxPerMinute() float64 {
	return g.PxPerHour / 60
}

// ColumnHeight is the pixel height of a full day column.
func (g Geometry) ColumnHeight() float64 {
	return g.PxPerHour * HoursPerDay
}
