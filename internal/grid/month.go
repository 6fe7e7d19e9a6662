package grid

import (
	"time"

	"webcal/internal/model"
)

// MonthCell is one day of the month grid. Events holds at most
// Geometry.MaxMonthEvents entries in store order; More counts the rest.
type MonthCell struct {
	Date    time.Time             `json:"date"`
	InMonth bool                  `json:"in_month"`
	Today   bool                  `json:"today"`
	Events  []model.CalendarEvent `json:"events"`
	More    int                   `json:"more"`
	Total   int                   `json:"total"`
}

// MonthGrid is a run of complete weeks covering the anchor's month.
type MonthGrid struct {
	Month time.Time   `json:"month"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Cells []MonthCell `json:"cells"`
}

func (m MonthGrid) Weeks() int {
	return len(m.Cells) / 7
}

// MonthRange returns the first and last displayed day (both at midnight) for
// the month containing anchor.
func MonthRange(anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	return StartOfWeek(StartOfMonth(anchor), weekStart), EndOfWeek(EndOfMonth(anchor), weekStart)
}

// monthDays enumerates the displayed days of anchor's month grid.
func monthDays(anchor time.Time, weekStart time.Weekday) []time.Time {
	start, end := MonthRange(anchor, weekStart)
	days := make([]time.Time, 0, 42)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Month builds the month grid for anchor. Events attach to the day of their
// start.
func Month(anchor, now time.Time, events []model.CalendarEvent, geo Geometry) MonthGrid {
	geo = geo.Normalize()
	days := monthDays(anchor, geo.WeekStart)

	grid := MonthGrid{
		Month: StartOfMonth(anchor),
		Start: days[0],
		End:   days[len(days)-1],
		Cells: make([]MonthCell, 0, len(days)),
	}
	for _, day := range days {
		onDay := eventsOnDay(day, events)
		cell := MonthCell{
			Date:    day,
			InMonth: SameMonth(day, anchor),
			Today:   SameDay(now, day),
			Total:   len(onDay),
		}
		if len(onDay) > geo.MaxMonthEvents {
			cell.Events = onDay[:geo.MaxMonthEvents]
			cell.More = len(onDay) - geo.MaxMonthEvents
		} else {
			cell.Events = onDay
		}
		grid.Cells = append(grid.Cells, cell)
	}
	return grid
}

// MiniDay is one day of the sidebar mini calendar.
type MiniDay struct {
	Date      time.Time `json:"date"`
	InMonth   bool      `json:"in_month"`
	Today     bool      `json:"today"`
	Selected  bool      `json:"selected"`
	HasEvents bool      `json:"has_events"`
}

// MiniMonth builds the compact month used for date picking.
func MiniMonth(month, selected, now time.Time, events []model.CalendarEvent, weekStart time.Weekday) []MiniDay {
	days := monthDays(month, weekStart)
	out := make([]MiniDay, 0, len(days))
	for _, day := range days {
		out = append(out, MiniDay{
			Date:      day,
			InMonth:   SameMonth(day, month),
			Today:     SameDay(now, day),
			Selected:  !selected.IsZero() && SameDay(selected, day),
			HasEvents: hasEventOnDay(day, events),
		})
	}
	return out
}

func eventsOnDay(day time.Time, events []model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0)
	for _, ev := range events {
		if SameDay(ev.Start, day) {
			out = append(out, ev)
		}
	}
	return out
}

func hasEventOnDay(day time.Time, events []model.CalendarEvent) bool {
	for _, ev := range events {
		if SameDay(ev.Start, day) {
			return true
		}
	}
	return false
}
