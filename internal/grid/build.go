package grid

import (
	"time"

	"webcal/internal/model"
)

// Layout is the geometry for one view of one period. Exactly one of Month
// or Columns is populated.
type Layout struct {
	View       model.View       `json:"view"`
	RangeStart time.Time        `json:"range_start"`
	RangeEnd   time.Time        `json:"range_end"`
	Month      *MonthGrid       `json:"month,omitempty"`
	Columns    []Column         `json:"columns,omitempty"`
	Slots      []model.TimeSlot `json:"slots,omitempty"`
}

// Build is the single dispatch point from a view to its geometry.
// RangeEnd is exclusive.
func Build(view model.View, anchor, now time.Time, events []model.CalendarEvent, geo Geometry) Layout {
	geo = geo.Normalize()

	switch view {
	case model.ViewWeek:
		days := WeekDays(anchor, geo.WeekStart)
		return Layout{
			View:       view,
			RangeStart: days[0],
			RangeEnd:   days[len(days)-1].AddDate(0, 0, 1),
			Columns:    Columns(days, now, events, geo),
			Slots:      TimeSlots(),
		}
	case model.ViewDay:
		day := StartOfDay(anchor)
		return Layout{
			View:       view,
			RangeStart: day,
			RangeEnd:   day.AddDate(0, 0, 1),
			Columns:    Columns([]time.Time{day}, now, events, geo),
			Slots:      TimeSlots(),
		}
	default:
		m := Month(anchor, now, events, geo)
		return Layout{
			View:       model.ViewMonth,
			RangeStart: m.Start,
			RangeEnd:   m.End.AddDate(0, 0, 1),
			Month:      &m,
		}
	}
}
