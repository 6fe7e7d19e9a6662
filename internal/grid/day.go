package grid

import (
	"fmt"
	"sort"
	"time"

	"webcal/internal/model"
)

// Column is one day of the week or day view.
type Column struct {
	Date   time.Time        `json:"date"`
	Today  bool             `json:"today"`
	Events []model.DayEvent `json:"events"`
	// NowTop is the current-time indicator offset; set only on today's column.
	NowTop *float64 `json:"now_top,omitempty"`
}

// TimeSlots enumerates the 24 hour rows of a day.
func TimeSlots() []model.TimeSlot {
	slots := make([]model.TimeSlot, HoursPerDay)
	for h := range slots {
		slots[h] = model.TimeSlot{Hour: h, Minute: 0, Label: fmt.Sprintf("%02d:00", h)}
	}
	return slots
}

// WeekDays returns the seven days of the week containing anchor.
func WeekDays(anchor time.Time, weekStart time.Weekday) []time.Time {
	start := StartOfWeek(anchor, weekStart)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// NowIndicator returns the indicator offset for day and whether it is shown.
// It is shown only when now falls on day.
func NowIndicator(day, now time.Time, geo Geometry) (float64, bool) {
	if !SameDay(now, day) {
		return 0, false
	}
	geo = geo.Normalize()
	return MinutesSinceMidnight(now.In(day.Location())) * geo.PxPerMinute(), true
}

// LayoutDay positions the events starting on day. An event that runs past
// midnight stays on its start day and its block stops at the column bottom.
// Overlapping blocks share the column width side by side.
func LayoutDay(day time.Time, events []model.CalendarEvent, geo Geometry) []model.DayEvent {
	geo = geo.Normalize()
	day = StartOfDay(day)
	nextDay := day.AddDate(0, 0, 1)

	out := make([]model.DayEvent, 0)
	for _, ev := range events {
		if !SameDay(ev.Start, day) {
			continue
		}
		top := MinutesSinceMidnight(ev.Start.In(day.Location())) * geo.PxPerMinute()
		height := ev.Duration().Minutes() * geo.PxPerMinute()
		if height < geo.MinHeightPx {
			height = geo.MinHeightPx
		}
		if ev.End.After(nextDay) {
			height = max(geo.ColumnHeight()-top, geo.MinHeightPx)
		}
		out = append(out, model.DayEvent{
			Event:  ev,
			Top:    top,
			Height: height,
			Left:   0,
			Width:  100,
		})
	}
	assignLanes(out)
	return out
}

// Columns lays out each of days.
func Columns(days []time.Time, now time.Time, events []model.CalendarEvent, geo Geometry) []Column {
	geo = geo.Normalize()
	cols := make([]Column, 0, len(days))
	for _, day := range days {
		col := Column{
			Date:   StartOfDay(day),
			Today:  SameDay(now, day),
			Events: LayoutDay(day, events, geo),
		}
		if top, ok := NowIndicator(day, now, geo); ok {
			col.NowTop = &top
		}
		cols = append(cols, col)
	}
	return cols
}

// assignLanes splits visually overlapping blocks into side-by-side lanes.
// Blocks are grouped into clusters of transitive overlap; every block in a
// cluster gets width 100/lanes. A lone block keeps left 0, width 100.
func assignLanes(blocks []model.DayEvent) {
	if len(blocks) < 2 {
		return
	}

	order := make([]int, len(blocks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ba, bb := blocks[order[a]], blocks[order[b]]
		if ba.Top != bb.Top {
			return ba.Top < bb.Top
		}
		return ba.Height > bb.Height
	})

	lane := make([]int, len(blocks))
	var (
		cluster    []int
		laneEnds   []float64
		clusterEnd float64
	)
	flush := func() {
		n := float64(len(laneEnds))
		for _, i := range cluster {
			blocks[i].Width = 100 / n
			blocks[i].Left = float64(lane[i]) * 100 / n
		}
		cluster = cluster[:0]
		laneEnds = laneEnds[:0]
	}

	for _, i := range order {
		b := blocks[i]
		if len(cluster) > 0 && b.Top >= clusterEnd {
			flush()
		}
		placed := false
		for l, end := range laneEnds {
			if end <= b.Top {
				lane[i] = l
				laneEnds[l] = b.Top + b.Height
				placed = true
				break
			}
		}
		if !placed {
			lane[i] = len(laneEnds)
			laneEnds = append(laneEnds, b.Top+b.Height)
		}
		if len(cluster) == 0 || b.Top+b.Height > clusterEnd {
			clusterEnd = b.Top + b.Height
		}
		cluster = append(cluster, i)
	}
	flush()
}
