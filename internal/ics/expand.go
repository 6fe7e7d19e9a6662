package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 1000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone events are converted to. Nil means time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences produced (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed VEVENTs into concrete calendar events inside the
// configured window. Recurring events yield one event per occurrence with
// ids of the form "<uid>@<local start>".
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are grouped by UID; everything else is a base event.
	var bases []ParsedEvent
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	out := make([]model.CalendarEvent, 0, len(bases))
	for _, ev := range bases {
		if ev.RawRRule == "" {
			if occ, ok := expandSingle(ev, cfg); ok {
				out = append(out, occ)
			}
			continue
		}
		occ, hitCap := expandRecurring(ev, overridesByUID[ev.UID], cfg)
		if hitCap {
			appLog.Warn("expand: occurrences truncated", "uid", ev.UID, "cap", cfg.MaxOccurrencesPerEvent)
		}
		out = append(out, occ...)
	}
	return out, nil
}

func expandSingle(ev ParsedEvent, cfg ExpandConfig) (model.CalendarEvent, bool) {
	start, end := span(ev, ev.Start, cfg.Location)
	if !overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return model.CalendarEvent{}, false
	}
	return toEvent(ev, ev.UID, start, end), true
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.CalendarEvent, bool) {
	out := make([]model.CalendarEvent, 0)

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the event length so occurrences already in
	// progress at RangeStart are kept.
	dur := ev.End.Sub(ev.Start)
	if dur < 0 {
		dur = 0
	}
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range starts {
		base := ev
		baseStart := occStart
		if o, ok := findOverride(overrides, occStart); ok {
			base = o
			baseStart = o.Start
		}

		var start, end time.Time
		if base.IsOverride {
			start, end = span(base, baseStart, cfg.Location)
		} else {
			start, end = span(ev, occStart, cfg.Location)
		}
		id := ev.UID + "@" + occStart.In(cfg.Location).Format("20060102T150405")
		out = append(out, toEvent(base, id, start, end))
	}
	return out, hitCap
}

// span computes [start, end) for an occurrence starting at occStart. All-day
// events cover whole days; a missing or non-positive length becomes one hour.
func span(ev ParsedEvent, occStart time.Time, loc *time.Location) (time.Time, time.Time) {
	if ev.AllDay {
		y, m, d := occStart.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		days := 1
		if !ev.End.IsZero() {
			if n := calendarDays(ev.Start, ev.End); n > 1 {
				days = n
			}
		}
		return start, start.AddDate(0, 0, days)
	}

	dur := ev.End.Sub(ev.Start)
	if ev.End.IsZero() || dur <= 0 {
		dur = time.Hour
	}
	start := occStart.In(loc)
	return start, start.Add(dur)
}

// calendarDays counts dates from a to b; days across a DST change are not
// 24 hours long.
func calendarDays(a, b time.Time) int {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	from := time.Date(ya, ma, da, 0, 0, 0, 0, time.UTC)
	to := time.Date(yb, mb, db, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// findOverride finds the override whose RECURRENCE-ID equals occStart.
func findOverride(overrides []ParsedEvent, occStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(occStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func toEvent(ev ParsedEvent, id string, start, end time.Time) model.CalendarEvent {
	return model.CalendarEvent{
		ID:    id,
		Title: ev.Summary,
		Start: start,
		End:   end,
		Color: ev.Color,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
