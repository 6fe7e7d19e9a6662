package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"webcal/internal/model"
)

const productID = "-//webcal//webcal//EN"

// Export renders events as a VCALENDAR document.
func Export(events []model.CalendarEvent, name string, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.Color != "" {
			ve.SetProperty(propertyColor, ev.Color)
		}
	}
	return cal.Serialize()
}
