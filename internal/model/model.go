package model

import (
	"fmt"
	"strings"
	"time"
)

// CalendarEvent is a single event held by the store. Start and End carry
// their own location; geometry reads wall-clock fields from them.
type CalendarEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color,omitempty"`
}

// Duration is End - Start.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Validate checks the end-after-start invariant.
func (e CalendarEvent) Validate() error {
	return validateSpan(e.Start, e.End)
}

// EventInput is what the edit form submits. An empty ID means "create".
type EventInput struct {
	ID    string    `json:"id,omitempty"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color,omitempty"`
}

func (in EventInput) Validate() error {
	return validateSpan(in.Start, in.End)
}

// Event converts the input into an event with the given id.
func (in EventInput) Event(id string) CalendarEvent {
	return CalendarEvent{
		ID:    id,
		Title: in.Title,
		Start: in.Start,
		End:   in.End,
		Color: in.Color,
	}
}

func validateSpan(start, end time.Time) error {
	if start.IsZero() {
		return &ValidationError{Field: "start", Message: "start time is required"}
	}
	if end.IsZero() {
		return &ValidationError{Field: "end", Message: "end time is required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "end", Message: "end time must be after start time"}
	}
	return nil
}

// View is the closed set of calendar views.
type View int

const (
	ViewMonth View = iota
	ViewWeek
	ViewDay
)

func (v View) String() string {
	switch v {
	case ViewMonth:
		return "month"
	case ViewWeek:
		return "week"
	case ViewDay:
		return "day"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// SupportsDrag reports whether events can be dragged in this view.
// Month view is click-only.
func (v View) SupportsDrag() bool {
	return v == ViewWeek || v == ViewDay
}

func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseView accepts "month", "week" or "day" in any case.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month":
		return ViewMonth, nil
	case "week":
		return ViewWeek, nil
	case "day":
		return ViewDay, nil
	default:
		return ViewMonth, fmt.Errorf("unknown view %q", s)
	}
}

// Direction is a navigation step.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "previous", "back":
		return Prev, nil
	case "next", "forward":
		return Next, nil
	default:
		return Next, fmt.Errorf("unknown direction %q", s)
	}
}

// DayEvent is an event positioned inside a day column. Top and Height are
// pixels; Left and Width are percentages of the column width.
type DayEvent struct {
	Event  CalendarEvent `json:"event"`
	Top    float64       `json:"top"`
	Height float64       `json:"height"`
	Left   float64       `json:"left"`
	Width  float64       `json:"width"`
}

// TimeSlot is one hour row of a day; it doubles as a drop target.
type TimeSlot struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Label  string `json:"label"`
}
