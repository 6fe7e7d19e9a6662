// Package drag moves and resizes events dropped onto hour slots.
package drag

import (
	"fmt"
	"time"

	"webcal/internal/grid"
	"webcal/internal/model"
)

type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Edge selects which end of an event a resize moves.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

func (e Edge) String() string {
	if e == EdgeStart {
		return "start"
	}
	return "end"
}

func ParseEdge(s string) (Edge, error) {
	switch s {
	case "start", "top":
		return EdgeStart, nil
	case "end", "bottom":
		return EdgeEnd, nil
	default:
		return EdgeEnd, fmt.Errorf("unknown resize edge %q", s)
	}
}

// Target is a drop target: one hour slot of one day.
type Target struct {
	Day  time.Time `json:"day"`
	Hour int       `json:"hour"`
}

func (t Target) Valid() bool {
	return !t.Day.IsZero() && t.Hour >= 0 && t.Hour < grid.HoursPerDay
}

// Start is the slot's first instant.
func (t Target) Start() time.Time {
	return grid.AtHour(t.Day, t.Hour)
}

// End is the instant the slot ends.
func (t Target) End() time.Time {
	return t.Start().Add(time.Hour)
}

// Move places ev at the start of target, keeping its exact duration.
func Move(ev model.CalendarEvent, target Target) model.CalendarEvent {
	d := ev.Duration()
	ev.Start = target.Start()
	ev.End = ev.Start.Add(d)
	return ev
}

// Resize moves one edge of ev onto target: the start edge snaps to the
// slot start, the end edge to the slot end. The result must still end
// after it starts.
func Resize(ev model.CalendarEvent, edge Edge, target Target) (model.CalendarEvent, error) {
	switch edge {
	case EdgeStart:
		ev.Start = target.Start()
	default:
		ev.End = target.End()
	}
	if err := ev.Validate(); err != nil {
		return model.CalendarEvent{}, err
	}
	return ev, nil
}

// Store is the part of the event store a Rescheduler needs.
type Store interface {
	Get(id string) (model.CalendarEvent, error)
	Update(ev model.CalendarEvent) error
}

// Rescheduler tracks one drag or resize gesture at a time:
// Idle -> Dragging|Resizing -> Idle. Only Drop mutates the store.
type Rescheduler struct {
	store   Store
	state   State
	eventID string
	edge    Edge
	over    *Target
}

func New(store Store) *Rescheduler {
	return &Rescheduler{store: store}
}

func (r *Rescheduler) State() State {
	return r.state
}

func (r *Rescheduler) EventID() string {
	return r.eventID
}

func (r *Rescheduler) Edge() Edge {
	return r.edge
}

// Over is the currently highlighted target, or nil.
func (r *Rescheduler) Over() *Target {
	if r.over == nil {
		return nil
	}
	t := *r.over
	return &t
}

// Start begins moving the event id. A gesture already in progress is
// abandoned.
func (r *Rescheduler) Start(id string) error {
	return r.begin(id, Dragging, EdgeStart)
}

// StartResize begins moving one edge of the event id.
func (r *Rescheduler) StartResize(id string, edge Edge) error {
	return r.begin(id, Resizing, edge)
}

func (r *Rescheduler) begin(id string, state State, edge Edge) error {
	r.Cancel()
	if _, err := r.store.Get(id); err != nil {
		return err
	}
	r.state = state
	r.eventID = id
	r.edge = edge
	return nil
}

// DragOver updates the highlighted target. A nil or invalid target clears it.
func (r *Rescheduler) DragOver(target *Target) error {
	if r.state == Idle {
		return model.ErrNotDragging
	}
	if target == nil || !target.Valid() {
		r.over = nil
		return nil
	}
	t := *target
	r.over = &t
	return nil
}

// Drop ends the gesture. A nil or invalid target aborts with ErrInvalidDrop
// and leaves the event unchanged. The Rescheduler is Idle afterwards in
// every case.
func (r *Rescheduler) Drop(target *Target) (model.CalendarEvent, error) {
	if r.state == Idle {
		return model.CalendarEvent{}, model.ErrNotDragging
	}
	state, id, edge := r.state, r.eventID, r.edge
	r.Cancel()

	if target == nil || !target.Valid() {
		return model.CalendarEvent{}, model.ErrInvalidDrop
	}

	ev, err := r.store.Get(id)
	if err != nil {
		return model.CalendarEvent{}, err
	}

	var updated model.CalendarEvent
	if state == Resizing {
		updated, err = Resize(ev, edge, *target)
		if err != nil {
			return model.CalendarEvent{}, err
		}
	} else {
		updated = Move(ev, *target)
	}

	if err := r.store.Update(updated); err != nil {
		return model.CalendarEvent{}, err
	}
	return updated, nil
}

// Cancel returns to Idle without touching the store.
func (r *Rescheduler) Cancel() {
	r.state = Idle
	r.eventID = ""
	r.edge = EdgeStart
	r.over = nil
}
