// Package calendar is the controller behind the calendar UI. The browser
// reports user actions through its methods and redraws from Render.
package calendar

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"webcal/internal/drag"
	"webcal/internal/grid"
	appLog "webcal/internal/log"
	"webcal/internal/model"
	"webcal/internal/nav"
	"webcal/internal/store"
)

// Options configures a Calendar. Zero values fall back to defaults.
type Options struct {
	Geometry        grid.Geometry
	Palette         []string
	View            model.View
	Location        *time.Location
	Now             func() time.Time
	DesktopMinWidth int
}

// Editor is the state of the create/edit form.
type Editor struct {
	Open  bool             `json:"open"`
	Mode  string           `json:"mode,omitempty"` // "create" or "edit"
	Draft model.EventInput `json:"draft"`
	Error string           `json:"error,omitempty"`
}

// Calendar serializes every UI action through one mutex, so it behaves as
// a single actor even when driven by concurrent HTTP requests.
type Calendar struct {
	mu sync.Mutex

	store  *store.Store
	nav    *nav.Navigator
	drag   *drag.Rescheduler
	editor Editor

	geo             grid.Geometry
	palette         []string
	loc             *time.Location
	clock           func() time.Time
	now             time.Time
	desktopMinWidth int
}

func New(s *store.Store, opts Options) *Calendar {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DesktopMinWidth <= 0 {
		opts.DesktopMinWidth = 768
	}
	geo := opts.Geometry.Normalize()
	now := opts.Now().In(opts.Location)

	return &Calendar{
		store:           s,
		nav:             nav.New(opts.View, now, geo.WeekStart),
		drag:            drag.New(s),
		geo:             geo,
		palette:         append([]string(nil), opts.Palette...),
		loc:             opts.Location,
		clock:           opts.Now,
		now:             now,
		desktopMinWidth: opts.DesktopMinWidth,
	}
}

// Store exposes the underlying event store for import/export.
func (c *Calendar) Store() *store.Store {
	return c.store
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// refreshNowLocked samples the clock; called at the start of every action.
func (c *Calendar) refreshNowLocked() {
	c.now = c.clock().In(c.loc)
}

func (c *Calendar) Navigate(dir model.Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	anchor := c.nav.Navigate(dir)
	appLog.Debug("navigate", "direction", dir, "view", c.nav.View(), "anchor", anchor)
}

func (c *Calendar) SelectView(v model.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	if v != c.nav.View() {
		c.drag.Cancel()
	}
	c.nav.SetView(v)
	appLog.Debug("select view", "view", v)
}

func (c *Calendar) GoToToday() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	c.nav.Today(c.now)
	appLog.Debug("go to today", "anchor", c.now)
}

// SelectDate picks a date (mini calendar); the anchor snaps to the start
// of the containing period of the current view.
func (c *Calendar) SelectDate(d time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	c.nav.SelectDate(d.In(c.loc))
}

// SelectDateIn switches to view and selects d there.
func (c *Calendar) SelectDateIn(view model.View, d time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	c.drag.Cancel()
	c.nav.SelectDateIn(view, d.In(c.loc))
}

// ChangeMiniMonth moves the displayed month by one, whatever the view.
func (c *Calendar) ChangeMiniMonth(dir model.Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()
	c.nav.MonthStep(dir)
}

// ClickCell opens the editor for a new event starting at t and lasting one
// hour. Month cells pass midnight; hour slots pass the slot start.
func (c *Calendar) ClickCell(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	t = t.In(c.loc)
	c.nav.Select(t)
	c.editor = Editor{
		Open: true,
		Mode: "create",
		Draft: model.EventInput{
			Start: t,
			End:   t.Add(time.Hour),
			Color: store.PaletteColor(c.palette, 0),
		},
	}
}

// ClickEvent opens the editor on an existing event.
func (c *Calendar) ClickEvent(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	ev, err := c.store.Get(id)
	if err != nil {
		return err
	}
	c.nav.Select(ev.Start.In(c.loc))
	c.editor = Editor{
		Open: true,
		Mode: "edit",
		Draft: model.EventInput{
			ID:    ev.ID,
			Title: ev.Title,
			Start: ev.Start,
			End:   ev.End,
			Color: ev.Color,
		},
	}
	return nil
}

func (c *Calendar) CloseEditor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = Editor{}
}

// SaveEvent creates (empty ID) or updates an event. On failure the editor
// stays open showing the error; on success it closes.
func (c *Calendar) SaveEvent(in model.EventInput) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	ev, err := c.saveLocked(in)
	if err != nil {
		mode := "create"
		if in.ID != "" {
			mode = "edit"
		}
		c.editor = Editor{Open: true, Mode: mode, Draft: in, Error: err.Error()}
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			c.editor.Error = ve.Message
		}
		appLog.Debug("save rejected", "id", in.ID, "reason", err.Error())
		return model.CalendarEvent{}, err
	}
	c.editor = Editor{}
	appLog.Debug("event saved", "id", ev.ID, "title", ev.Title, "start", ev.Start, "end", ev.End)
	return ev, nil
}

func (c *Calendar) saveLocked(in model.EventInput) (model.CalendarEvent, error) {
	if err := in.Validate(); err != nil {
		return model.CalendarEvent{}, err
	}
	if in.ID == "" {
		return c.store.Add(in), nil
	}

	existing, err := c.store.Get(in.ID)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	ev := in.Event(in.ID)
	if ev.Color == "" {
		ev.Color = existing.Color
	}
	if err := c.store.Update(ev); err != nil {
		return model.CalendarEvent{}, err
	}
	return ev, nil
}

// DeleteEvent removes id; an unknown id is silently ignored.
func (c *Calendar) DeleteEvent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	c.store.Remove(id)
	if c.drag.EventID() == id {
		c.drag.Cancel()
	}
	c.editor = Editor{}
	appLog.Debug("event deleted", "id", id)
}

// DragStart begins moving an event. Month view has no drag and drop.
func (c *Calendar) DragStart(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.nav.View().SupportsDrag() {
		return model.ErrMonthDrag
	}
	return c.drag.Start(id)
}

// ResizeStart begins moving one edge of an event.
func (c *Calendar) ResizeStart(id string, edge drag.Edge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.nav.View().SupportsDrag() {
		return model.ErrMonthDrag
	}
	return c.drag.StartResize(id, edge)
}

// DragOver updates the drop highlight only.
func (c *Calendar) DragOver(target *drag.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.DragOver(c.localTarget(target))
}

// DragEnd drops event id on target. When no drag for id is in progress one
// is started implicitly. A nil target aborts with model.ErrInvalidDrop.
func (c *Calendar) DragEnd(id string, target *drag.Target) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	if !c.nav.View().SupportsDrag() {
		return model.CalendarEvent{}, model.ErrMonthDrag
	}
	if c.drag.State() != drag.Dragging || c.drag.EventID() != id {
		if err := c.drag.Start(id); err != nil {
			return model.CalendarEvent{}, err
		}
	}
	return c.dropLocked(target)
}

// ResizeEnd finishes a resize of id started with ResizeStart.
func (c *Calendar) ResizeEnd(id string, target *drag.Target) (model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshNowLocked()

	if c.drag.State() != drag.Resizing || c.drag.EventID() != id {
		return model.CalendarEvent{}, fmt.Errorf("resize %q: %w", id, model.ErrNotDragging)
	}
	return c.dropLocked(target)
}

func (c *Calendar) dropLocked(target *drag.Target) (model.CalendarEvent, error) {
	id := c.drag.EventID()
	ev, err := c.drag.Drop(c.localTarget(target))
	if err != nil {
		if errors.Is(err, model.ErrInvalidDrop) {
			appLog.Debug("drop aborted", "id", id)
		}
		return model.CalendarEvent{}, err
	}
	appLog.Debug("event rescheduled", "id", ev.ID, "start", ev.Start, "end", ev.End)
	return ev, nil
}

// CancelDrag abandons any gesture in progress.
func (c *Calendar) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.Cancel()
}

// localTarget pins the target's calendar date, as sent, to the configured
// zone. Converting the instant first would move a UTC midnight to the
// previous day west of Greenwich.
func (c *Calendar) localTarget(t *drag.Target) *drag.Target {
	if t == nil {
		return nil
	}
	lt := *t
	if !lt.Day.IsZero() {
		y, m, d := lt.Day.Date()
		lt.Day = time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	}
	return &lt
}

// Tick records the current time for the now indicator. It reports whether
// the active view currently shows an indicator.
func (c *Calendar) Tick(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.In(c.loc)
	return c.showsNowLocked()
}

func (c *Calendar) showsNowLocked() bool {
	view := c.nav.View()
	if !view.SupportsDrag() {
		return false
	}
	l := grid.Build(view, c.nav.Anchor(), c.now, nil, c.geo)
	return !c.now.Before(l.RangeStart) && c.now.Before(l.RangeEnd)
}

// HandleKey applies a keyboard shortcut. It reports the action taken.
func (c *Calendar) HandleKey(kp KeyPress) Action {
	action := ShortcutFor(kp, c.desktopMinWidth)
	switch action {
	case ActionMonth:
		c.SelectView(model.ViewMonth)
	case ActionWeek:
		c.SelectView(model.ViewWeek)
	case ActionDay:
		c.SelectView(model.ViewDay)
	case ActionToday:
		c.GoToToday()
	case ActionPrev:
		c.Navigate(model.Prev)
	case ActionNext:
		c.Navigate(model.Next)
	}
	return action
}
