// Package nav keeps the active view and the anchor date it displays.
package nav

import (
	"time"

	"webcal/internal/grid"
	"webcal/internal/model"
)

// Navigator holds {anchor, view} plus the selected date of the mini
// calendar. It does no locking; the owner serializes access.
type Navigator struct {
	anchor    time.Time
	selected  time.Time
	view      model.View
	weekStart time.Weekday
}

func New(view model.View, anchor time.Time, weekStart time.Weekday) *Navigator {
	return &Navigator{
		anchor:    anchor,
		selected:  anchor,
		view:      view,
		weekStart: weekStart,
	}
}

func (n *Navigator) Anchor() time.Time { return n.anchor }

func (n *Navigator) Selected() time.Time { return n.selected }

func (n *Navigator) View() model.View { return n.view }

func (n *Navigator) WeekStart() time.Weekday { return n.weekStart }

// Step moves t one view-dependent unit in dir.
func Step(view model.View, t time.Time, dir model.Direction) time.Time {
	switch view {
	case model.ViewWeek:
		return t.AddDate(0, 0, 7*int(dir))
	case model.ViewDay:
		return t.AddDate(0, 0, int(dir))
	default:
		return grid.AddMonths(t, int(dir))
	}
}

// Navigate moves the anchor one month, week or day.
func (n *Navigator) Navigate(dir model.Direction) time.Time {
	n.anchor = Step(n.view, n.anchor, dir)
	return n.anchor
}

// SetView switches views; the anchor is left alone.
func (n *Navigator) SetView(v model.View) {
	n.view = v
}

// Today moves anchor and selection to now regardless of view.
func (n *Navigator) Today(now time.Time) {
	n.anchor = now
	n.selected = now
}

// Select marks d as the selected date without moving the anchor.
func (n *Navigator) Select(d time.Time) {
	n.selected = d
}

// SelectDate selects d and normalizes the anchor to the start of the
// period d belongs to in the current view.
func (n *Navigator) SelectDate(d time.Time) {
	n.selected = d
	switch n.view {
	case model.ViewMonth:
		n.anchor = grid.StartOfMonth(d)
	case model.ViewWeek:
		n.anchor = grid.StartOfWeek(d, n.weekStart)
	default:
		n.anchor = d
	}
}

// SelectDateIn switches to view and selects d in it, e.g. picking a day in
// month view and jumping to the day view.
func (n *Navigator) SelectDateIn(view model.View, d time.Time) {
	n.view = view
	n.SelectDate(d)
}

// MonthStep moves the anchor by one month regardless of view (mini
// calendar arrows).
func (n *Navigator) MonthStep(dir model.Direction) time.Time {
	n.anchor = grid.AddMonths(n.anchor, int(dir))
	return n.anchor
}

// Title is the human label of the displayed period.
func (n *Navigator) Title() string {
	return Title(n.view, n.anchor, n.weekStart)
}

// Title formats the period label for view at anchor.
func Title(view model.View, anchor time.Time, weekStart time.Weekday) string {
	switch view {
	case model.ViewWeek:
		start := grid.StartOfWeek(anchor, weekStart)
		end := start.AddDate(0, 0, 6)
		if start.Year() != end.Year() {
			return start.Format("Jan 2, 2006") + " – " + end.Format("Jan 2, 2006")
		}
		return start.Format("Jan 2") + " – " + end.Format("Jan 2, 2006")
	case model.ViewDay:
		return anchor.Format("Monday, January 2, 2006")
	default:
		return anchor.Format("January 2006")
	}
}
