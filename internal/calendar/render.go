package calendar

import (
	"time"

	"webcal/internal/drag"
	"webcal/internal/grid"
	"webcal/internal/model"
	"webcal/internal/nav"
)

// RenderModel is everything the browser needs to draw the calendar.
type RenderModel struct {
	View     model.View   `json:"view"`
	Anchor   time.Time    `json:"anchor"`
	Selected time.Time    `json:"selected"`
	Title    string       `json:"title"`
	Now      time.Time    `json:"now"`
	ShowNow  bool         `json:"show_now"`
	Geometry GeometryInfo `json:"geometry"`
	Layout   grid.Layout  `json:"layout"`
	Mini     MiniCalendar `json:"mini"`
	Editor   Editor       `json:"editor"`
	Drag     DragInfo     `json:"drag"`
}

type GeometryInfo struct {
	PxPerHour    float64 `json:"px_per_hour"`
	MinHeightPx  float64 `json:"min_height_px"`
	ColumnHeight float64 `json:"column_height"`
	WeekStart    string  `json:"week_start"`
}

type MiniCalendar struct {
	Month time.Time      `json:"month"`
	Title string         `json:"title"`
	Days  []grid.MiniDay `json:"days"`
}

type DragInfo struct {
	State   drag.State   `json:"state"`
	EventID string       `json:"event_id,omitempty"`
	Edge    string       `json:"edge,omitempty"`
	Over    *drag.Target `json:"over,omitempty"`
}

// Render derives the full render model from the current state.
func (c *Calendar) Render() RenderModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked()
}

func (c *Calendar) renderLocked() RenderModel {
	events := c.store.List()
	anchor := c.nav.Anchor()
	view := c.nav.View()

	month := grid.StartOfMonth(anchor)
	rm := RenderModel{
		View:     view,
		Anchor:   anchor,
		Selected: c.nav.Selected(),
		Title:    c.nav.Title(),
		Now:      c.now,
		ShowNow:  c.showsNowLocked(),
		Geometry: GeometryInfo{
			PxPerHour:    c.geo.PxPerHour,
			MinHeightPx:  c.geo.MinHeightPx,
			ColumnHeight: c.geo.ColumnHeight(),
			WeekStart:    c.geo.WeekStart.String(),
		},
		Layout: grid.Build(view, anchor, c.now, events, c.geo),
		Mini: MiniCalendar{
			Month: month,
			Title: nav.Title(model.ViewMonth, month, c.geo.WeekStart),
			Days:  grid.MiniMonth(month, c.nav.Selected(), c.now, events, c.geo.WeekStart),
		},
		Editor: c.editor,
		Drag: DragInfo{
			State:   c.drag.State(),
			EventID: c.drag.EventID(),
			Over:    c.drag.Over(),
		},
	}
	if c.drag.State() == drag.Resizing {
		rm.Drag.Edge = c.drag.Edge().String()
	}
	return rm
}
