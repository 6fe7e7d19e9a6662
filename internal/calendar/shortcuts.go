package calendar

import "strings"

// KeyPress is a key event reported by the browser.
type KeyPress struct {
	Key           string `json:"key"`
	Ctrl          bool   `json:"ctrl"`
	Meta          bool   `json:"meta"`
	Alt           bool   `json:"alt"`
	InInput       bool   `json:"in_input"`
	ViewportWidth int    `json:"viewport_width"`
}

type Action int

const (
	ActionNone Action = iota
	ActionMonth
	ActionWeek
	ActionDay
	ActionToday
	ActionPrev
	ActionNext
)

func (a Action) String() string {
	switch a {
	case ActionMonth:
		return "month"
	case ActionWeek:
		return "week"
	case ActionDay:
		return "day"
	case ActionToday:
		return "today"
	case ActionPrev:
		return "prev"
	case ActionNext:
		return "next"
	default:
		return "none"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ShortcutFor maps a key press to an action. Shortcuts are only live on
// desktop-sized viewports, never while typing into a form field, and never
// with a modifier held.
func ShortcutFor(kp KeyPress, desktopMinWidth int) Action {
	if kp.ViewportWidth < desktopMinWidth {
		return ActionNone
	}
	if kp.InInput || kp.Ctrl || kp.Meta || kp.Alt {
		return ActionNone
	}
	switch strings.ToLower(kp.Key) {
	case "m":
		return ActionMonth
	case "w":
		return ActionWeek
	case "d":
		return ActionDay
	case "t":
		return ActionToday
	case "arrowleft", "left":
		return ActionPrev
	case "arrowright", "right":
		return ActionNext
	default:
		return ActionNone
	}
}
