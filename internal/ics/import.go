package ics

import (
	"context"
	"fmt"
	"time"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

// Window returns an expansion window of horizonDays around now.
func Window(now time.Time, horizonDays int, loc *time.Location) ExpandConfig {
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return ExpandConfig{
		Location:   loc,
		RangeStart: now.AddDate(0, 0, -horizonDays),
		RangeEnd:   now.AddDate(0, 0, horizonDays),
	}
}

// Decode parses and expands one ICS payload.
func Decode(src Source, body []byte, cfg ExpandConfig) ([]model.CalendarEvent, error) {
	parsed, err := ParseICS(src, body)
	if err != nil {
		return nil, err
	}
	return Expand(parsed, cfg)
}

// ImportAll loads every source. Failing sources are reported in the error
// slice and do not stop the rest.
func ImportAll(ctx context.Context, f *Fetcher, sources []Source, cfg ExpandConfig) ([]model.CalendarEvent, []error) {
	var (
		out  []model.CalendarEvent
		errs []error
	)
	for _, src := range sources {
		body, err := f.Load(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", src, err))
			continue
		}
		events, err := Decode(src, body, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", src, err))
			continue
		}
		appLog.Info("ics source imported", "id", src.ID, "name", src.Name, "events", len(events))
		out = append(out, events...)
	}
	return out, errs
}
