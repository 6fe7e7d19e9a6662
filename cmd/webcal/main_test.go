package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"webcal/internal/config"
	"webcal/internal/model"
	"webcal/internal/web"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:review
DTSTAMP:20241201T000000Z
DTSTART:20241217T150000Z
DTEND:20241217T160000Z
SUMMARY:Review
END:VEVENT
END:VCALENDAR
`

func TestNewCalendarImportsSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "team.ics")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(feed, "\n", "\r\n")), 0o600); err != nil {
		t.Fatalf("write feed: %v", err)
	}

	conf := config.DefaultConfig()
	conf.Timezone = "UTC"
	conf.DefaultView = "week"
	conf.Import = []config.ImportConfig{
		{ID: "team", Name: "Team", Path: path},
		{ID: "missing", Path: filepath.Join(dir, "missing.ics")},
	}

	now := time.Date(2024, 12, 15, 8, 0, 0, 0, time.UTC)
	cal, err := newCalendar(context.Background(), conf, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newCalendar: %v", err)
	}

	events := cal.Store().List()
	if len(events) != 1 || events[0].ID != "review" || events[0].Color == "" {
		t.Fatalf("events = %+v", events)
	}

	rm := cal.Render()
	if rm.View != model.ViewWeek || len(rm.Layout.Columns) != 7 {
		t.Fatalf("view=%v columns=%d", rm.View, len(rm.Layout.Columns))
	}
	if top := rm.Layout.Columns[2].Events[0].Top; top != 900 {
		t.Fatalf("imported block top = %v, want 900", top)
	}
}

func TestStartTickerRejectsBadSpec(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Timezone = "UTC"
	cal, err := newCalendar(context.Background(), conf, time.Now)
	if err != nil {
		t.Fatalf("newCalendar: %v", err)
	}

	conf.NowRefresh = "not a cron spec"
	if _, err := startTicker(conf, cal); err == nil {
		t.Fatalf("expected error for bad cron spec")
	}

	conf.NowRefresh = "@every 1m"
	c, err := startTicker(conf, cal)
	if err != nil {
		t.Fatalf("startTicker: %v", err)
	}
	c.Stop()
}

func TestSnapshotOptionsCarryBasicAuth(t *testing.T) {
	conf := config.DefaultConfig()
	conf.Timezone = "UTC"
	cal, err := newCalendar(context.Background(), conf, time.Now)
	if err != nil {
		t.Fatalf("newCalendar: %v", err)
	}

	opts := snapshotOptions(conf, "127.0.0.1:9000", "out.png")
	if opts.URL != "http://127.0.0.1:9000/calendar" || opts.OutputPath != "out.png" {
		t.Fatalf("options = %+v", opts)
	}
	if opts.Username != "" || opts.Password != "" {
		t.Fatalf("credentials set without basic auth: %+v", opts)
	}

	conf.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	opts = snapshotOptions(conf, "127.0.0.1:9000", "out.png")
	if opts.Username != "admin" || opts.Password != "secret" {
		t.Fatalf("credentials = %q/%q", opts.Username, opts.Password)
	}

	// The protected page must accept what the snapshot sends.
	h := web.NewServer(conf, cal).Handler()
	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
	req = httptest.NewRequest(http.MethodGet, "/calendar", nil)
	req.SetBasicAuth(opts.Username, opts.Password)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized status = %d, want 200", rec.Code)
	}
}
