package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"webcal/internal/calendar"
	"webcal/internal/config"
	"webcal/internal/grid"
	"webcal/internal/model"
	"webcal/internal/store"
)

var testNow = time.Date(2024, 12, 15, 8, 0, 0, 0, time.UTC)

// renderBody is the subset of the render model the tests inspect.
type renderBody struct {
	View   string `json:"view"`
	Title  string `json:"title"`
	Layout struct {
		Columns []struct {
			Events []struct {
				Event  model.CalendarEvent `json:"event"`
				Top    float64             `json:"top"`
				Height float64             `json:"height"`
			} `json:"events"`
		} `json:"columns"`
	} `json:"layout"`
	Editor struct {
		Open  bool   `json:"open"`
		Error string `json:"error"`
	} `json:"editor"`
}

func newTestServer(t *testing.T, view model.View, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cal := calendar.New(store.New(cfg.Palette), calendar.Options{
		Geometry: grid.DefaultGeometry(),
		Palette:  cfg.Palette,
		View:     view,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	})
	s := NewServer(cfg, cal)
	s.now = func() time.Time { return testNow }
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRender(t *testing.T, rec *httptest.ResponseRecorder) renderBody {
	t.Helper()
	var rb renderBody
	if err := json.Unmarshal(rec.Body.Bytes(), &rb); err != nil {
		t.Fatalf("decode render model: %v\n%s", err, rec.Body.String())
	}
	return rb
}

func listEvents(t *testing.T, h http.Handler) []model.CalendarEvent {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/events = %d", rec.Code)
	}
	var events []model.CalendarEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	return events
}

const standup = `{"title":"Standup","start":"2024-12-15T10:00:00Z","end":"2024-12-15T11:00:00Z"}`

func TestHealth(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, model.ViewMonth, cfg).Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health should bypass auth, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/render", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("render without credentials = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/render", nil)
	req.SetBasicAuth("admin", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("render with credentials = %d", rec.Code)
	}
}

func TestSaveEventLaysOutBlock(t *testing.T) {
	h := newTestServer(t, model.ViewDay, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/events", standup)
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d %s", rec.Code, rec.Body.String())
	}
	rb := decodeRender(t, rec)
	if len(rb.Layout.Columns) != 1 || len(rb.Layout.Columns[0].Events) != 1 {
		t.Fatalf("layout = %+v", rb.Layout)
	}
	block := rb.Layout.Columns[0].Events[0]
	if block.Top != 600 || block.Height != 60 {
		t.Fatalf("block top=%v height=%v, want 600/60", block.Top, block.Height)
	}
	if events := listEvents(t, h); len(events) != 1 || events[0].Color == "" {
		t.Fatalf("events = %+v", events)
	}
}

func TestSaveEventValidation(t *testing.T) {
	h := newTestServer(t, model.ViewDay, nil).Handler()

	body := `{"title":"Backwards","start":"2024-12-15T11:00:00Z","end":"2024-12-15T10:00:00Z"}`
	rec := do(t, h, http.MethodPost, "/api/events", body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("save = %d, want 422", rec.Code)
	}
	var er errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Field != "end" || er.Error != "end time must be after start time" {
		t.Fatalf("error = %+v", er)
	}

	rb := decodeRender(t, do(t, h, http.MethodGet, "/api/render", ""))
	if !rb.Editor.Open || rb.Editor.Error == "" {
		t.Fatalf("editor should stay open with error: %+v", rb.Editor)
	}
	if len(listEvents(t, h)) != 0 {
		t.Fatalf("invalid event stored")
	}
}

func TestBadBody(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()
	if rec := do(t, h, http.MethodPost, "/api/events", "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/navigate", `{"direction":"sideways"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad direction = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/view", `{"view":"year"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad view = %d", rec.Code)
	}
}

func TestViewRequiresName(t *testing.T) {
	h := newTestServer(t, model.ViewWeek, nil).Handler()

	for _, body := range []string{"", "{}", `{"view":null}`} {
		if rec := do(t, h, http.MethodPost, "/api/view", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q = %d, want 400", body, rec.Code)
		}
	}
	if rb := decodeRender(t, do(t, h, http.MethodGet, "/api/render", "")); rb.View != "week" {
		t.Fatalf("view changed to %q", rb.View)
	}
}

func TestOpenAndDelete(t *testing.T) {
	h := newTestServer(t, model.ViewDay, nil).Handler()

	if rec := do(t, h, http.MethodPost, "/api/events/missing/open", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("open unknown = %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/api/events", standup)
	id := listEvents(t, h)[0].ID

	rec := do(t, h, http.MethodPost, "/api/events/"+id+"/open", "")
	if rec.Code != http.StatusOK || !decodeRender(t, rec).Editor.Open {
		t.Fatalf("open = %d", rec.Code)
	}

	if rec := do(t, h, http.MethodDelete, "/api/events/"+id, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/events/"+id, ""); rec.Code != http.StatusOK {
		t.Fatalf("second delete = %d", rec.Code)
	}
	if len(listEvents(t, h)) != 0 {
		t.Fatalf("event not deleted")
	}
}

func TestNavigateAndView(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()

	rb := decodeRender(t, do(t, h, http.MethodPost, "/api/navigate", `{"direction":"next"}`))
	if rb.Title != "January 2025" {
		t.Fatalf("title = %q", rb.Title)
	}
	rb = decodeRender(t, do(t, h, http.MethodPost, "/api/today", ""))
	if rb.Title != "December 2024" {
		t.Fatalf("title after today = %q", rb.Title)
	}
	rb = decodeRender(t, do(t, h, http.MethodPost, "/api/view", `{"view":"day"}`))
	if rb.View != "day" || rb.Title != "Sunday, December 15, 2024" {
		t.Fatalf("view=%q title=%q", rb.View, rb.Title)
	}
	rb = decodeRender(t, do(t, h, http.MethodPost, "/api/select", `{"date":"2024-12-18T00:00:00Z","view":"week"}`))
	if rb.View != "week" || rb.Title != "Dec 15 – Dec 21, 2024" {
		t.Fatalf("view=%q title=%q", rb.View, rb.Title)
	}
}

func TestDragEnd(t *testing.T) {
	h := newTestServer(t, model.ViewDay, nil).Handler()
	do(t, h, http.MethodPost, "/api/events", standup)
	id := listEvents(t, h)[0].ID

	// No target: the drop is abandoned and the event stays put.
	rec := do(t, h, http.MethodPost, "/api/drag/end", `{"id":"`+id+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid drop = %d", rec.Code)
	}
	if top := decodeRender(t, rec).Layout.Columns[0].Events[0].Top; top != 600 {
		t.Fatalf("top after invalid drop = %v", top)
	}

	rec = do(t, h, http.MethodPost, "/api/drag/end", `{"id":"`+id+`","target":{"day":"2024-12-15T00:00:00Z","hour":14}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop = %d %s", rec.Code, rec.Body.String())
	}
	if top := decodeRender(t, rec).Layout.Columns[0].Events[0].Top; top != 840 {
		t.Fatalf("top after drop = %v, want 840", top)
	}
}

func TestDragInMonthView(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()
	do(t, h, http.MethodPost, "/api/events", standup)
	id := listEvents(t, h)[0].ID

	if rec := do(t, h, http.MethodPost, "/api/drag/start", `{"id":"`+id+`"}`); rec.Code != http.StatusConflict {
		t.Fatalf("month drag start = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/drag/over", `{}`); rec.Code != http.StatusConflict {
		t.Fatalf("drag over while idle = %d", rec.Code)
	}
}

func TestResize(t *testing.T) {
	h := newTestServer(t, model.ViewDay, nil).Handler()
	do(t, h, http.MethodPost, "/api/events", standup)
	id := listEvents(t, h)[0].ID

	if rec := do(t, h, http.MethodPost, "/api/resize/start", `{"id":"`+id+`","edge":"middle"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad edge = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/resize/start", `{"id":"`+id+`","edge":"end"}`); rec.Code != http.StatusOK {
		t.Fatalf("resize start = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/resize/end", `{"id":"`+id+`","target":{"day":"2024-12-15T00:00:00Z","hour":12}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("resize end = %d %s", rec.Code, rec.Body.String())
	}
	if height := decodeRender(t, rec).Layout.Columns[0].Events[0].Height; height != 180 {
		t.Fatalf("height = %v, want 180", height)
	}
}

func TestKeys(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/keys", `{"key":"w","viewport_width":1024}`)
	var resp struct {
		Action string     `json:"action"`
		Model  renderBody `json:"model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Action != "week" || resp.Model.View != "week" {
		t.Fatalf("keys response = %+v", resp)
	}

	rec = do(t, h, http.MethodPost, "/api/keys", `{"key":"d","viewport_width":500}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Action != "none" || resp.Model.View != "week" {
		t.Fatalf("narrow viewport response = %+v", resp)
	}
}

func TestCellClickAndClose(t *testing.T) {
	h := newTestServer(t, model.ViewWeek, nil).Handler()

	rb := decodeRender(t, do(t, h, http.MethodPost, "/api/cells/click", `{"time":"2024-12-17T09:00:00Z"}`))
	if !rb.Editor.Open {
		t.Fatalf("editor not opened")
	}
	rb = decodeRender(t, do(t, h, http.MethodPost, "/api/editor/close", ""))
	if rb.Editor.Open {
		t.Fatalf("editor not closed")
	}
	if rec := do(t, h, http.MethodPost, "/api/cells/click", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("click without time = %d", rec.Code)
	}
}

func TestPage(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()
	do(t, h, http.MethodPost, "/api/events", standup)

	rec := do(t, h, http.MethodGet, "/calendar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("page = %d", rec.Code)
	}
	page := rec.Body.String()
	for _, want := range []string{`data-ready="true"`, "December 2024", "Standup"} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	do(t, h, http.MethodPost, "/api/view", `{"view":"week"}`)
	page = do(t, h, http.MethodGet, "/calendar", "").Body.String()
	if !strings.Contains(page, `class="now"`) || !strings.Contains(page, "Standup") {
		t.Fatalf("week page missing now line or event")
	}
}

func TestExportAndImport(t *testing.T) {
	h := newTestServer(t, model.ViewMonth, nil).Handler()
	do(t, h, http.MethodPost, "/api/events", standup)

	rec := do(t, h, http.MethodGet, "/calendar.ics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SUMMARY:Standup") {
		t.Fatalf("export = %d\n%s", rec.Code, rec.Body.String())
	}
	exported := rec.Body.String()

	// The exported feed imports cleanly into a fresh calendar.
	other := newTestServer(t, model.ViewMonth, nil).Handler()
	if rec := do(t, other, http.MethodPost, "/api/import?name=team", exported); rec.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rec.Code, rec.Body.String())
	}
	events := listEvents(t, other)
	if len(events) != 1 || events[0].Title != "Standup" {
		t.Fatalf("imported = %+v", events)
	}

	if rec := do(t, other, http.MethodPost, "/api/import", "not a calendar"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad import = %d", rec.Code)
	}
}
