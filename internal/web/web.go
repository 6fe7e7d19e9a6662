package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"time"

	"webcal/internal/calendar"
	"webcal/internal/config"
	"webcal/internal/drag"
	"webcal/internal/grid"
	"webcal/internal/ics"
	appLog "webcal/internal/log"
	"webcal/internal/model"
)

const maxRequestBytes = 1 << 20

//go:embed templates/calendar.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"rows":  weekRows,
	"deref": func(f *float64) float64 { return *f },
}).ParseFS(templatesFS, "templates/calendar.html"))

// Server exposes the calendar controller over HTTP. Every mutating route
// answers with the fresh render model.
type Server struct {
	cfg *config.Config
	cal *calendar.Calendar
	mux *http.ServeMux

	now func() time.Time
}

func NewServer(cfg *config.Config, cal *calendar.Calendar) *Server {
	s := &Server{
		cfg: cfg,
		cal: cal,
		mux: http.NewServeMux(),
		now: time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuthEnabled()
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="webcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /calendar", s.handlePage)
	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)

	s.mux.HandleFunc("GET /api/render", s.handleRender)
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleSaveEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/open", s.handleOpenEvent)

	s.mux.HandleFunc("POST /api/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/today", s.handleToday)
	s.mux.HandleFunc("POST /api/select", s.handleSelect)
	s.mux.HandleFunc("POST /api/mini", s.handleMini)
	s.mux.HandleFunc("POST /api/cells/click", s.handleCellClick)
	s.mux.HandleFunc("POST /api/editor/close", s.handleEditorClose)

	s.mux.HandleFunc("POST /api/drag/start", s.handleDragStart)
	s.mux.HandleFunc("POST /api/drag/over", s.handleDragOver)
	s.mux.HandleFunc("POST /api/drag/end", s.handleDragEnd)
	s.mux.HandleFunc("POST /api/resize/start", s.handleResizeStart)
	s.mux.HandleFunc("POST /api/resize/end", s.handleResizeEnd)

	s.mux.HandleFunc("POST /api/keys", s.handleKeys)
	s.mux.HandleFunc("POST /api/import", s.handleImport)

	s.mux.Handle("GET /{$}", http.RedirectHandler("/calendar", http.StatusFound))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, s.cal.Render()); err != nil {
		appLog.Error("failed to render calendar page", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = io.WriteString(w, ics.Export(s.cal.Store().List(), "webcal", s.now()))
}

func (s *Server) handleRender(w http.ResponseWriter, _ *http.Request) {
	s.writeRender(w)
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cal.Store().List())
}

func (s *Server) handleSaveEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if _, err := s.cal.SaveEvent(in); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	s.cal.DeleteEvent(r.PathValue("id"))
	s.writeRender(w)
}

func (s *Server) handleOpenEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.cal.ClickEvent(r.PathValue("id")); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

type directionRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	dir, ok := decodeDirection(w, r)
	if !ok {
		return
	}
	s.cal.Navigate(dir)
	s.writeRender(w)
}

func (s *Server) handleMini(w http.ResponseWriter, r *http.Request) {
	dir, ok := decodeDirection(w, r)
	if !ok {
		return
	}
	s.cal.ChangeMiniMonth(dir)
	s.writeRender(w)
}

func decodeDirection(w http.ResponseWriter, r *http.Request) (model.Direction, bool) {
	var req directionRequest
	if !decodeJSON(w, r, &req) {
		return 0, false
	}
	dir, err := model.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return dir, true
}

type viewRequest struct {
	View *model.View `json:"view"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.View == nil {
		writeError(w, http.StatusBadRequest, "view is required")
		return
	}
	s.cal.SelectView(*req.View)
	s.writeRender(w)
}

func (s *Server) handleToday(w http.ResponseWriter, _ *http.Request) {
	s.cal.GoToToday()
	s.writeRender(w)
}

type selectRequest struct {
	Date time.Time `json:"date"`
	// View, when set, switches to that view around Date.
	View *model.View `json:"view,omitempty"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	if req.View != nil {
		s.cal.SelectDateIn(*req.View, req.Date)
	} else {
		s.cal.SelectDate(req.Date)
	}
	s.writeRender(w)
}

type cellClickRequest struct {
	Time time.Time `json:"time"`
}

func (s *Server) handleCellClick(w http.ResponseWriter, r *http.Request) {
	var req cellClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Time.IsZero() {
		writeError(w, http.StatusBadRequest, "time is required")
		return
	}
	s.cal.ClickCell(req.Time)
	s.writeRender(w)
}

func (s *Server) handleEditorClose(w http.ResponseWriter, _ *http.Request) {
	s.cal.CloseEditor()
	s.writeRender(w)
}

type dragRequest struct {
	ID     string       `json:"id"`
	Edge   string       `json:"edge,omitempty"`
	Target *drag.Target `json:"target,omitempty"`
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.cal.DragStart(req.ID); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

func (s *Server) handleDragOver(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.cal.DragOver(req.Target); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.cal.DragEnd(req.ID, req.Target); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

func (s *Server) handleResizeStart(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edge, err := drag.ParseEdge(req.Edge)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.cal.ResizeStart(req.ID, edge); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

func (s *Server) handleResizeEnd(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.cal.ResizeEnd(req.ID, req.Target); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	s.writeRender(w)
}

type keysResponse struct {
	Action calendar.Action      `json:"action"`
	Model  calendar.RenderModel `json:"model"`
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	var kp calendar.KeyPress
	if !decodeJSON(w, r, &kp) {
		return
	}
	action := s.cal.HandleKey(kp)
	appLog.Debug("key handled", "key", kp.Key, "action", action)
	writeJSON(w, http.StatusOK, keysResponse{Action: action, Model: s.cal.Render()})
}

// handleImport loads an ICS body posted by the client into the store.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16*maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	horizon := 0
	if s.cfg != nil {
		horizon = s.cfg.ImportHorizonDays
	}
	window := ics.Window(s.now(), horizon, s.cal.Location())

	events, err := ics.Decode(ics.Source{ID: name, Name: name}, body, window)
	if err != nil {
		appLog.Error("ics upload rejected", err, "name", name)
		writeError(w, http.StatusBadRequest, "invalid ICS: "+err.Error())
		return
	}
	added := s.cal.Store().Import(events)
	appLog.Info("ics upload imported", "name", name, "events", len(added))
	s.writeRender(w)
}

func (s *Server) writeRender(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.cal.Render())
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeActionError maps controller errors onto HTTP statuses. An invalid
// drop is not an error for the client: the event simply stays put.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, model.ErrInvalidDrop):
		s.writeRender(w)
		return
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrMonthDrag), errors.Is(err, model.ErrNotDragging):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
	appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
}

// decodeJSON reads a JSON request body into v. An empty body leaves v at
// its zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		appLog.Error("bad request body", err, "path", r.URL.Path)
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// weekRows splits month cells into rows of seven.
func weekRows(cells []grid.MonthCell) [][]grid.MonthCell {
	rows := make([][]grid.MonthCell, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}
	return rows
}

// Serve runs srv on ln until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
