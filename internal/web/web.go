package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"planner/internal/config"
	"planner/internal/ics"
	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/planner"
	"planner/internal/schedule"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxRequestBody bounds JSON and ICS request payloads.
const maxRequestBody = 1 << 20

// Backend is the planner surface the HTTP API exposes.
type Backend interface {
	HorizonDays() int
	Today() time.Time

	Timetable() []model.Event
	Event(id string) (model.Event, error)
	AddEvent(in model.EventInput) (model.Event, error)
	UpdateEvent(id string, in model.EventInput) (model.Event, error)
	DeleteEvent(id string) error
	ScheduleTask(title, day, start, end string) (model.Event, error)

	OverrideOccurrence(date, eventID, start, end string) (model.OneOffEvent, error)
	RemoveOverride(date, eventID string) error
	AddAdHoc(date, name, start, end, category string) (model.OneOffEvent, error)

	Day(date string) ([]model.ProjectedEvent, error)
	Overview(date string) (schedule.Overview, error)
	Upcoming(days int) (schedule.Upcoming, error)
	Agenda() []schedule.DayPlan
	Summary() []model.NameTotal

	ExportICS() string
	ImportICS(body []byte) (planner.ImportReport, error)
}

// Server provides the JSON API over the planner and the ICS feed.
type Server struct {
	cfg *config.Config
	svc Backend
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc Backend) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
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

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
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
			w.Header().Set("WWW-Authenticate", `Basic realm="Planner", charset="UTF-8"`)
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

	s.mux.HandleFunc("GET /api/timetable", s.handleTimetable)
	s.mux.HandleFunc("POST /api/timetable", s.handleAddEvent)
	s.mux.HandleFunc("POST /api/timetable/tasks", s.handleScheduleTask)
	s.mux.HandleFunc("GET /api/timetable/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/timetable/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/timetable/{id}", s.handleDeleteEvent)

	s.mux.HandleFunc("GET /api/days/{date}", s.handleDay)
	s.mux.HandleFunc("GET /api/days/{date}/overview", s.handleOverview)
	s.mux.HandleFunc("POST /api/days/{date}/overrides", s.handleOverride)
	s.mux.HandleFunc("DELETE /api/days/{date}/overrides/{id}", s.handleRemoveOverride)
	s.mux.HandleFunc("POST /api/days/{date}/events", s.handleAdHoc)

	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)

	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleTimetable(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Timetable())
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.svc.Event(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeBody(w, r, &in) {
		return
	}
	ev, err := s.svc.AddEvent(in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

type scheduleTaskRequest struct {
	Title string `json:"title"`
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) handleScheduleTask(w http.ResponseWriter, r *http.Request) {
	var req scheduleTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ev, err := s.svc.ScheduleTask(req.Title, req.Day, req.Start, req.End)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if !decodeBody(w, r, &in) {
		return
	}
	ev, err := s.svc.UpdateEvent(r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteEvent(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dayResponse struct {
	Date   string                 `json:"date"`
	Events []model.ProjectedEvent `json:"events"`
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	events, err := s.svc.Day(date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{Date: date, Events: events})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.svc.Overview(r.PathValue("date"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

type overrideRequest struct {
	EventID string `json:"event_id"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := s.svc.OverrideOccurrence(r.PathValue("date"), req.EventID, req.Start, req.End)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveOverride(r.PathValue("date"), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adHocRequest struct {
	Name     string `json:"name"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

func (s *Server) handleAdHoc(w http.ResponseWriter, r *http.Request) {
	var req adHocRequest
	if !decodeBody(w, r, &req) {
		return
	}
	o, err := s.svc.AddAdHoc(r.PathValue("date"), req.Name, req.Start, req.End, req.Category)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleAgenda(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Agenda())
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := s.svc.HorizonDays()
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}
	up, err := s.svc.Upcoming(days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Summary())
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.svc.ExportICS())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	report, err := s.svc.ImportICS(body)
	if err != nil {
		var parseErr *ics.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps planner errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidTimeFormat),
		errors.Is(err, model.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidDay),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, model.ErrEmptyName),
		errors.Is(err, model.ErrInvalidHorizon):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
		writeError(w, status, "internal error")
		return
	}
	appLog.Debug("request rejected", "status", status, "reason", err.Error())
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
