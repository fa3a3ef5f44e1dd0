// Package api serves the operator's HTTP interface to a running session:
// stage and task switches, finishing, and live report views.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/richa/internal/attention"
	"github.com/banshee-data/richa/internal/db"
	"github.com/banshee-data/richa/internal/feed"
	"github.com/banshee-data/richa/internal/report"
	"github.com/banshee-data/richa/internal/security"
	"github.com/banshee-data/richa/internal/session"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Session is the part of session.Session the API drives.
type Session interface {
	ID() string
	Zones() []string
	SetStage(label string) error
	SetTaskBusy(busy bool) error
	Finish() (*report.Document, error)
	Report() ([]string, error)
	Summary() ([]attention.Summary, error)
	ActiveZones() ([]string, error)
	State() (session.State, error)
}

// Archive lists and reloads stored sessions.
type Archive interface {
	report.Store
	Sessions(ctx context.Context) ([]db.SessionInfo, error)
	SessionReport(ctx context.Context, id string) (*report.Document, error)
}

type Server struct {
	s       Session
	m       feed.LineMux
	files   report.Store
	archive Archive
}

// NewServer returns a Server for s. Finished reports are written to files
// and, when archive is non-nil, to the archive as well.
func NewServer(s Session, m feed.LineMux, files report.Store, archive Archive) *Server {
	return &Server{
		s:       s,
		m:       m,
		files:   files,
		archive: archive,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stage", s.setStage)
	mux.HandleFunc("/api/task", s.setTask)
	mux.HandleFunc("/api/finish", s.finish)
	mux.HandleFunc("/api/report", s.showReport)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/zones", s.showZones)
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/command", s.sendCommandHandler)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/", s.showSession)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

// sessionErrorStatus maps session errors to HTTP status codes.
func sessionErrorStatus(err error) int {
	if errors.Is(err, session.ErrFinished) {
		return http.StatusConflict
	}
	return http.StatusServiceUnavailable
}

func (s *Server) setStage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stage := strings.TrimSpace(r.FormValue("stage"))
	if stage == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'stage' parameter")
		return
	}
	if err := s.s.SetStage(stage); err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to set stage: %v", err))
		return
	}
	s.showState(w, r)
}

func (s *Server) setTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	busy, err := strconv.ParseBool(r.FormValue("busy"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'busy' parameter")
		return
	}
	if err := s.s.SetTaskBusy(busy); err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to set task: %v", err))
		return
	}
	s.showState(w, r)
}

// pathResolver is implemented by stores that write to a file path.
type pathResolver interface {
	Path(dest string, doc *report.Document) (string, error)
}

type finishResponse struct {
	SessionID string   `json:"session_id"`
	Path      string   `json:"path,omitempty"`
	Archived  bool     `json:"archived"`
	Attention []string `json:"attention"`
}

// finish ends the session and saves its report. A failed save can be
// retried with another "dest"; the report is kept either way.
func (s *Server) finish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	dest := strings.TrimSpace(r.FormValue("dest"))

	doc, err := s.s.Finish()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to finish session: %v", err))
		return
	}
	resp := finishResponse{SessionID: doc.SessionID, Attention: doc.Attention}

	if s.files != nil {
		if pr, ok := s.files.(pathResolver); ok {
			resp.Path, _ = pr.Path(dest, doc)
		}
		if err := s.files.Save(r.Context(), dest, doc); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, security.ErrPathTraversal) {
				status = http.StatusBadRequest
			}
			s.writeJSONError(w, status, fmt.Sprintf("Failed to save report: %v", err))
			return
		}
	}
	if s.archive != nil {
		if err := s.archive.Save(r.Context(), dest, doc); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to archive report: %v", err))
			return
		}
		resp.Archived = true
	}
	s.writeJSON(w, resp)
}

func (s *Server) showReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	lines, err := s.s.Report()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to build report: %v", err))
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, l := range lines {
			io.WriteString(w, l+"\n")
		}
		return
	}
	s.writeJSON(w, lines)
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	summary, err := s.s.Summary()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to summarise: %v", err))
		return
	}
	s.writeJSON(w, summary)
}

func (s *Server) showZones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	active, err := s.s.ActiveZones()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to read zones: %v", err))
		return
	}
	if active == nil {
		active = []string{}
	}
	s.writeJSON(w, map[string][]string{
		"active":     active,
		"registered": s.s.Zones(),
	})
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	st, err := s.s.State()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to read state: %v", err))
		return
	}
	s.writeJSON(w, st)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st, err := s.s.State()
	if err != nil {
		s.writeJSONError(w, sessionErrorStatus(err), fmt.Sprintf("Failed to read state: %v", err))
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"session_id": s.s.ID(),
		"selector":   st.Selector,
		"zones":      s.s.Zones(),
	})
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.m == nil {
		http.Error(w, "No tracker connected", http.StatusServiceUnavailable)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.archive == nil {
		s.writeJSONError(w, http.StatusNotFound, "No session archive configured")
		return
	}
	sessions, err := s.archive.Sessions(r.Context())
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []db.SessionInfo{}
	}
	s.writeJSON(w, sessions)
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.archive == nil {
		s.writeJSONError(w, http.StatusNotFound, "No session archive configured")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" || strings.Contains(id, "/") {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid session id")
		return
	}
	doc, err := s.archive.SessionReport(r.Context(), id)
	if errors.Is(err, db.ErrSessionNotFound) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load session: %v", err))
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, doc.Text())
		return
	}
	s.writeJSON(w, doc)
}
