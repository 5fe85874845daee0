// Package httpadapter exposes the scan pipeline to the hosting UI: session
// lifecycle, frame ingestion, the result feed and lead read-back. The UI
// renders; this adapter only moves state.
package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"lanyard/internal/adapters/decoder"
	"lanyard/internal/ports"
	"lanyard/internal/sessions"
)

// userHeader carries the identity established by the fronting platform.
// Authentication itself is out of scope here.
const userHeader = "X-User-ID"

type Server struct {
	registry *sessions.Registry
	leads    ports.LeadRepository
	log      zerolog.Logger
}

func New(registry *sessions.Registry, leads ports.LeadRepository, log zerolog.Logger) *Server {
	return &Server{registry: registry, leads: leads, log: log.With().Str("component", "http").Logger()}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.accessLog)
	r.Get("/healthz", s.handleHealthz)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/frames", s.handleFrame)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/stop", s.handleStop)
			r.Post("/reset", s.handleReset)
		})
	})
	r.Get("/leads", s.handleListLeads)
	return r
}

type createSessionRequest struct {
	FacingMode string `json:"facing_mode,omitempty"`
	FrameRate  int    `json:"frame_rate,omitempty"`
	WindowSize int    `json:"window_size,omitempty"`
}

type countersResponse struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Processed  int `json:"processed"`
}

type contactResponse struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
	Website string `json:"website,omitempty"`
	Raw     string `json:"raw"`
}

type resultResponse struct {
	ID        string          `json:"id"`
	Contact   contactResponse `json:"contact"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

type sessionResponse struct {
	SessionID   string           `json:"session_id"`
	State       string           `json:"state"`
	CameraError string           `json:"camera_error,omitempty"`
	Counters    countersResponse `json:"counters"`
	Results     []resultResponse `json:"results"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader)
		return
	}
	var req createSessionRequest
	// An empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	opts := ports.DefaultDecoderOptions()
	if req.FacingMode != "" {
		opts.FacingMode = req.FacingMode
	}
	if req.FrameRate > 0 {
		opts.FrameRate = req.FrameRate
	}
	if req.WindowSize > 0 {
		opts.WindowSize = req.WindowSize
	}

	entry := s.registry.Create(r.Context(), userID, opts)
	writeJSON(w, http.StatusCreated, sessionView(entry))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionView(entry))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.session(w, r)
	if !ok {
		return
	}
	s.registry.Remove(entry.ID)
	w.WriteHeader(http.StatusNoContent)
}

type frameRequest struct {
	Payload string `json:"payload"`
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.session(w, r)
	if !ok {
		return
	}
	if entry.Source == nil {
		writeError(w, http.StatusConflict, "session decoder is not frame-fed")
		return
	}
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == "" {
		writeError(w, http.StatusBadRequest, "payload required")
		return
	}
	switch err := entry.Source.Feed(req.Payload); {
	case errors.Is(err, decoder.ErrNotRunning):
		writeError(w, http.StatusConflict, "session not scanning")
	case errors.Is(err, decoder.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "decode queue full")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, func(e *sessions.Entry) error { return e.Ctrl.Pause() })
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, func(e *sessions.Entry) error { return e.Ctrl.Resume() })
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, func(e *sessions.Entry) error { return e.Ctrl.Stop() })
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, func(e *sessions.Entry) error { e.Ctrl.Reset(); return nil })
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, op func(*sessions.Entry) error) {
	entry, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := op(entry); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionView(entry))
}

type leadResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	Sentiment        string    `json:"sentiment"`
	MarketingConsent bool      `json:"marketing_consent"`
	CreatedAt        time.Time `json:"created_at"`
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	leads, err := s.leads.ListByUser(r.Context(), userID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("lead listing failed")
		writeError(w, http.StatusInternalServerError, "lead listing failed")
		return
	}
	out := make([]leadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, leadResponse{
			ID: l.ID, Name: l.Name, Email: l.Email, Phone: l.Phone, Notes: l.Notes,
			Sentiment: string(l.Sentiment), MarketingConsent: l.MarketingConsent, CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": out})
}

// session resolves the path id and checks the session belongs to the caller.
// Foreign sessions look like missing ones.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessions.Entry, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userHeader)
		return nil, false
	}
	entry, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok || entry.UserID != userID {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return entry, true
}

func sessionView(entry *sessions.Entry) sessionResponse {
	state, cameraErr := entry.Ctrl.State()
	counters := entry.Ctrl.Counters()
	feed := entry.Ctrl.Feed()
	results := make([]resultResponse, 0, len(feed))
	for _, res := range feed {
		results = append(results, resultResponse{
			ID: res.ID,
			Contact: contactResponse{
				Name: res.Contact.Name, Email: res.Contact.Email, Phone: res.Contact.Phone,
				Company: res.Contact.Company, Title: res.Contact.Title, Website: res.Contact.Website,
				Raw: res.Contact.Raw,
			},
			Status:    string(res.Status),
			Message:   res.Message,
			Timestamp: res.Timestamp,
		})
	}
	return sessionResponse{
		SessionID:   entry.ID,
		State:       string(state),
		CameraError: cameraErr,
		Counters: countersResponse{
			Created:    counters.Created,
			Duplicates: counters.Duplicates,
			Processed:  counters.Processed,
		},
		Results: results,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// accessLog logs one line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
