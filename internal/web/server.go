// Package web exposes a review session as a JSON HTTP API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/session"
)

const defaultStatsDays = 7

// Server holds the dependencies for the HTTP server.
type Server struct {
	// mu serializes every request: the session has a single writer.
	mu       sync.Mutex
	session  *session.Session
	router   chi.Router
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer creates and configures a new server.
func NewServer(s *session.Session, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		session:  s,
		router:   chi.NewRouter(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "web"),
	}
	srv.routes()
	return srv
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", s.locked(s.handleGetSession))
		r.Post("/session/flip", s.locked(s.handleFlip))
		r.Post("/session/judge", s.locked(s.handleJudge))
		r.Post("/session/advance", s.locked(s.handleAdvance))

		r.Get("/cards", s.locked(s.handleListCards))
		r.Post("/cards", s.locked(s.handleAddCard))
		r.Get("/cards/due", s.locked(s.handleDueCards))
		r.Get("/cards/{id}", s.locked(s.handleGetCard))
		r.Put("/cards/{id}", s.locked(s.handleUpdateCard))
		r.Delete("/cards/{id}", s.locked(s.handleDeleteCard))

		r.Get("/stats", s.locked(s.handleStats))
	})
}

func (s *Server) locked(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type judgeRequest struct {
	Known *bool `json:"known" validate:"required"`
}

type cardRequest struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Flip(); err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	review, err := s.session.Judge(r.Context(), *req.Known)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"review":  review,
		"session": s.session.Snapshot(),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.Advance(); err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Cards())
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	due := s.session.Due()
	if due == nil {
		due = []domain.Flashcard{}
	}
	respondJSON(w, http.StatusOK, due)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	view, err := s.session.Card(chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !s.decode(w, r, &req) {
		return
	}
	card, err := s.session.AddCard(r.Context(), domain.Content{Front: req.Front, Back: req.Back})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !s.decode(w, r, &req) {
		return
	}
	card, err := s.session.UpdateCard(r.Context(), chi.URLParam(r, "id"), domain.Content{Front: req.Front, Back: req.Back})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := defaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			respondError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}
	respondJSON(w, http.StatusOK, s.session.Summary(days))
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCard):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyDeck), errors.Is(err, domain.ErrNotRevealed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidContent):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotPersisted):
		s.logger.Error("Change applied but not saved", "error", err)
		respondError(w, http.StatusInternalServerError, "change applied but not saved")
	default:
		s.logger.Error("Request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
