package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-nutrition-bot/internal/domain"
	"telegram-nutrition-bot/internal/infra/logging"
	"telegram-nutrition-bot/internal/usecase"
)

const maxGrantDays = 3650

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Server exposes health, metrics and a small admin API for subscriptions.
type Server struct {
	subs   usecase.SubscriptionUseCase
	usage  usecase.UsageUseCase
	auth   *AuthManager
	checks map[string]HealthCheck
	log    *zerolog.Logger
	srv    *http.Server
}

func NewServer(subs usecase.SubscriptionUseCase, usage usecase.UsageUseCase, auth *AuthManager, checks map[string]HealthCheck, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{subs: subs, usage: usage, auth: auth, checks: checks, log: &l}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(RequireAdmin(s.auth, s.log), Timeout(10*time.Second))
		r.Get("/users/{id}/subscription", s.handleGetSubscription)
		r.Post("/users/{id}/grant", s.handleGrant)
		r.Get("/users/{id}/usage", s.handleUsage)
	})
	return r
}

// Start blocks serving on port until Shutdown.
func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", port).Msg("HTTP server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type subscriptionResponse struct {
	UserID int64      `json:"user_id"`
	Active bool       `json:"active"`
	Until  *time.Time `json:"until,omitempty"`
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	g, err := s.subs.Get(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, subscriptionResponse{UserID: userID})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	until := g.Until.UTC()
	writeJSON(w, http.StatusOK, subscriptionResponse{UserID: userID, Active: g.IsActive(time.Now()), Until: &until})
}

type grantRequest struct {
	Days int `json:"days"`
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Days <= 0 || req.Days > maxGrantDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxGrantDays))
		return
	}
	until, err := s.subs.GrantDays(r.Context(), userID, req.Days)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	subject, _ := r.Context().Value(adminSubjectKey).(string)
	logging.With(r.Context(), s.log).Info().
		Str("admin", subject).
		Int64("tg_id", userID).
		Int("days", req.Days).
		Msg("manual subscription grant")
	until = until.UTC()
	writeJSON(w, http.StatusOK, subscriptionResponse{UserID: userID, Active: true, Until: &until})
}

type usageResponse struct {
	UserID         int64 `json:"user_id"`
	DailyRemaining int   `json:"daily_remaining"`
	TotalRemaining int   `json:"total_remaining"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	daily, total, err := s.usage.Remaining(r.Context(), userID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{UserID: userID, DailyRemaining: daily, TotalRemaining: total})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("admin request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
