// Package api exposes the booking core over HTTP for the front-desk UI
// and back-office tooling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"barberdesk/internal/audit"
	"barberdesk/internal/booking"
	"barberdesk/internal/schedule"
)

// ServerConfig carries the HTTP listener settings.
type ServerConfig struct {
	Addr           string
	AdminAPIKey    string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Deps bundles the components the handlers call into.
type Deps struct {
	Bookings  *booking.Service
	Validator *schedule.Validator
	Detector  *booking.DuplicateDetector
	Checker   *booking.AvailabilityChecker
	Blackouts *booking.BlackoutRegistry
	Sweeper   *booking.ArchivalSweeper
	Catalog   *booking.Catalog
	Reporter  *audit.Reporter
	Listings  ListingStore
	Hours     schedule.Hours
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	deps    Deps
	apiKey  string
	limiter *RateLimiter
	log     *zerolog.Logger
	server  *http.Server
}

// NewHTTPServer wires routes and middleware but does not start listening.
func NewHTTPServer(cfg ServerConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		deps:    deps,
		apiKey:  cfg.AdminAPIKey,
		limiter: NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		log:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings", s.handleBookings)
	mux.HandleFunc("/api/bookings/validate-time", s.handleValidateTime)
	mux.HandleFunc("/api/bookings/check-duplicate", s.handleCheckDuplicate)
	mux.HandleFunc("/api/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/availability", s.handleAvailability)
	mux.HandleFunc("/api/services", s.handleServices)
	mux.HandleFunc("/api/barbers", s.handleBarbers)
	mux.HandleFunc("/api/admin/blackouts", s.requireAdmin(s.handleBlackouts))
	mux.HandleFunc("/api/admin/blackouts/", s.requireAdmin(s.handleBlackoutByID))
	mux.HandleFunc("/api/admin/bookings", s.requireAdmin(s.handleAdminBookings))
	mux.HandleFunc("/api/admin/sweep", s.requireAdmin(s.handleSweep))
	mux.HandleFunc("/api/admin/report", s.requireAdmin(s.handleReport))
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.limiter.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	return s
}

// Handler returns the wired handler chain. Test hook.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving the API until the listener fails or is shut down.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAdmin guards back-office routes with the static API key.
func (s *HTTPServer) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError translates booking-core errors into HTTP responses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var valErr *booking.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": valErr.Msg,
			"field": valErr.Field,
		})
		return
	}

	var twErr *schedule.TimeWindowError
	if errors.As(err, &twErr) {
		body := map[string]any{
			"error":  "requested time is not bookable",
			"reason": twErr.Reason,
		}
		if sug := twErr.Suggestion; sug != nil {
			body["suggestion"] = suggestionResponse(sug)
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		body := map[string]any{
			"error":            conflict.Error(),
			"kind":             conflict.Kind,
			"override_allowed": conflict.Overridable,
		}
		if conflict.Existing != nil {
			body["existing_ref"] = conflict.Existing.Ref
		}
		writeJSON(w, http.StatusConflict, body)
		return
	}

	var trErr *booking.TransitionError
	if errors.As(err, &trErr) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": trErr.Error(),
			"from":  trErr.From,
			"to":    trErr.To,
		})
		return
	}

	var notFound *booking.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, notFound.Error())
		return
	}

	s.log.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func suggestionResponse(sug *schedule.Suggestion) map[string]string {
	return map[string]string{
		"date":    sug.Date.String(),
		"time":    sug.Time.String(),
		"display": sug.Display,
	}
}
