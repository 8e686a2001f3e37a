package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"beachbookings/internal/config"
	"beachbookings/internal/database"
	"beachbookings/internal/domain"
	"beachbookings/internal/export"
	"beachbookings/internal/metrics"
	"beachbookings/internal/service"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Deps are the application services the HTTP API is a thin layer over.
type Deps struct {
	Bookings     domain.BookingService
	Users        domain.UserService
	Associations domain.AssociationService
	Facilities   domain.FacilityService
	Drafts       domain.DraftService
	Exporter     *export.Exporter
	Identity     IdentityProvider
	Store        Pinger
	PollInterval time.Duration
}

// HTTPServer exposes the JSON API used by the web client.
type HTTPServer struct {
	cfg    *config.APIConfig
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
	now    func() time.Time
}

func NewHTTPServer(cfg *config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = 15 * time.Second
	}
	if deps.Exporter == nil {
		deps.Exporter = export.NewExporter(nil)
	}

	srv := &HTTPServer{
		cfg:    cfg,
		deps:   deps,
		auth:   NewHTTPAuth(cfg),
		logger: logger,
		now:    time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)

	mux.HandleFunc("GET /api/v1/bookings", srv.handleListBookings)
	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/export", srv.handleExportBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("PUT /api/v1/bookings/{id}", srv.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", srv.handleDeleteBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/join", srv.handleJoinBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/leave", srv.handleLeaveBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/kick", srv.handleKickPlayer)
	mux.HandleFunc("POST /api/v1/bookings/{id}/guests", srv.handleAddGuest)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}/guests/{guestID}", srv.handleRemoveGuest)

	mux.HandleFunc("GET /api/v1/me", srv.handleGetMe)
	mux.HandleFunc("PUT /api/v1/me", srv.handleUpdateMe)
	mux.HandleFunc("PUT /api/v1/me/consents", srv.handleUpdateConsents)

	mux.HandleFunc("GET /api/v1/facilities", srv.handleFacilities)

	mux.HandleFunc("GET /api/v1/associations", srv.handleListAssociations)
	mux.HandleFunc("POST /api/v1/associations", srv.handleCreateAssociation)
	mux.HandleFunc("GET /api/v1/associations/{id}", srv.handleGetAssociation)
	mux.HandleFunc("POST /api/v1/associations/{id}/invites", srv.handleInvite)
	mux.HandleFunc("POST /api/v1/associations/{id}/leave", srv.handleLeaveAssociation)
	mux.HandleFunc("POST /api/v1/invite/{associationID}/accept", srv.handleAcceptInvite)

	mux.HandleFunc("GET /api/v1/drafts", srv.handleGetDraft)
	mux.HandleFunc("PUT /api/v1/drafts", srv.handleSaveDraft)
	mux.HandleFunc("DELETE /api/v1/drafts", srv.handleClearDraft)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.CORS.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   nonEmpty("Content-Type", cfg.Auth.HeaderAPIKey, cfg.Identity.HeaderUserID, cfg.Identity.HeaderEmail, cfg.Identity.HeaderName),
		ExposedHeaders:   []string{pollIntervalHeader, "X-Request-Id"},
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	handler := srv.loggingMiddleware(corsHandler.Handler(srv.auth.Wrap(withUser(deps.Identity, deps.Users, logger, recordPattern(mux)))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

const pollIntervalHeader = "X-Poll-Interval"

func (s *HTTPServer) pollSeconds() int {
	return int(s.deps.PollInterval / time.Second)
}

func (s *HTTPServer) setPollHeader(w http.ResponseWriter) {
	w.Header().Set(pollIntervalHeader, strconv.Itoa(s.pollSeconds()))
}

// writeServiceError maps service and store errors to HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, database.ErrDuplicatePlayer),
		errors.Is(err, database.ErrPlayerNotInBooking):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		route := &matchedRoute{pattern: "unmatched"}
		next.ServeHTTP(recorder, r.WithContext(context.WithValue(r.Context(), routeCtxKey, route)))

		metrics.IncHTTP(route.pattern)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route.pattern).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// matchedRoute carries the mux pattern back out to the logging middleware.
type matchedRoute struct {
	pattern string
}

func recordPattern(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if route, ok := r.Context().Value(routeCtxKey).(*matchedRoute); ok && r.Pattern != "" {
			route.pattern = r.Pattern
		}
	})
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", service.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
