package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/deployment"
	"github.com/dxlander/dxlander/importer"
	"github.com/dxlander/dxlander/repository"
)

type contextKey string

const userIDKey contextKey = "userID"

// Server serves the DXLander JSON API.
type Server struct {
	config       *config.Config
	importer     *importer.Importer
	orchestrator *deployment.Orchestrator
	configSets   repository.ConfigSetRepository
	integrations repository.IntegrationRepository
	httpServer   *http.Server
}

func NewServer(
	cfg *config.Config,
	imp *importer.Importer,
	orchestrator *deployment.Orchestrator,
	configSets repository.ConfigSetRepository,
	integrations repository.IntegrationRepository,
) *Server {
	return &Server{
		config:       cfg,
		importer:     imp,
		orchestrator: orchestrator,
		configSets:   configSets,
		integrations: integrations,
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.handleImportProject)
			r.Get("/", s.handleListProjects)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Post("/refresh", s.handleRefreshProject)
				r.Delete("/", s.handleRemoveProject)
				r.Get("/configsets", s.handleListConfigSets)
				r.Post("/configsets", s.handleCreateConfigSet)
			})
		})
		r.Post("/git/test-auth", s.handleTestGitAuth)

		r.Route("/configsets/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetConfigSet)
			r.Put("/", s.handleUpdateConfigSet)
			r.Delete("/", s.handleDeleteConfigSet)
		})

		r.Route("/integrations", func(r chi.Router) {
			r.Post("/", s.handleCreateIntegration)
			r.Get("/", s.handleListIntegrations)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetIntegration)
				r.Put("/", s.handleUpdateIntegration)
				r.Delete("/", s.handleDeleteIntegration)
			})
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", s.handleCreateDeployment)
			r.Get("/", s.handleListDeployments)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDeployment)
				r.Get("/status", s.handleDeploymentStatus)
				r.Get("/logs", s.handleDeploymentLogs)
				r.Get("/activity", s.handleDeploymentActivity)
				r.Post("/start", s.handleStartDeployment)
				r.Post("/stop", s.handleStopDeployment)
				r.Post("/restart", s.handleRestartDeployment)
				r.Delete("/", s.handleDeleteDeployment)
			})
		})
	})

	return r
}

// ListenAndServe starts the HTTP server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	address := fmt.Sprintf("%s:%d", s.config.HTTPHost, s.config.HTTPPort)
	s.httpServer = &http.Server{Addr: address, Handler: s.Router()}

	slog.Info("HTTP server starting", "address", address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// requireUser extracts the caller identity from the X-User-ID header. Every
// repository query downstream is scoped to this id.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, fmt.Errorf("missing X-User-ID header"))
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, fmt.Errorf("invalid X-User-ID header"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// respondServiceError maps service errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, deployment.ErrDeploymentNotFound),
		errors.Is(err, importer.ErrProjectNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, deployment.ErrUnsupportedPlatform),
		errors.Is(err, deployment.ErrNoOrchestrationMetadata):
		respondError(w, http.StatusBadRequest, err)
	default:
		// Internal errors are logged with full detail but reach the client
		// only as a sanitized message.
		slog.Error("Handler operation failed", "layer", "web", "error", err)
		respondJSON(w, http.StatusInternalServerError,
			map[string]string{"error": deployment.FormatErrorForUser(err)})
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
