package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/deployment"
	"github.com/dxlander/dxlander/domain"
)

type createDeploymentRequest struct {
	ProjectID   uuid.UUID `json:"projectId"`
	ConfigSetID uuid.UUID `json:"configSetId"`
	Platform    string    `json:"platform,omitempty"`
	Name        string    `json:"name"`
	Environment string    `json:"environment,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func (r *createDeploymentRequest) toCreateRequest(userID uuid.UUID) (deployment.CreateRequest, error) {
	platform := domain.PlatformDockerCompose
	if r.Platform != "" {
		parsed, err := domain.ParsePlatform(r.Platform)
		if err != nil {
			return deployment.CreateRequest{}, err
		}
		platform = parsed
	}
	return deployment.CreateRequest{
		UserID:      userID,
		ProjectID:   r.ProjectID,
		ConfigSetID: r.ConfigSetID,
		Platform:    platform,
		Name:        r.Name,
		Environment: r.Environment,
		Notes:       r.Notes,
	}, nil
}

// handleCreateDeployment runs the full create flow. With ?stream=true the
// response is a server-sent event stream of progress events ending in a
// result event; otherwise the handler blocks and returns the final record.
func (s *Server) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var body createDeploymentRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req, err := body.toCreateRequest(userID(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		s.streamCreateDeployment(w, r, req)
		return
	}

	d, err := s.orchestrator.CreateDeployment(r.Context(), req, nil)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toDeploymentView(d))
}

type createOutcome struct {
	deployment *domain.Deployment
	err        error
}

func (s *Server) streamCreateDeployment(w http.ResponseWriter, r *http.Request, req deployment.CreateRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	progress := make(chan domain.ProgressEvent, 64)
	outcome := make(chan createOutcome, 1)

	go func() {
		d, err := s.orchestrator.CreateDeployment(r.Context(), req, progress)
		close(progress)
		outcome <- createOutcome{deployment: d, err: err}
	}()

	for event := range progress {
		writeSSE(w, "progress", event)
		flusher.Flush()
	}

	result := <-outcome
	if result.err != nil {
		writeSSE(w, "error", map[string]string{"error": result.err.Error()})
	} else {
		writeSSE(w, "result", toDeploymentView(result.deployment))
	}
	flusher.Flush()
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal SSE payload", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	deployments, err := s.orchestrator.List(userID(r), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]DeploymentView, len(deployments))
	for i, d := range deployments {
		views[i] = toDeploymentView(d)
	}
	respondJSON(w, http.StatusOK, views)
}

func listFilterFromQuery(r *http.Request) (domain.ListFilter, error) {
	var filter domain.ListFilter
	query := r.URL.Query()

	if v := query.Get("projectId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, fmt.Errorf("invalid projectId: %w", err)
		}
		filter.ProjectID = id
	}
	if v := query.Get("configSetId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, fmt.Errorf("invalid configSetId: %w", err)
		}
		filter.ConfigSetID = id
	}
	if v := query.Get("status"); v != "" {
		status, err := domain.ParseDeploymentStatus(strings.ToLower(v))
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit: %q", v)
		}
		filter.Limit = limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("invalid offset: %q", v)
		}
		filter.Offset = offset
	}
	return filter, nil
}

func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := s.orchestrator.Get(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDeploymentView(d))
}

func (s *Server) handleDeploymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	status, err := s.orchestrator.GetStatus(r.Context(), userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

func (s *Server) handleDeploymentLogs(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	logs, err := s.orchestrator.GetLogs(r.Context(), userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (s *Server) handleDeploymentActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := s.orchestrator.ActivityLog(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]ActivityLogEntryView, len(entries))
	for i, entry := range entries {
		views[i] = toActivityLogEntryView(entry)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleStartDeployment(w http.ResponseWriter, r *http.Request) {
	s.lifecycleOp(w, r, s.orchestrator.Start)
}

func (s *Server) handleStopDeployment(w http.ResponseWriter, r *http.Request) {
	s.lifecycleOp(w, r, s.orchestrator.Stop)
}

func (s *Server) handleRestartDeployment(w http.ResponseWriter, r *http.Request) {
	s.lifecycleOp(w, r, s.orchestrator.Restart)
}

func (s *Server) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	s.lifecycleOp(w, r, s.orchestrator.Delete)
}

type lifecycleFunc func(ctx context.Context, userID, id uuid.UUID) (*domain.Deployment, error)

func (s *Server) lifecycleOp(w http.ResponseWriter, r *http.Request, op lifecycleFunc) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := op(r.Context(), userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toDeploymentView(d))
}
