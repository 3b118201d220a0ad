package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/importer"
)

// configSetsDir is the directory under the data dir holding generated
// deployment files, one subdirectory per config set.
const configSetsDir = "configsets"

type gitAuthRequest struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
	User       string `json:"user,omitempty"`
}

func (g *gitAuthRequest) toDomain() (*domain.GitAuthConfig, error) {
	if g == nil {
		return nil, nil
	}
	authType, err := domain.ParseGitAuthType(g.Type)
	if err != nil {
		return nil, err
	}
	switch authType {
	case domain.GitAuthTypeHTTP:
		return &domain.GitAuthConfig{
			HTTPAuth: &domain.GitHTTPAuthConfig{Username: g.Username, Password: g.Password},
		}, nil
	case domain.GitAuthTypeSSH:
		return &domain.GitAuthConfig{
			SSHAuth: &domain.GitSSHAuthConfig{PrivateKey: g.PrivateKey, User: g.User},
		}, nil
	}
	return nil, nil
}

// Projects

type importProjectRequest struct {
	Name      string          `json:"name"`
	GitURL    string          `json:"gitUrl"`
	GitBranch string          `json:"gitBranch,omitempty"`
	GitAuth   *gitAuthRequest `json:"gitAuth,omitempty"`
}

func (s *Server) handleImportProject(w http.ResponseWriter, r *http.Request) {
	var req importProjectRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	gitAuth, err := req.GitAuth.toDomain()
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	project, err := s.importer.Import(importer.ImportRequest{
		UserID:    userID(r),
		Name:      req.Name,
		GitURL:    req.GitURL,
		GitBranch: req.GitBranch,
		GitAuth:   gitAuth,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProjectView(project))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.importer.List(userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]ProjectView, len(projects))
	for i, p := range projects {
		views[i] = toProjectView(p)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	project, err := s.importer.Get(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProjectView(project))
}

func (s *Server) handleRefreshProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	project, err := s.importer.Refresh(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toProjectView(project))
}

func (s *Server) handleRemoveProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.importer.Remove(userID(r), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type testGitAuthRequest struct {
	GitURL  string          `json:"gitUrl"`
	GitAuth *gitAuthRequest `json:"gitAuth,omitempty"`
}

func (s *Server) handleTestGitAuth(w http.ResponseWriter, r *http.Request) {
	var req testGitAuthRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.GitURL == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("gitUrl is required"))
		return
	}

	gitAuth, err := req.GitAuth.toDomain()
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.importer.TestAuthentication(req.GitURL, gitAuth); err != nil {
		respondJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Config sets

type configSetRequest struct {
	Name           string                   `json:"name"`
	Services       []ServiceDeclarationView `json:"services"`
	EnvOverrides   map[string]string        `json:"envOverrides,omitempty"`
	IntegrationIDs []uuid.UUID              `json:"integrationIds,omitempty"`
	// Files maps file name to content; written into the config set's
	// directory and staged on top of project sources at deploy time.
	Files map[string]string `json:"files,omitempty"`
}

func (r *configSetRequest) declarations() ([]domain.ServiceDeclaration, error) {
	declarations := make([]domain.ServiceDeclaration, len(r.Services))
	for i, s := range r.Services {
		mode, err := domain.ParseSourceMode(s.SourceMode)
		if err != nil {
			return nil, err
		}
		declarations[i] = domain.ServiceDeclaration{
			Name:               s.Name,
			ComposeServiceName: s.ComposeServiceName,
			SourceMode:         mode,
			RequiredEnvVars:    s.RequiredEnvVars,
		}
	}
	return declarations, nil
}

func (s *Server) writeConfigSetFiles(localPath string, files map[string]string) error {
	if len(files) == 0 {
		return nil
	}
	if err := os.MkdirAll(localPath, 0o755); err != nil {
		return err
	}
	for name, content := range files {
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, "..") {
			return fmt.Errorf("invalid file name: %q", name)
		}
		if err := os.WriteFile(filepath.Join(localPath, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleCreateConfigSet(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	// Project must exist and belong to the caller
	if _, err := s.importer.Get(userID(r), projectID); err != nil {
		respondServiceError(w, err)
		return
	}

	var req configSetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	declarations, err := req.declarations()
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	configSet := domain.ConfigSet{
		ID:             uuid.New(),
		UserID:         userID(r),
		ProjectID:      projectID,
		Name:           req.Name,
		Services:       declarations,
		EnvOverrides:   req.EnvOverrides,
		IntegrationIDs: req.IntegrationIDs,
	}
	configSet.LocalPath = filepath.Join(s.config.DataDir, configSetsDir, configSet.ID.String())

	if err := s.writeConfigSetFiles(configSet.LocalPath, req.Files); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	created, err := s.configSets.Create(&configSet)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toConfigSetView(created))
}

func (s *Server) handleListConfigSets(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	configSets, err := s.configSets.ListByProjectID(userID(r), projectID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]ConfigSetView, len(configSets))
	for i, c := range configSets {
		views[i] = toConfigSetView(c)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetConfigSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	configSet, err := s.configSets.FindByID(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toConfigSetView(configSet))
}

func (s *Server) handleUpdateConfigSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	configSet, err := s.configSets.FindByID(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req configSetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if req.Name != "" {
		configSet.Name = req.Name
	}
	if req.Services != nil {
		declarations, err := req.declarations()
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		configSet.Services = declarations
	}
	if req.EnvOverrides != nil {
		configSet.EnvOverrides = req.EnvOverrides
	}
	if req.IntegrationIDs != nil {
		configSet.IntegrationIDs = req.IntegrationIDs
	}
	if err := s.writeConfigSetFiles(configSet.LocalPath, req.Files); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.configSets.Update(configSet); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toConfigSetView(configSet))
}

func (s *Server) handleDeleteConfigSet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	configSet, err := s.configSets.FindByID(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.configSets.Delete(userID(r), id); err != nil {
		respondServiceError(w, err)
		return
	}
	if configSet.LocalPath != "" {
		if err := os.RemoveAll(configSet.LocalPath); err != nil {
			slog.Warn("Failed to remove config set directory", "path", configSet.LocalPath, "error", err)
		}
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Integrations

type integrationRequest struct {
	Name        string            `json:"name"`
	Provider    string            `json:"provider"`
	Credentials map[string]string `json:"credentials"`
}

func (s *Server) handleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req integrationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}

	created, err := s.integrations.Create(&domain.Integration{
		ID:          uuid.New(),
		UserID:      userID(r),
		Name:        req.Name,
		Provider:    req.Provider,
		Credentials: req.Credentials,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toIntegrationView(created))
}

func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	integrations, err := s.integrations.List(userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]IntegrationView, len(integrations))
	for i, integ := range integrations {
		views[i] = toIntegrationView(integ)
	}
	respondJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	integ, err := s.integrations.FindByID(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntegrationView(integ))
}

func (s *Server) handleUpdateIntegration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	integ, err := s.integrations.FindByID(userID(r), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var req integrationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if req.Name != "" {
		integ.Name = req.Name
	}
	if req.Provider != "" {
		integ.Provider = req.Provider
	}
	if req.Credentials != nil {
		integ.Credentials = req.Credentials
	}

	if err := s.integrations.Update(integ); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toIntegrationView(integ))
}

func (s *Server) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := s.integrations.FindByID(userID(r), id); err != nil {
		respondServiceError(w, err)
		return
	}
	if err := s.integrations.Delete(userID(r), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
