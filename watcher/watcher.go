// Package watcher reconciles stored deployment statuses with live container
// state on a fixed interval.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/repository"
)

// StatusSyncer polls live container state for one deployment and persists the
// derived status. The deployment orchestrator is the production implementation.
type StatusSyncer interface {
	GetStatus(ctx context.Context, userID, id uuid.UUID) (domain.DeploymentStatus, error)
}

type WatcherService struct {
	deployments  repository.DeploymentRepository
	syncer       StatusSyncer
	pollInterval time.Duration
}

func NewWatcherService(
	deployments repository.DeploymentRepository,
	syncer StatusSyncer,
	pollInterval time.Duration,
) *WatcherService {
	return &WatcherService{
		deployments:  deployments,
		syncer:       syncer,
		pollInterval: pollInterval,
	}
}

func (w *WatcherService) Start(ctx context.Context) error {
	slog.Info("Watcher service starting", "poll_interval", w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Run initial check immediately
	if err := w.checkAllDeployments(ctx); err != nil {
		slog.Error("Initial deployment check failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watcher service shutting down")
			return nil
		case <-ticker.C:
			if err := w.checkAllDeployments(ctx); err != nil {
				slog.Error("Deployment check failed", "error", err)
			}
		}
	}
}

// checkAllDeployments walks every deployment that may have live containers
// and lets the syncer reconcile its stored status. Per-deployment failures
// are logged and do not stop the cycle.
func (w *WatcherService) checkAllDeployments(ctx context.Context) error {
	slog.Debug("Starting deployment check cycle")

	deployments, err := w.deployments.ListActive()
	if err != nil {
		return fmt.Errorf("failed to list active deployments: %w", err)
	}

	synced := 0
	for _, deployment := range deployments {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		previous := deployment.Status
		current, err := w.syncer.GetStatus(ctx, deployment.UserID, deployment.ID)
		if err != nil {
			slog.Error("Failed to sync deployment status",
				"deployment_id", deployment.ID,
				"deployment_name", deployment.Name,
				"error", err)
			continue
		}

		synced++
		if current != previous {
			slog.Info("Deployment status reconciled",
				"deployment_id", deployment.ID,
				"deployment_name", deployment.Name,
				"previous_status", previous.String(),
				"current_status", current.String())
		}
	}

	slog.Debug("Deployment check cycle completed",
		"total_deployments", len(deployments),
		"deployments_synced", synced)
	return nil
}
