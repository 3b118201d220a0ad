package repository

import (
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/domain"
	"github.com/dxlander/dxlander/encryption"
)

type ProjectRepository interface {
	FindByID(userID, id uuid.UUID) (*domain.Project, error)
	Create(project *domain.Project) (*domain.Project, error)
	Update(project *domain.Project) error
	List(userID uuid.UUID) ([]*domain.Project, error)
	Delete(userID, id uuid.UUID) error
}

type projectRepository struct {
	db     *gorm.DB
	mapper *ProjectMapper
}

func (r *projectRepository) List(userID uuid.UUID) ([]*domain.Project, error) {
	var models []db.ProjectModel
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	projects := make([]*domain.Project, len(models))
	for i, model := range models {
		projects[i] = r.mapper.ToDomain(&model)
	}
	return projects, nil
}

func (r *projectRepository) FindByID(userID, id uuid.UUID) (*domain.Project, error) {
	var m db.ProjectModel
	if err := r.db.Where("user_id = ?", userID).First(&m, id).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "find_project",
			"project_id", id,
			"error", err)
		return nil, err // Pass through as-is
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *projectRepository) Create(project *domain.Project) (*domain.Project, error) {
	m := r.mapper.ToModel(project)
	res := r.db.Create(m)
	if res.Error != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_project",
			"project_id", project.ID,
			"project_name", project.Name,
			"error", res.Error)
		return nil, res.Error // Pass through as-is
	}
	return r.mapper.ToDomain(m), nil
}

func (r *projectRepository) Update(project *domain.Project) error {
	m := r.mapper.ToModel(project)

	// Use Select to explicitly update all fields except CreatedAt, including empty strings
	// CreatedAt should never be updated after initial creation
	return r.db.Model(&db.ProjectModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
}

func (r *projectRepository) Delete(userID, id uuid.UUID) error {
	err := r.db.Where("user_id = ?", userID).Delete(&db.ProjectModel{}, id).Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "delete_project",
			"project_id", id,
			"error", err)
	}
	return err // Pass through as-is
}

func NewProjectRepository(db *gorm.DB, encryptionSvc *encryption.EncryptionService) ProjectRepository {
	return &projectRepository{
		db:     db,
		mapper: NewProjectMapper(encryptionSvc),
	}
}

type ConfigSetRepository interface {
	FindByID(userID, id uuid.UUID) (*domain.ConfigSet, error)
	Create(configSet *domain.ConfigSet) (*domain.ConfigSet, error)
	Update(configSet *domain.ConfigSet) error
	ListByProjectID(userID, projectID uuid.UUID) ([]*domain.ConfigSet, error)
	Delete(userID, id uuid.UUID) error
}

type configSetRepository struct {
	db     *gorm.DB
	mapper *ConfigSetMapper
}

func (r *configSetRepository) FindByID(userID, id uuid.UUID) (*domain.ConfigSet, error) {
	var m db.ConfigSetModel
	if err := r.db.Where("user_id = ?", userID).First(&m, id).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *configSetRepository) Create(configSet *domain.ConfigSet) (*domain.ConfigSet, error) {
	m := r.mapper.ToModel(configSet)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_config_set",
			"config_set_id", configSet.ID,
			"error", err)
		return nil, err
	}
	return r.mapper.ToDomain(m), nil
}

func (r *configSetRepository) Update(configSet *domain.ConfigSet) error {
	m := r.mapper.ToModel(configSet)
	return r.db.Model(&db.ConfigSetModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
}

func (r *configSetRepository) ListByProjectID(userID, projectID uuid.UUID) ([]*domain.ConfigSet, error) {
	var models []db.ConfigSetModel
	err := r.db.Where("user_id = ? AND project_id = ?", userID, projectID).
		Order("created_at DESC").
		Find(&models).
		Error
	if err != nil {
		return nil, err
	}

	configSets := make([]*domain.ConfigSet, len(models))
	for i, m := range models {
		configSets[i] = r.mapper.ToDomain(&m)
	}
	return configSets, nil
}

func (r *configSetRepository) Delete(userID, id uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&db.ConfigSetModel{}, id).Error
}

func NewConfigSetRepository(db *gorm.DB) ConfigSetRepository {
	return &configSetRepository{
		db:     db,
		mapper: &ConfigSetMapper{},
	}
}

type IntegrationRepository interface {
	FindByID(userID, id uuid.UUID) (*domain.Integration, error)
	Create(integration *domain.Integration) (*domain.Integration, error)
	Update(integration *domain.Integration) error
	List(userID uuid.UUID) ([]*domain.Integration, error)
	Delete(userID, id uuid.UUID) error
}

type integrationRepository struct {
	db     *gorm.DB
	mapper *IntegrationMapper
}

func (r *integrationRepository) FindByID(userID, id uuid.UUID) (*domain.Integration, error) {
	var m db.IntegrationModel
	if err := r.db.Where("user_id = ?", userID).First(&m, id).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *integrationRepository) Create(integration *domain.Integration) (*domain.Integration, error) {
	m, err := r.mapper.ToModel(integration)
	if err != nil {
		return nil, err
	}
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_integration",
			"integration_id", integration.ID,
			"error", err)
		return nil, err
	}
	return r.mapper.ToDomain(m), nil
}

func (r *integrationRepository) Update(integration *domain.Integration) error {
	m, err := r.mapper.ToModel(integration)
	if err != nil {
		return err
	}
	return r.db.Model(&db.IntegrationModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
}

func (r *integrationRepository) List(userID uuid.UUID) ([]*domain.Integration, error) {
	var models []db.IntegrationModel
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	integrations := make([]*domain.Integration, len(models))
	for i, m := range models {
		integrations[i] = r.mapper.ToDomain(&m)
	}
	return integrations, nil
}

func (r *integrationRepository) Delete(userID, id uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&db.IntegrationModel{}, id).Error
}

func NewIntegrationRepository(db *gorm.DB, encryptionSvc *encryption.EncryptionService) IntegrationRepository {
	return &integrationRepository{
		db:     db,
		mapper: NewIntegrationMapper(encryptionSvc),
	}
}

type DeploymentRepository interface {
	FindByID(userID, id uuid.UUID) (*domain.Deployment, error)
	Create(deployment *domain.Deployment) error
	Update(deployment *domain.Deployment) error
	List(userID uuid.UUID, filter domain.ListFilter) ([]*domain.Deployment, error)
	// ListActive returns deployments across all users whose stacks may have
	// live containers. Used by the status watcher, not by request handlers.
	ListActive() ([]*domain.Deployment, error)
}

type deploymentRepository struct {
	db     *gorm.DB
	mapper *DeploymentMapper
}

func (r *deploymentRepository) FindByID(userID, id uuid.UUID) (*domain.Deployment, error) {
	var m db.DeploymentModel
	if err := r.db.Where("user_id = ?", userID).First(&m, id).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToDomain(&m), nil
}

func (r *deploymentRepository) Create(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "create_deployment",
			"deployment_id", deployment.ID,
			"error", err)
		return err
	}
	// Update the domain object with the timestamps that GORM populated
	*deployment = *r.mapper.ToDomain(m)
	return nil
}

func (r *deploymentRepository) Update(deployment *domain.Deployment) error {
	m := r.mapper.ToModel(deployment)
	err := r.db.Model(&db.DeploymentModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("created_at").
		Updates(m).
		Error
	if err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "update_deployment",
			"deployment_id", deployment.ID,
			"error", err)
	}
	return err
}

func (r *deploymentRepository) List(userID uuid.UUID, filter domain.ListFilter) ([]*domain.Deployment, error) {
	query := r.db.Where("user_id = ?", userID)
	if filter.ProjectID != uuid.Nil {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.ConfigSetID != uuid.Nil {
		query = query.Where("config_set_id = ?", filter.ConfigSetID)
	}
	if filter.Status != domain.DeploymentStatusUnknown {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var models []db.DeploymentModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	deployments := make([]*domain.Deployment, len(models))
	for i, m := range models {
		deployments[i] = r.mapper.ToDomain(&m)
	}
	return deployments, nil
}

func (r *deploymentRepository) ListActive() ([]*domain.Deployment, error) {
	statuses := []string{
		domain.DeploymentStatusRunning.String(),
		domain.DeploymentStatusStopped.String(),
		domain.DeploymentStatusFailed.String(),
	}

	var models []db.DeploymentModel
	if err := r.db.Where("status IN ?", statuses).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	deployments := make([]*domain.Deployment, len(models))
	for i, m := range models {
		deployments[i] = r.mapper.ToDomain(&m)
	}
	return deployments, nil
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{
		db:     db,
		mapper: &DeploymentMapper{},
	}
}

type ActivityLogRepository interface {
	Append(entry *domain.ActivityLogEntry) error
	ListByDeploymentID(deploymentID uuid.UUID) ([]*domain.ActivityLogEntry, error)
}

type activityLogRepository struct {
	db     *gorm.DB
	mapper *ActivityLogMapper
}

// Append inserts a new audit record. Entries are never updated or deleted.
func (r *activityLogRepository) Append(entry *domain.ActivityLogEntry) error {
	m := r.mapper.ToModel(entry)
	if err := r.db.Create(m).Error; err != nil {
		slog.Error("Database operation failed",
			"layer", "repository",
			"operation", "append_activity_log",
			"deployment_id", entry.DeploymentID,
			"action", entry.Action,
			"error", err)
		return err
	}
	*entry = *r.mapper.ToDomain(m)
	return nil
}

func (r *activityLogRepository) ListByDeploymentID(deploymentID uuid.UUID) ([]*domain.ActivityLogEntry, error) {
	var models []db.ActivityLogModel
	err := r.db.Where("deployment_id = ?", deploymentID).
		Order("created_at ASC").
		Find(&models).
		Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.ActivityLogEntry, len(models))
	for i, m := range models {
		entries[i] = r.mapper.ToDomain(&m)
	}
	return entries, nil
}

func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{
		db:     db,
		mapper: &ActivityLogMapper{},
	}
}
