// Package db provides database models and utilities for DXLander.
package db

import (
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MigrationModel records applied manual migrations
type MigrationModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null;unique"`
	AppliedAt time.Time
}

func (MigrationModel) TableName() string {
	return "migrations"
}

type ProjectModel struct {
	BaseModel
	UserID             uuid.UUID `gorm:"type:char(36);not null;index"`
	Name               string    `gorm:"not null;check:name <> ''"`
	GitURL             string    `gorm:"not null;check:git_url <> ''"`
	GitBranch          string    `gorm:"not null"`
	GitAuthType        *string   `gorm:"type:varchar(20)"` // "http" or "ssh"
	GitAuthCredentials *string   `gorm:"type:text"`        // Encrypted JSON blob containing all auth data
	WorkingDir         string    `gorm:"not null;check:working_dir <> ''"`
	LastCommit         *string

	ConfigSets  []ConfigSetModel  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Deployments []DeploymentModel `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (ProjectModel) TableName() string {
	return "projects"
}

type ConfigSetModel struct {
	BaseModel
	UserID         uuid.UUID `gorm:"type:char(36);not null;index"`
	ProjectID      uuid.UUID `gorm:"type:char(36);not null;index"`
	Name           string    `gorm:"not null;check:name <> ''"`
	LocalPath      string    `gorm:"not null;check:local_path <> ''"` // directory holding the generated deployment files
	Services       string    `gorm:"type:text;not null"`              // JSON array of service declarations
	EnvOverrides   string    `gorm:"type:text;not null"`              // JSON object of user-supplied env overrides
	IntegrationIDs string    `gorm:"type:text;not null"`              // JSON array of linked integration IDs
}

func (ConfigSetModel) TableName() string {
	return "config_sets"
}

type IntegrationModel struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:char(36);not null;index"`
	Name        string    `gorm:"not null;check:name <> ''"`
	Provider    string    `gorm:"not null;check:provider <> ''"`
	Credentials string    `gorm:"type:text;not null"` // Encrypted JSON blob of credential key/value pairs
}

func (IntegrationModel) TableName() string {
	return "integrations"
}

type DeploymentModel struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:char(36);not null;index"`
	ProjectID   uuid.UUID `gorm:"type:char(36);not null;index"`
	ConfigSetID uuid.UUID `gorm:"type:char(36);not null;index"`
	Platform    string    `gorm:"not null;check:platform <> ''"`
	Name        string    `gorm:"not null;check:name <> ''"`
	Status      string    `gorm:"not null;check:status <> ''"`
	Notes       string    `gorm:"type:text"`
	Environment string    `gorm:"not null"`  // environment tag, e.g. "development"
	Metadata    *string   `gorm:"type:text"` // JSON orchestration metadata; NULL for pre-migration records
	Ports       string    `gorm:"type:text;not null"` // JSON array of port mappings
	ServiceURLs string    `gorm:"type:text;not null"` // JSON object of service name to URL
	DeployURL   string
	BuildLogs   string `gorm:"type:text"`
	RuntimeLogs string `gorm:"type:text"`
	ErrorMsg    string `gorm:"type:text"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	StoppedAt   *time.Time

	ActivityLog []ActivityLogModel `gorm:"foreignKey:DeploymentID;constraint:OnDelete:CASCADE"`
}

func (DeploymentModel) TableName() string {
	return "deployments"
}

// ActivityLogModel rows are append-only; there is no UpdatedAt on purpose.
type ActivityLogModel struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	DeploymentID uuid.UUID `gorm:"type:char(36);not null;index"`
	Action       string    `gorm:"not null;check:action <> ''"`
	Result       string    `gorm:"not null"`
	Details      string    `gorm:"type:text;not null"` // JSON object
	CreatedAt    time.Time
}

func (ActivityLogModel) TableName() string {
	return "activity_log"
}
