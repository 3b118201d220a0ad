// Package deployment contains the orchestrator that sequences deployment
// creation and lifecycle operations across platform executors.
package deployment

import (
	"errors"
	"strings"
)

var (
	// ErrDeploymentNotFound covers both a missing record and one owned by a
	// different user; the two are deliberately indistinguishable.
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrNoOrchestrationMetadata marks a record that predates the current
	// schema or was never successfully staged; lifecycle operations cannot
	// run against it.
	ErrNoOrchestrationMetadata = errors.New("deployment has no orchestration metadata")

	// ErrUnsupportedPlatform is returned when no executor is registered for
	// a deployment's declared platform.
	ErrUnsupportedPlatform = errors.New("unsupported deployment platform")
)

// FormatErrorForUser converts technical errors to user-friendly messages.
// This should only be called at the handler level.
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unique constraint") && strings.Contains(errStr, "name"):
		return "an entry with this name already exists"
	case strings.Contains(errStr, "unique constraint"):
		return "this entry already exists"
	case strings.Contains(errStr, "record not found"):
		return "not found"
	case strings.Contains(errStr, "permission denied"):
		return "permission denied"
	case strings.Contains(errStr, "connection"):
		return "database connection failed"
	case strings.Contains(errStr, "timeout"):
		return "operation timed out"
	default:
		return "an unexpected error occurred"
	}
}
