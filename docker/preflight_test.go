package docker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubImageChecker maps image refs to fixed answers.
type stubImageChecker struct {
	resolvable map[string]bool
	conclusive map[string]bool
	calls      []string
}

func (s *stubImageChecker) ImageResolvable(_ context.Context, ref string) (bool, bool) {
	s.calls = append(s.calls, ref)
	conclusive, ok := s.conclusive[ref]
	if !ok {
		conclusive = true
	}
	return s.resolvable[ref], conclusive
}

const stagedCompose = `services:
  app:
    build: .
    ports:
      - "8080:8080"
  db:
    image: postgres:16
`

func stageBuildDir(t *testing.T, composeContent string, withDockerfile bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ComposeFileName), []byte(composeContent), 0o644))
	if withDockerfile {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DockerfileName), []byte("FROM node:20\nEXPOSE 8080\n"), 0o644))
	}
	return dir
}

func checkByName(t *testing.T, result *PreFlightResult, name string) PreFlightCheck {
	t.Helper()
	for _, check := range result.Checks {
		if check.Name == name {
			return check
		}
	}
	t.Fatalf("check %q not found in %+v", name, result.Checks)
	return PreFlightCheck{}
}

func TestRunPreFlightChecks_AllPassing(t *testing.T) {
	dir := stageBuildDir(t, stagedCompose, true)
	images := &stubImageChecker{resolvable: map[string]bool{"postgres:16": true}}

	result := RunPreFlightChecks(context.Background(), dir, []string{"db"}, images)

	assert.True(t, result.Passed)
	assert.Equal(t, CheckStatusPassed, checkByName(t, result, "compose_syntax").Status)
	assert.Equal(t, CheckStatusPassed, checkByName(t, result, "build_context").Status)
	assert.Equal(t, CheckStatusPassed, checkByName(t, result, "image_db").Status)
	assert.Empty(t, result.FailureMessages())
}

func TestRunPreFlightChecks_MissingComposeFile(t *testing.T) {
	result := RunPreFlightChecks(context.Background(), t.TempDir(), nil, nil)

	assert.False(t, result.Passed)
	assert.Equal(t, CheckStatusFailed, checkByName(t, result, "compose_syntax").Status)
	assert.NotEmpty(t, result.FailureMessages())
}

func TestRunPreFlightChecks_InvalidCompose(t *testing.T) {
	dir := stageBuildDir(t, "services: [broken", true)

	result := RunPreFlightChecks(context.Background(), dir, nil, nil)

	assert.False(t, result.Passed)
	assert.Equal(t, CheckStatusFailed, checkByName(t, result, "compose_syntax").Status)
	// No further checks run on an unparseable file
	assert.Len(t, result.Checks, 1)
}

func TestRunPreFlightChecks_MissingDockerfile(t *testing.T) {
	dir := stageBuildDir(t, stagedCompose, false)

	result := RunPreFlightChecks(context.Background(), dir, nil, nil)

	assert.False(t, result.Passed)
	assert.Equal(t, CheckStatusFailed, checkByName(t, result, "build_context").Status)
}

func TestRunPreFlightChecks_UnresolvableImageFails(t *testing.T) {
	dir := stageBuildDir(t, stagedCompose, true)
	images := &stubImageChecker{resolvable: map[string]bool{"postgres:16": false}}

	result := RunPreFlightChecks(context.Background(), dir, []string{"db"}, images)

	assert.False(t, result.Passed)
	assert.Equal(t, CheckStatusFailed, checkByName(t, result, "image_db").Status)
}

func TestRunPreFlightChecks_InconclusiveImageWarns(t *testing.T) {
	dir := stageBuildDir(t, stagedCompose, true)
	images := &stubImageChecker{
		resolvable: map[string]bool{"postgres:16": false},
		conclusive: map[string]bool{"postgres:16": false},
	}

	result := RunPreFlightChecks(context.Background(), dir, []string{"db"}, images)

	// Warnings never block
	assert.True(t, result.Passed)
	assert.Equal(t, CheckStatusWarning, checkByName(t, result, "image_db").Status)
}

func TestRunPreFlightChecks_UnpinnedImageSkipped(t *testing.T) {
	dir := stageBuildDir(t, `services:
  app:
    build: .
  db:
    image: ${DB_IMAGE}
`, true)
	images := &stubImageChecker{}

	result := RunPreFlightChecks(context.Background(), dir, []string{"app", "db"}, images)

	// app has no image pin, db's is interpolated; neither is checked
	assert.True(t, result.Passed)
	assert.Empty(t, images.calls)
}

func TestRunPreFlightChecks_NilImageCheckerSkipsImageChecks(t *testing.T) {
	dir := stageBuildDir(t, stagedCompose, true)

	result := RunPreFlightChecks(context.Background(), dir, []string{"db"}, nil)
	assert.True(t, result.Passed)
	for _, check := range result.Checks {
		assert.NotEqual(t, "image_db", check.Name)
	}
}
