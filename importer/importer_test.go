package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/dxlander/dxlander/config"
	"github.com/dxlander/dxlander/db"
	"github.com/dxlander/dxlander/encryption"
	"github.com/dxlander/dxlander/repository"
)

type importerFixture struct {
	importer  *Importer
	sourceDir string
	userID    uuid.UUID
}

func setupImporter(t *testing.T) *importerFixture {
	t.Helper()

	database, err := db.InitDatabase(db.DBConfig{Path: ":memory:", LogLevel: logger.Silent})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAll(database))

	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	encryptionSvc, err := encryption.NewEncryptionService(key)
	require.NoError(t, err)

	projects := repository.NewProjectRepository(database, encryptionSvc)

	cfg := &config.Config{
		WorkspaceDir: t.TempDir(),
		GitTimeout:   time.Minute,
	}

	sourceDir := t.TempDir()
	initSourceRepo(t, sourceDir)

	return &importerFixture{
		importer:  NewImporter(projects, NewGitClient(cfg), cfg),
		sourceDir: sourceDir,
		userID:    uuid.New(),
	}
}

func initSourceRepo(t *testing.T, dir string) {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo\n"), 0o644))
	commitAll(t, repo, "initial commit")
}

func commitAll(t *testing.T, repo *git.Repository, message string) {
	t.Helper()
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(".")
	require.NoError(t, err)
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func (f *importerFixture) importRequest() ImportRequest {
	return ImportRequest{
		UserID:    f.userID,
		Name:      "Demo App",
		GitURL:    f.sourceDir,
		GitBranch: "master",
	}
}

func TestImport(t *testing.T) {
	f := setupImporter(t)

	project, err := f.importer.Import(f.importRequest())
	require.NoError(t, err)

	assert.Equal(t, "Demo App", project.Name)
	assert.Equal(t, "master", project.GitBranch)
	assert.NotEmpty(t, project.LastCommitStr())

	filesDir, err := project.FilesDir()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filesDir, "README.md"))
}

func TestImport_ValidationErrors(t *testing.T) {
	f := setupImporter(t)

	_, err := f.importer.Import(ImportRequest{UserID: f.userID, GitURL: f.sourceDir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")

	_, err = f.importer.Import(ImportRequest{UserID: f.userID, Name: "demo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git URL is required")
}

func TestImport_CloneFailureLeavesNoRecord(t *testing.T) {
	f := setupImporter(t)
	req := f.importRequest()
	req.GitURL = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := f.importer.Import(req)
	require.Error(t, err)

	projects, err := f.importer.List(f.userID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestRefresh_PicksUpNewCommit(t *testing.T) {
	f := setupImporter(t)

	project, err := f.importer.Import(f.importRequest())
	require.NoError(t, err)
	firstCommit := project.LastCommitStr()

	sourceRepo, err := git.PlainOpen(f.sourceDir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.sourceDir, "CHANGELOG.md"), []byte("v2\n"), 0o644))
	commitAll(t, sourceRepo, "second commit")

	refreshed, err := f.importer.Refresh(f.userID, project.ID)
	require.NoError(t, err)
	assert.NotEqual(t, firstCommit, refreshed.LastCommitStr())

	filesDir, err := refreshed.FilesDir()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filesDir, "CHANGELOG.md"))
}

func TestOutOfDate(t *testing.T) {
	f := setupImporter(t)

	project, err := f.importer.Import(f.importRequest())
	require.NoError(t, err)

	stale, err := f.importer.OutOfDate(f.userID, project.ID)
	require.NoError(t, err)
	assert.False(t, stale)

	sourceRepo, err := git.PlainOpen(f.sourceDir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.sourceDir, "new.txt"), []byte("x\n"), 0o644))
	commitAll(t, sourceRepo, "new commit")

	stale, err = f.importer.OutOfDate(f.userID, project.ID)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestRemove(t *testing.T) {
	f := setupImporter(t)

	project, err := f.importer.Import(f.importRequest())
	require.NoError(t, err)

	require.NoError(t, f.importer.Remove(f.userID, project.ID))
	assert.NoDirExists(t, project.WorkingDir)

	_, err = f.importer.Get(f.userID, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRemove_ForeignUserDenied(t *testing.T) {
	f := setupImporter(t)

	project, err := f.importer.Import(f.importRequest())
	require.NoError(t, err)

	err = f.importer.Remove(uuid.New(), project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)

	// Still present for the owner
	_, err = f.importer.Get(f.userID, project.ID)
	require.NoError(t, err)
}
