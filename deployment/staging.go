package deployment

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dxlander/dxlander/domain"
)

// stageBuildDir assembles the on-disk build directory for a deployment:
// project source files first, then the config set's generated files
// (Dockerfile, compose file, dockerignore and friends) copied on top so they
// win over anything the source tree carries.
func stageBuildDir(buildDir string, project *domain.Project, configSet *domain.ConfigSet) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	filesDir, err := project.FilesDir()
	if err != nil {
		return err
	}
	if err := copyDir(filesDir, buildDir); err != nil {
		return fmt.Errorf("failed to copy project files: %w", err)
	}

	if err := copyDir(configSet.LocalPath, buildDir); err != nil {
		return fmt.Errorf("failed to copy config set files: %w", err)
	}

	slog.Debug("Staged build directory",
		"build_dir", buildDir,
		"project_files", filesDir,
		"config_files", configSet.LocalPath)
	return nil
}

// copyDir copies src recursively into dst, overwriting existing files.
// Symlinks are skipped; a staged build directory must be self-contained.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case entry.IsDir():
			return os.MkdirAll(target, 0o755)
		case !entry.Type().IsRegular():
			slog.Debug("Skipping non-regular file during staging", "path", path)
			return nil
		default:
			return copyFile(path, target)
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
