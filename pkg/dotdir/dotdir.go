// Package dotdir locates the .mnemo/ directory holding config.toml and
// tokens.toml.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".mnemo"

	// EnvHome names a .mnemo/ directory to use when no override is given.
	EnvHome = "MNEMO_HOME"

	// tokens.toml holds bearer tokens, so the directory is owner-only.
	dirPerm = 0o700
)

// Target resolves and creates the .mnemo/ directory, returning its absolute
// path. The first match wins:
//  1. overrideDir (--config-dir)
//  2. $MNEMO_HOME
//  3. ./.mnemo/ when it already exists
//  4. ~/.mnemo/
func Target(overrideDir string) (string, error) {
	dir, err := resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating mnemo directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// File returns the absolute path of name inside the resolved directory.
func File(overrideDir, name string) (string, error) {
	dir, err := Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if info, err := os.Stat(filepath.Join(cwd, dirName)); err == nil && info.IsDir() {
		return filepath.Join(cwd, dirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}
