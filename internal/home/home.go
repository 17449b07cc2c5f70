package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the scanbox home directory.
	DefaultDirName = ".scanbox"

	// InboxDirName is the subdirectory the watch source reads frame files from.
	InboxDirName = "inbox"

	// ScriptsDirName holds replay scripts.
	ScriptsDirName = "scripts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the scanbox home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.scanbox).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// InboxPath returns the directory watched for frame files.
func (d *Dir) InboxPath() string {
	return filepath.Join(d.path, InboxDirName)
}

// ScriptsPath returns the directory for replay scripts.
func (d *Dir) ScriptsPath() string {
	return filepath.Join(d.path, ScriptsDirName)
}

// ScriptPath resolves a replay script name. Absolute paths and paths that
// exist relative to the working directory are returned unchanged.
func (d *Dir) ScriptPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(d.ScriptsPath(), name)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.InboxPath(), d.ScriptsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
