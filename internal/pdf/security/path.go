package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines file access to a configured directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory. The
// directory does not need to exist yet.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return &PathValidator{configuredDirectory: configuredDirectory}, nil
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// ValidatePath checks that an existing or future path lies within the
// configured directory. Validation is skipped while the directory does not
// exist.
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// IsPathWithinDirectory reports whether path, and the target of path when it
// is a symlink, is inside the configured directory.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	if !v.directoryExists() {
		return true, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(v.configuredDirectory)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	dirs := []string{absDir}
	if realDir, err := filepath.EvalSymlinks(absDir); err == nil && realDir != absDir {
		dirs = append(dirs, realDir)
	}

	if !inAny(absPath, dirs) {
		return false, nil
	}

	// A symlink inside the directory must not point outside of it.
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return false, fmt.Errorf("failed to resolve symlink: %w", err)
		}
		return inAny(target, dirs), nil
	}
	return true, nil
}

// NormalizePath resolves path against the configured directory and validates
// the result.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ValidateOutputPath normalizes a destination for a new file. The parent
// directory must exist and the path must not name a directory.
func (v *PathValidator) ValidateOutputPath(path string) (string, error) {
	absPath, err := v.NormalizePath(path)
	if err != nil {
		return "", err
	}

	parent, err := os.Stat(filepath.Dir(absPath))
	if err != nil {
		return "", fmt.Errorf("cannot access output directory: %w", err)
	}
	if !parent.IsDir() {
		return "", fmt.Errorf("output parent is not a directory: %s", filepath.Dir(absPath))
	}
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", absPath)
	}
	return absPath, nil
}

// ValidateDirectory checks if a directory path is within the configured directory
func (v *PathValidator) ValidateDirectory(dirPath string) error {
	if err := v.ValidatePath(dirPath); err != nil {
		return err
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dirPath)
	}
	return nil
}

func (v *PathValidator) directoryExists() bool {
	_, err := os.Stat(v.configuredDirectory)
	return !os.IsNotExist(err)
}

func inAny(path string, dirs []string) bool {
	clean := filepath.Clean(path)
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, clean)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
