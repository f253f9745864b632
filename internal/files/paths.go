// Package files places tool outputs on disk, validates tool inputs, and
// spools oversized text to temporary files.
package files

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"elevenlabs-mcp/internal/model"
)

// Resolver resolves output directories and input files against an optional
// base path. The zero value is not usable; call NewResolver.
type Resolver struct {
	BasePath string

	HomeDir  func() (string, error)
	Now      func() time.Time
	Writable func(path string) bool
}

func NewResolver(basePath string) *Resolver {
	return &Resolver{
		BasePath: strings.TrimSpace(basePath),
		HomeDir:  os.UserHomeDir,
		Now:      time.Now,
		Writable: isWritable,
	}
}

// OutputPath returns a writable directory for tool output, creating it when
// needed. An empty dir selects <home>/Desktop.
func (r *Resolver) OutputPath(dir string) (string, error) {
	var out string
	switch {
	case dir == "":
		home, err := r.HomeDir()
		if err != nil {
			return "", model.Configurationf("Cannot resolve home directory: %v", err)
		}
		out = filepath.Join(home, "Desktop")
	case !filepath.IsAbs(dir) && r.BasePath != "":
		base, err := r.expandUser(r.BasePath)
		if err != nil {
			return "", err
		}
		out = filepath.Join(base, dir)
	default:
		expanded, err := r.expandUser(dir)
		if err != nil {
			return "", err
		}
		out = expanded
	}

	if !r.fileWritable(out) {
		return "", model.Configurationf("Directory (%s) is not writeable", out)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", model.Configurationf("Directory (%s) is not writeable: %v", out, err)
	}
	return out, nil
}

// fileWritable checks the path itself when it exists, otherwise its parent.
func (r *Resolver) fileWritable(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return r.Writable(path)
	}
	return r.Writable(filepath.Dir(path))
}

func (r *Resolver) expandUser(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := r.HomeDir()
	if err != nil {
		return "", model.Configurationf("Cannot expand %s: %v", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
