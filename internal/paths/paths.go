// Package paths resolves where a project's files live on disk and how they
// are exposed over HTTP. Every generated artifact is stored under the
// project folder and served through /files/<relative-path>; remote URLs pass
// through untouched.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

type PathManager interface {
	WorkspaceRoot() string
	ProjectFolder(state *domain.State) (string, error)
	RendersDir(state *domain.State) (string, error)
	AudioDir(state *domain.State) (string, error)
	VideoDir(state *domain.State) (string, error)
	ExportsDir(state *domain.State) (string, error)
	LLMDir(state *domain.State) (string, error)
	TempDir() (string, error)
	ToURL(absPath string) (string, error)
	FromURL(url string, state *domain.State) (string, error)
	CreateTempFile(prefix, ext string) (string, error)
	CleanupTemp(maxAge time.Duration) (int, error)
}

type pathManager struct {
	log  *logger.Logger
	root string
}

func NewPathManager(log *logger.Logger, workspaceRoot string) (PathManager, error) {
	if workspaceRoot == "" {
		return nil, fmt.Errorf("workspace root is empty: %w", apperr.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &pathManager{
		log:  log.With("service", "PathManager"),
		root: abs,
	}, nil
}

func (p *pathManager) WorkspaceRoot() string { return p.root }

// ProjectFolder returns the project's on-disk folder, creating it on first
// use. An explicit project_location in the state wins; otherwise the folder
// is derived from the sanitized title and creation version so two projects
// with the same title made under different versions do not collide.
func (p *pathManager) ProjectFolder(state *domain.State) (string, error) {
	if state == nil {
		return "", fmt.Errorf("nil state: %w", apperr.ErrInvalidArgument)
	}
	folder := state.Project.ProjectLocation
	if folder == "" {
		name := utils.SanitizeFilename(state.Project.Title, 60)
		version := state.Project.CreatedVersion
		if version == "" {
			version = domain.Version
		}
		folder = filepath.Join(p.root, "projects", fmt.Sprintf("%s_v%s", name, version))
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create project folder: %w", err)
	}
	return folder, nil
}

func (p *pathManager) subdir(state *domain.State, name string) (string, error) {
	base, err := p.ProjectFolder(state)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", name, err)
	}
	return dir, nil
}

func (p *pathManager) RendersDir(state *domain.State) (string, error) {
	return p.subdir(state, "renders")
}

func (p *pathManager) AudioDir(state *domain.State) (string, error) {
	return p.subdir(state, "audio")
}

func (p *pathManager) VideoDir(state *domain.State) (string, error) {
	return p.subdir(state, "video")
}

func (p *pathManager) ExportsDir(state *domain.State) (string, error) {
	return p.subdir(state, "exports")
}

func (p *pathManager) LLMDir(state *domain.State) (string, error) {
	return p.subdir(state, "llm")
}

func (p *pathManager) TempDir() (string, error) {
	dir := filepath.Join(p.root, "temp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ToURL maps an absolute path inside the workspace to its /files/ URL.
// Remote URLs are returned unchanged. Paths outside the workspace happen when
// a project carries an explicit project_location elsewhere on disk; those map
// to /files/<basename> and resolve back through the project folder search.
func (p *pathManager) ToURL(absPath string) (string, error) {
	if absPath == "" {
		return "", fmt.Errorf("empty path: %w", apperr.ErrInvalidArgument)
	}
	if isRemoteURL(absPath) {
		return absPath, nil
	}
	rel, err := filepath.Rel(p.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "/files/" + filepath.Base(absPath), nil
	}
	return "/files/" + filepath.ToSlash(rel), nil
}

// FromURL maps a /files/ URL (or a legacy /renders/ URL) back to an absolute
// path. Remote URLs cannot be resolved locally and return an error so callers
// download them instead. When direct resolution fails and project state is
// available, the file is searched across the project's media folders so URLs
// recorded before a project folder moved still resolve.
func (p *pathManager) FromURL(url string, state *domain.State) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty url: %w", apperr.ErrInvalidArgument)
	}
	if isRemoteURL(url) {
		return "", fmt.Errorf("remote url %q has no local path: %w", url, apperr.ErrNotFound)
	}
	if rel, ok := strings.CutPrefix(url, "/files/"); ok {
		abs := filepath.Join(p.root, filepath.FromSlash(rel))
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
		if state != nil {
			return p.searchProject(filepath.Base(filepath.FromSlash(rel)), state)
		}
		return "", fmt.Errorf("file for %q: %w", url, apperr.ErrNotFound)
	}
	if rel, ok := strings.CutPrefix(url, "/renders/"); ok {
		return p.searchProject(filepath.Base(filepath.FromSlash(rel)), state)
	}
	// Bare absolute path stored by an older version.
	if filepath.IsAbs(url) {
		if _, err := os.Stat(url); err == nil {
			return url, nil
		}
	}
	return "", fmt.Errorf("unrecognized url %q: %w", url, apperr.ErrNotFound)
}

func (p *pathManager) searchProject(filename string, state *domain.State) (string, error) {
	if state == nil {
		return "", fmt.Errorf("url search needs project context: %w", apperr.ErrInvalidArgument)
	}
	base, err := p.ProjectFolder(state)
	if err != nil {
		return "", err
	}
	for _, sub := range []string{"renders", "video", "audio", ""} {
		candidate := filepath.Join(base, sub, filename)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("file %q not in project folders: %w", filename, apperr.ErrNotFound)
}

// CreateTempFile reserves a unique file path under the temp dir. The file is
// created empty so concurrent callers never race on the same name.
func (p *pathManager) CreateTempFile(prefix, ext string) (string, error) {
	dir, err := p.TempDir()
	if err != nil {
		return "", err
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%s_%s%s", prefix, uuid.NewString()[:8], ext)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	_ = f.Close()
	return path, nil
}

// CleanupTemp removes temp files older than maxAge and reports how many were
// deleted.
func (p *pathManager) CleanupTemp(maxAge time.Duration) (int, error) {
	dir, err := p.TempDir()
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(filepath.Join(dir, e.Name())); rmErr == nil {
				removed++
			} else {
				p.log.Warn("Failed to remove temp file", "file", e.Name(), "error", rmErr.Error())
			}
		}
	}
	if removed > 0 {
		p.log.Info("Temp cleanup complete", "removed", removed)
	}
	return removed, nil
}
