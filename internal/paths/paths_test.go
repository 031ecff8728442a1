package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func newTestManager(t *testing.T) PathManager {
	t.Helper()
	pm, err := NewPathManager(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewPathManager: %v", err)
	}
	return pm
}

func testState() *domain.State {
	return &domain.State{
		Project: domain.Project{
			ID:    "p1",
			Title: "My Video",
		},
	}
}

func TestToURLRoundTrip(t *testing.T) {
	pm := newTestManager(t)
	st := testState()

	dir, err := pm.RendersDir(st)
	if err != nil {
		t.Fatalf("RendersDir: %v", err)
	}
	file := filepath.Join(dir, "shot_01.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	url, err := pm.ToURL(file)
	if err != nil {
		t.Fatalf("ToURL: %v", err)
	}
	if !strings.HasPrefix(url, "/files/") {
		t.Fatalf("expected /files/ url, got %q", url)
	}

	back, err := pm.FromURL(url, st)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if back != file {
		t.Fatalf("round trip mismatch: %q != %q", back, file)
	}
}

func TestToURLOutsideWorkspaceFallsBackToBasename(t *testing.T) {
	pm := newTestManager(t)
	url, err := pm.ToURL(filepath.Join(string(filepath.Separator), "elsewhere", "renders", "shot_01.png"))
	if err != nil {
		t.Fatalf("ToURL: %v", err)
	}
	if url != "/files/shot_01.png" {
		t.Fatalf("expected basename fallback, got %q", url)
	}
}

func TestFromURLFilesSearchesProjectOnMiss(t *testing.T) {
	pm := newTestManager(t)
	st := testState()
	dir, err := pm.RendersDir(st)
	if err != nil {
		t.Fatalf("RendersDir: %v", err)
	}
	file := filepath.Join(dir, "shot_01.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// A /files/ prefix recorded before the project folder moved no longer
	// matches anything under the workspace root directly.
	back, err := pm.FromURL("/files/old_location/renders/shot_01.png", st)
	if err != nil {
		t.Fatalf("FromURL stale prefix: %v", err)
	}
	if back != file {
		t.Fatalf("search mismatch: %q != %q", back, file)
	}

	// Without project context the miss stays a miss.
	if _, err := pm.FromURL("/files/old_location/renders/shot_01.png", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without state, got %v", err)
	}
}

func TestToURLPassesRemoteThrough(t *testing.T) {
	pm := newTestManager(t)
	url, err := pm.ToURL("https://cdn.example.com/img.png")
	if err != nil {
		t.Fatalf("ToURL: %v", err)
	}
	if url != "https://cdn.example.com/img.png" {
		t.Fatalf("remote url modified: %q", url)
	}
}

func TestFromURLRemoteIsNotFound(t *testing.T) {
	pm := newTestManager(t)
	if _, err := pm.FromURL("https://cdn.example.com/img.png", testState()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFromURLLegacyRendersSearch(t *testing.T) {
	pm := newTestManager(t)
	st := testState()
	dir, err := pm.VideoDir(st)
	if err != nil {
		t.Fatalf("VideoDir: %v", err)
	}
	file := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	back, err := pm.FromURL("/renders/clip.mp4", st)
	if err != nil {
		t.Fatalf("FromURL legacy: %v", err)
	}
	if back != file {
		t.Fatalf("legacy lookup mismatch: %q != %q", back, file)
	}
}

func TestProjectFolderUsesExplicitLocation(t *testing.T) {
	pm := newTestManager(t)
	st := testState()
	st.Project.ProjectLocation = filepath.Join(pm.WorkspaceRoot(), "custom", "spot")

	folder, err := pm.ProjectFolder(st)
	if err != nil {
		t.Fatalf("ProjectFolder: %v", err)
	}
	if folder != st.Project.ProjectLocation {
		t.Fatalf("expected explicit location, got %q", folder)
	}
}

func TestCreateTempFileUnique(t *testing.T) {
	pm := newTestManager(t)
	a, err := pm.CreateTempFile("clip", ".mp4")
	if err != nil {
		t.Fatalf("CreateTempFile: %v", err)
	}
	b, err := pm.CreateTempFile("clip", ".mp4")
	if err != nil {
		t.Fatalf("CreateTempFile: %v", err)
	}
	if a == b {
		t.Fatalf("temp files collide: %q", a)
	}
}

func TestCleanupTempRemovesOldFiles(t *testing.T) {
	pm := newTestManager(t)
	path, err := pm.CreateTempFile("old", ".tmp")
	if err != nil {
		t.Fatalf("CreateTempFile: %v", err)
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := pm.CleanupTemp(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupTemp: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("old temp file still present")
	}
}
