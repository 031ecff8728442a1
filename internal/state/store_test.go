package state

import (
	"errors"
	"testing"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func newTestStore(t *testing.T) StateStore {
	t.Helper()
	pm, err := paths.NewPathManager(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewPathManager: %v", err)
	}
	return NewStateStore(logger.NewNop(), pm)
}

func TestNewProjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	created, err := store.NewProject(NewProjectParams{
		Title:       "Neon Nights",
		StylePreset: "anamorphic_cinema",
		Aspect:      domain.AspectHorizontal,
	})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if created.Project.ID == "" {
		t.Fatalf("project id empty")
	}
	if created.Project.RenderModels.ImageModel == "" {
		t.Fatalf("render models not locked on create")
	}

	loaded, err := store.Load(created.Project.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Project.Title != "Neon Nights" {
		t.Fatalf("title mismatch: %q", loaded.Project.Title)
	}
	if loaded.Cast == nil || loaded.Storyboard.Shots == nil || loaded.CastMatrix.CharacterRefs == nil {
		t.Fatalf("loaded state has nil containers")
	}
}

func TestNewProjectRequiresTitle(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.NewProject(NewProjectParams{Title: "   "}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNewProjectRejectsBadAspect(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.NewProject(NewProjectParams{Title: "x", Aspect: "4:3"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestLoadUnknownProject(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Load("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRejectsVersionMismatchWithoutForce(t *testing.T) {
	store := newTestStore(t)
	st, err := store.NewProject(NewProjectParams{Title: "v"})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	st.Project.CreatedVersion = "0.0.1"
	if err := store.Save(st, false, false); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := store.Save(st, false, true); err != nil {
		t.Fatalf("forced save: %v", err)
	}
	if st.Project.CreatedVersion != domain.Version {
		t.Fatalf("version not migrated: %q", st.Project.CreatedVersion)
	}
}

func TestValidateFlagsTimelineIssues(t *testing.T) {
	store := newTestStore(t)
	st, err := store.NewProject(NewProjectParams{Title: "bad timeline"})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	st.Storyboard.Sequences = []domain.Sequence{
		{SequenceID: "seq_01", Start: 10, End: 5},
	}
	valid, issues, err := store.Validate(st, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if valid || len(issues) == 0 {
		t.Fatalf("expected validation issues, got valid=%v issues=%v", valid, issues)
	}
}

func TestDeleteRemovesProject(t *testing.T) {
	store := newTestStore(t)
	st, err := store.NewProject(NewProjectParams{Title: "gone"})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if err := store.Delete(st.Project.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(st.Project.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListIncludesCreatedProjects(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.NewProject(NewProjectParams{Title: "one"}); err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	if _, err := store.NewProject(NewProjectParams{Title: "two"}); err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	rows, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(rows))
	}
}

func TestWithProjectLockSerializes(t *testing.T) {
	store := newTestStore(t)
	st, err := store.NewProject(NewProjectParams{Title: "locked"})
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.WithProjectLock(st.Project.ID, func() error {
			close(entered)
			<-release
			return nil
		})
		close(done)
	}()
	<-entered

	second := make(chan struct{})
	go func() {
		_ = store.WithProjectLock(st.Project.ID, func() error { return nil })
		close(second)
	}()
	time.Sleep(20 * time.Millisecond)

	select {
	case <-second:
		t.Fatalf("second lock acquired while first held")
	default:
	}
	close(release)
	<-done
	<-second
}
