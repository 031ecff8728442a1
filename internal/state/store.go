// Package state owns the canonical project.json document: creation, load,
// atomic save, validation, and the per-project locks that serialize every
// mutation.
package state

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

const timeLayout = "2006-01-02T15:04:05"

type ProjectSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Aspect    string `json:"aspect"`
	Style     string `json:"style_preset"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Location  string `json:"location"`
	Sequences int    `json:"sequences"`
	Shots     int    `json:"shots"`
	CastSize  int    `json:"cast"`
}

type NewProjectParams struct {
	Title            string
	StylePreset      string
	Aspect           domain.Aspect
	LLMPreference    string
	ImageModelChoice domain.ImageModel
	VideoModelChoice string
	UseWhisper       bool
	ProjectLocation  string
}

type StateStore interface {
	NewProject(params NewProjectParams) (*domain.State, error)
	Load(projectID string) (*domain.State, error)
	Save(state *domain.State, validate, force bool) error
	Validate(state *domain.State, strict bool) (bool, []string, error)
	Delete(projectID string) error
	List() ([]ProjectSummary, error)
	Import(doc []byte) (*domain.State, error)
	WithProjectLock(projectID string, fn func() error) error
}

type stateStore struct {
	log      *logger.Logger
	paths    paths.PathManager
	registry *lockRegistry
	http     *http.Client
}

func NewStateStore(log *logger.Logger, pm paths.PathManager) StateStore {
	return &stateStore{
		log:      log.With("service", "StateStore"),
		paths:    pm,
		registry: newLockRegistry(),
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *stateStore) NewProject(params NewProjectParams) (*domain.State, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("project title required: %w", apperr.ErrInvalidArgument)
	}
	aspect := params.Aspect
	if aspect == "" {
		aspect = domain.AspectHorizontal
	}
	if !aspect.Valid() {
		return nil, fmt.Errorf("invalid aspect %q: %w", params.Aspect, apperr.ErrInvalidArgument)
	}
	choice := params.ImageModelChoice
	if choice == "" {
		choice = domain.ImageModelNanoBanana
	}
	now := time.Now().Format(timeLayout)

	st := &domain.State{
		Project: domain.Project{
			ID:               uuid.NewString(),
			Title:            strings.TrimSpace(params.Title),
			StylePreset:      params.StylePreset,
			Aspect:           aspect,
			LLMPreference:    params.LLMPreference,
			ImageModelChoice: choice,
			VideoModelChoice: params.VideoModelChoice,
			UseWhisper:       params.UseWhisper,
			CreatedAt:        now,
			UpdatedAt:        now,
			CreatedVersion:   domain.Version,
			ProjectLocation:  params.ProjectLocation,
			RenderModels:     domain.LockRenderModels(choice),
		},
		Cast: []domain.CastMember{},
		CastMatrix: domain.CastMatrix{
			CharacterRefs: map[string]*domain.CharacterRefs{},
			Scenes:        []domain.Scene{},
		},
		Storyboard: domain.Storyboard{
			Sequences: []domain.Sequence{},
			Shots:     []domain.Shot{},
		},
		Costs: &domain.CostLedger{},
	}
	if err := s.Save(st, false, false); err != nil {
		return nil, err
	}
	s.log.Info("Project created", "project_id", st.Project.ID, "title", st.Project.Title)
	return st, nil
}

func readStateFile(path string) (*domain.State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st domain.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &st, nil
}

func parseTS(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// findCopies locates every project.json under the workspace projects dir
// whose project.id matches, plus the project_location copy those documents
// point at.
func (s *stateStore) findCopies(projectID string) []string {
	var found []string
	seen := map[string]bool{}
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return
		}
		if !seen[abs] {
			seen[abs] = true
			found = append(found, abs)
		}
	}

	pattern := filepath.Join(s.paths.WorkspaceRoot(), "projects", "*", "project.json")
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		st, err := readStateFile(m)
		if err != nil || st.Project.ID != projectID {
			continue
		}
		add(m)
		if st.Project.ProjectLocation != "" {
			add(filepath.Join(st.Project.ProjectLocation, "project.json"))
		}
	}
	return found
}

func (s *stateStore) Load(projectID string) (*domain.State, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id required: %w", apperr.ErrInvalidArgument)
	}
	var best *domain.State
	for _, path := range s.findCopies(projectID) {
		st, err := readStateFile(path)
		if err != nil {
			continue
		}
		if st.Project.ID != projectID {
			continue
		}
		if best == nil || parseTS(st.Project.UpdatedAt).After(parseTS(best.Project.UpdatedAt)) {
			best = st
		}
	}
	if best == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}

	normalize(best)

	changed := s.recoverOrphanedRenders(best)
	if s.migrateExternalToLocal(best) {
		changed = true
	}
	if changed {
		if err := s.Save(best, false, true); err != nil {
			s.log.Warn("Post-load save failed", "project_id", projectID, "error", err.Error())
		}
	}
	if ok, errs, _ := s.Validate(best, false); !ok {
		s.log.Warn("Loaded project has validation issues", "project_id", projectID, "issues", len(errs))
	}
	return best, nil
}

// normalize fills subtrees that older documents may omit so callers never
// nil-check the containers.
func normalize(st *domain.State) {
	if st.Cast == nil {
		st.Cast = []domain.CastMember{}
	}
	if st.CastMatrix.CharacterRefs == nil {
		st.CastMatrix.CharacterRefs = map[string]*domain.CharacterRefs{}
	}
	if st.CastMatrix.Scenes == nil {
		st.CastMatrix.Scenes = []domain.Scene{}
	}
	if st.Storyboard.Sequences == nil {
		st.Storyboard.Sequences = []domain.Sequence{}
	}
	if st.Storyboard.Shots == nil {
		st.Storyboard.Shots = []domain.Shot{}
	}
	if st.Costs == nil {
		st.Costs = &domain.CostLedger{}
	}
	if st.Project.RenderModels.ImageModel == "" {
		st.Project.RenderModels = domain.LockRenderModels(st.Project.ImageModelChoice)
	}
}

func (s *stateStore) Save(st *domain.State, validate, force bool) error {
	if st == nil || st.Project.ID == "" {
		return fmt.Errorf("state has no project id: %w", apperr.ErrInvalidArgument)
	}
	if st.Project.CreatedVersion != domain.Version {
		if !force {
			return fmt.Errorf("project version %s does not match %s (use force to migrate): %w",
				st.Project.CreatedVersion, domain.Version, apperr.ErrConflict)
		}
		s.log.Info("Migrating project version",
			"project_id", st.Project.ID,
			"from", st.Project.CreatedVersion,
			"to", domain.Version,
		)
		st.Project.CreatedVersion = domain.Version
	}
	st.Project.UpdatedAt = time.Now().Format(timeLayout)

	if validate {
		if _, _, err := s.Validate(st, true); err != nil {
			return err
		}
	} else if ok, errs, _ := s.Validate(st, false); !ok {
		for _, e := range errs {
			s.log.Warn("Validation issue", "project_id", st.Project.ID, "issue", e)
		}
	}

	folder, err := s.paths.ProjectFolder(st)
	if err != nil {
		return err
	}
	target := filepath.Join(folder, "project.json")

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := renameio.WriteFile(target, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	// A single canonical document: drop stale stub copies elsewhere.
	for _, copyPath := range s.findCopies(st.Project.ID) {
		if copyPath != target {
			_ = os.Remove(copyPath)
		}
	}
	return nil
}

func (s *stateStore) Delete(projectID string) error {
	copies := s.findCopies(projectID)
	if len(copies) == 0 {
		return fmt.Errorf("project %s: %w", projectID, apperr.ErrNotFound)
	}
	for _, copyPath := range copies {
		dir := filepath.Dir(copyPath)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("delete project folder %s: %w", dir, err)
		}
	}
	s.log.Info("Project deleted", "project_id", projectID)
	return nil
}

func (s *stateStore) List() ([]ProjectSummary, error) {
	pattern := filepath.Join(s.paths.WorkspaceRoot(), "projects", "*", "project.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("scan projects: %w", err)
	}
	byID := map[string]ProjectSummary{}
	for _, m := range matches {
		st, err := readStateFile(m)
		if err != nil || st.Project.ID == "" {
			continue
		}
		row := ProjectSummary{
			ID:        st.Project.ID,
			Title:     st.Project.Title,
			Aspect:    string(st.Project.Aspect),
			Style:     st.Project.StylePreset,
			CreatedAt: st.Project.CreatedAt,
			UpdatedAt: st.Project.UpdatedAt,
			Location:  filepath.Dir(m),
			Sequences: len(st.Storyboard.Sequences),
			Shots:     len(st.Storyboard.Shots),
			CastSize:  len(st.Cast),
		}
		if prev, ok := byID[st.Project.ID]; !ok || parseTS(row.UpdatedAt).After(parseTS(prev.UpdatedAt)) {
			byID[st.Project.ID] = row
		}
	}
	out := make([]ProjectSummary, 0, len(byID))
	for _, row := range byID {
		out = append(out, row)
	}
	return out, nil
}

func (s *stateStore) Import(doc []byte) (*domain.State, error) {
	var st domain.State
	if err := json.Unmarshal(doc, &st); err != nil {
		return nil, fmt.Errorf("parse import document: %w: %v", apperr.ErrInvalidArgument, err)
	}
	if st.Project.Title == "" {
		return nil, fmt.Errorf("import document has no project title: %w", apperr.ErrInvalidArgument)
	}
	if st.Project.ID == "" {
		st.Project.ID = uuid.NewString()
	}
	if st.Project.CreatedAt == "" {
		st.Project.CreatedAt = time.Now().Format(timeLayout)
	}
	// An imported document refers to another machine's paths.
	st.Project.ProjectLocation = ""
	normalize(&st)
	if err := s.Save(&st, false, true); err != nil {
		return nil, err
	}
	s.log.Info("Project imported", "project_id", st.Project.ID, "title", st.Project.Title)
	return &st, nil
}

// recoverOrphanedRenders re-links files that exist on disk but are missing
// from state, which happens when a save is interrupted after a download.
func (s *stateStore) recoverOrphanedRenders(st *domain.State) bool {
	rendersDir, err := s.paths.RendersDir(st)
	if err != nil {
		return false
	}
	exts := map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}
	changed := false

	findFile := func(prefix string) string {
		matches, _ := filepath.Glob(filepath.Join(rendersDir, prefix+"*"))
		for _, m := range matches {
			if exts[strings.ToLower(filepath.Ext(m))] {
				return m
			}
		}
		return ""
	}

	for i := range st.Storyboard.Shots {
		shot := &st.Storyboard.Shots[i]
		if shot.Render.ImageURL != "" {
			continue
		}
		path := findFile(fmt.Sprintf("%s_%s", st.Project.ID, shot.ShotID))
		if path == "" {
			continue
		}
		if url, err := s.paths.ToURL(path); err == nil {
			shot.Render.ImageURL = url
			shot.Render.Status = domain.RenderDone
			changed = true
			s.log.Info("Recovered orphaned render", "shot_id", shot.ShotID)
		}
	}
	for i := range st.CastMatrix.Scenes {
		scene := &st.CastMatrix.Scenes[i]
		if len(scene.DecorRefs) > 0 {
			continue
		}
		path := findFile(fmt.Sprintf("%s_%s_decor", st.Project.ID, scene.SceneID))
		if path == "" {
			continue
		}
		if url, err := s.paths.ToURL(path); err == nil {
			scene.DecorRefs = []string{url}
			changed = true
			s.log.Info("Recovered orphaned decor", "scene_id", scene.SceneID)
		}
	}
	return changed
}

// migrateExternalToLocal downloads remote generation URLs still referenced by
// state into the project folder and rewrites them to /files/ URLs, so the
// project stays usable after the remote copies expire.
func (s *stateStore) migrateExternalToLocal(st *domain.State) bool {
	rendersDir, err := s.paths.RendersDir(st)
	if err != nil {
		return false
	}
	changed := false
	migrate := func(url, baseName string) string {
		if url == "" || !strings.HasPrefix(url, "http") {
			return url
		}
		local, err := s.download(url, rendersDir, baseName)
		if err != nil {
			s.log.Warn("Failed to migrate external file", "url", url, "error", err.Error())
			return url
		}
		fileURL, err := s.paths.ToURL(local)
		if err != nil {
			return url
		}
		changed = true
		return fileURL
	}

	for i := range st.Storyboard.Shots {
		shot := &st.Storyboard.Shots[i]
		shot.Render.ImageURL = migrate(shot.Render.ImageURL, fmt.Sprintf("%s_%s", st.Project.ID, shot.ShotID))
	}
	for id, refs := range st.CastMatrix.CharacterRefs {
		if refs == nil {
			continue
		}
		refs.RefA = migrate(refs.RefA, fmt.Sprintf("%s_%s_ref_a", st.Project.ID, id))
		refs.RefB = migrate(refs.RefB, fmt.Sprintf("%s_%s_ref_b", st.Project.ID, id))
	}
	for i := range st.CastMatrix.Scenes {
		scene := &st.CastMatrix.Scenes[i]
		for j, ref := range scene.DecorRefs {
			scene.DecorRefs[j] = migrate(ref, fmt.Sprintf("%s_%s_decor%d", st.Project.ID, scene.SceneID, j))
		}
		scene.DecorAlt = migrate(scene.DecorAlt, fmt.Sprintf("%s_%s_decor_alt", st.Project.ID, scene.SceneID))
		scene.WardrobeRef = migrate(scene.WardrobeRef, fmt.Sprintf("%s_%s_wardrobe", st.Project.ID, scene.SceneID))
	}
	st.Project.StyleLockImage = migrate(st.Project.StyleLockImage, st.Project.ID+"_style_lock")
	return changed
}

func (s *stateStore) download(url, dir, baseName string) (string, error) {
	resp, err := s.http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: http %d", url, resp.StatusCode)
	}
	ext := ".png"
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "jpeg") {
		ext = ".jpg"
	} else if strings.Contains(resp.Header.Get("Content-Type"), "webp") {
		ext = ".webp"
	}
	target := filepath.Join(dir, baseName+ext)
	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return target, nil
}
