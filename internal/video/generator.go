package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

// Video generation parallelism across all projects.
const defaultVideoPermits = 8

const defaultMotionPrompt = "Natural cinematic motion, smooth camera movement"

type BatchResult struct {
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Skipped int               `json:"skipped"`
	Total   int               `json:"total"`
	Errors  map[string]string `json:"errors"`
}

type Generator interface {
	GenerateShotVideo(ctx context.Context, projectID, shotID, modelKey string) (*domain.ShotVideo, error)
	GenerateBatch(ctx context.Context, projectID string, shotIDs []string, modelKey string) (*BatchResult, error)
}

type generator struct {
	log      *logger.Logger
	store    state.StateStore
	paths    paths.PathManager
	fal      clients.FALClient
	costs    costs.CostTracker
	uploader media.Uploader
	http     *http.Client
	permits  int
}

func NewGenerator(
	log *logger.Logger,
	store state.StateStore,
	pm paths.PathManager,
	fal clients.FALClient,
	tracker costs.CostTracker,
	uploader media.Uploader,
) Generator {
	return &generator{
		log:      log.With("service", "VideoGenerator"),
		store:    store,
		paths:    pm,
		fal:      fal,
		costs:    tracker,
		uploader: uploader,
		http:     &http.Client{Timeout: 120 * time.Second},
		permits:  utils.GetEnvAsInt("RENDER_VIDEO_PERMITS", defaultVideoPermits, log),
	}
}

// MotionPrompt derives the img2vid motion guidance from the shot: camera
// language, an energy-based motion hint, environment and up to two symbolic
// elements.
func MotionPrompt(shot *domain.Shot) string {
	var parts []string
	if camera := strings.TrimSpace(shot.CameraLanguage); camera != "" {
		parts = append(parts, camera)
	}
	if shot.Energy > 0.7 {
		parts = append(parts, "dynamic motion")
	} else if shot.Energy < 0.3 {
		parts = append(parts, "subtle motion")
	}
	if env := strings.TrimSpace(shot.Environment); env != "" {
		parts = append(parts, env)
	}
	symbolic := shot.SymbolicElements
	if len(symbolic) > 2 {
		symbolic = symbolic[:2]
	}
	parts = append(parts, symbolic...)
	if len(parts) == 0 {
		return defaultMotionPrompt
	}
	return strings.Join(parts, ", ")
}

func (g *generator) GenerateShotVideo(ctx context.Context, projectID, shotID, modelKey string) (*domain.ShotVideo, error) {
	st, err := g.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	shot := st.FindShot(shotID)
	if shot == nil {
		return nil, fmt.Errorf("shot %s: %w", shotID, apperr.ErrNotFound)
	}
	video, dirty, err := g.generate(ctx, st, shot, modelKey)
	if err != nil {
		return nil, err
	}
	if err := g.saveShotVideo(projectID, shotID, video, st, dirty); err != nil {
		return nil, err
	}
	return video, nil
}

func (g *generator) generate(ctx context.Context, st *domain.State, shot *domain.Shot, modelKey string) (*domain.ShotVideo, bool, error) {
	if shot.Render.ImageURL == "" {
		return nil, false, fmt.Errorf("shot %s has no rendered image: %w", shot.ShotID, apperr.ErrInvalidArgument)
	}
	target := shot.Duration()
	if target <= 0 {
		return nil, false, fmt.Errorf("shot %s has invalid duration %.2f: %w", shot.ShotID, target, apperr.ErrInvalidArgument)
	}

	if modelKey == "" {
		modelKey = st.Project.VideoModelChoice
	}
	model := Lookup(modelKey)

	genDuration := utils.Clamp(target, model.MinDuration, model.MaxDuration)
	motionPrompt := MotionPrompt(shot)

	imageURL, dirty, err := g.uploader.ExternalRef(ctx, st, shot.Render.ImageURL)
	if err != nil {
		return nil, false, fmt.Errorf("upload shot image: %w", err)
	}

	g.log.Info("generating shot video",
		"shot_id", shot.ShotID, "model", model.Key,
		"target", target, "duration", genDuration)

	result, err := g.fal.ImageToVideo(ctx, clients.VideoRequest{
		ModelKey:    model.Key,
		Endpoint:    model.Endpoint,
		ImageURL:    imageURL,
		Prompt:      motionPrompt,
		DurationSec: genDuration,
		Aspect:      st.Project.Aspect,
	})
	if err != nil {
		return nil, dirty, err
	}
	g.costs.Track(st, strings.TrimPrefix(model.Endpoint, "/"), 1, "shot_video")

	videoURL := result.VideoURL
	localPath := ""
	if dir, err := g.paths.VideoDir(st); err == nil {
		dst := filepath.Join(dir, "video_"+shot.ShotID+".mp4")
		if err := g.download(ctx, result.VideoURL, dst); err != nil {
			g.log.Warn("video download failed, keeping remote url", "shot_id", shot.ShotID, "error", err)
		} else if url, err := g.paths.ToURL(dst); err == nil {
			videoURL = url
			localPath = dst
		}
	}

	return &domain.ShotVideo{
		VideoURL:       videoURL,
		LocalPath:      localPath,
		Duration:       result.RequestedSec,
		TargetDuration: target,
		Model:          model.Key,
		HasAudio:       model.SupportsAudio,
		GeneratedAt:    utils.NowISO(),
		MotionPrompt:   motionPrompt,
	}, dirty, nil
}

// GenerateBatch produces videos for every selected shot that has an image
// and no video yet, bounded by the video permit pool.
func (g *generator) GenerateBatch(ctx context.Context, projectID string, shotIDs []string, modelKey string) (*BatchResult, error) {
	st, err := g.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	if modelKey == "" {
		modelKey = st.Project.VideoModelChoice
	}

	wanted := map[string]bool{}
	for _, id := range shotIDs {
		wanted[id] = true
	}

	var targets []string
	result := &BatchResult{Errors: map[string]string{}}
	for i := range st.Storyboard.Shots {
		shot := &st.Storyboard.Shots[i]
		if len(wanted) > 0 && !wanted[shot.ShotID] {
			continue
		}
		if shot.Render.ImageURL == "" {
			continue
		}
		result.Total++
		if shot.Render.Video != nil && shot.Render.Video.VideoURL != "" {
			result.Skipped++
			continue
		}
		targets = append(targets, shot.ShotID)
	}

	var mu sync.Mutex
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(g.permits)
	for _, shotID := range targets {
		grp.Go(func() error {
			_, err := g.GenerateShotVideo(grpCtx, projectID, shotID, modelKey)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors[shotID] = err.Error()
				g.log.Warn("shot video failed", "shot_id", shotID, "error", err)
			} else {
				result.Success++
			}
			// Failures are collected, not propagated: one bad shot must not
			// cancel the rest of the batch.
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return result, err
	}
	g.log.Info("video batch complete", "project_id", projectID,
		"success", result.Success, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (g *generator) saveShotVideo(projectID, shotID string, video *domain.ShotVideo, generated *domain.State, cacheDirty bool) error {
	return g.store.WithProjectLock(projectID, func() error {
		fresh, err := g.store.Load(projectID)
		if err != nil {
			return err
		}
		shot := fresh.FindShot(shotID)
		if shot == nil {
			return fmt.Errorf("shot %s vanished during generation: %w", shotID, apperr.ErrNotFound)
		}
		shot.Render.Video = video
		if cacheDirty && len(generated.Project.FalUploadCache) > 0 {
			if fresh.Project.FalUploadCache == nil {
				fresh.Project.FalUploadCache = map[string]string{}
			}
			for k, v := range generated.Project.FalUploadCache {
				fresh.Project.FalUploadCache[k] = v
			}
		}
		if generated.Costs != nil {
			fresh.Costs = generated.Costs
		}
		return g.store.Save(fresh, true, false)
	})
}

func (g *generator) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, body, 0o644)
}
