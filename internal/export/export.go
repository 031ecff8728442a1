package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
	"github.com/BXLSTNRD/FrePathe/internal/video"
)

const (
	ModeStills  = "stills"
	ModeImg2Vid = "img2vid"

	defaultWidth  = 1920
	defaultHeight = 1080
	defaultFPS    = 25

	// A generated clip within this much of its storyboard slot is used
	// as-is; beyond it the clip is trimmed.
	durationTolerance = 0.1
)

type Options struct {
	Mode         string  `json:"mode"`
	FadeDuration float64 `json:"fade_duration"`
	FPS          int     `json:"fps"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	VideoModel   string  `json:"video_model"`
}

type Result struct {
	VideoURL         string   `json:"video_url"`
	ShotsExported    int      `json:"shots_exported"`
	DurationSec      float64  `json:"duration_sec"`
	SceneTransitions int      `json:"scene_transitions"`
	SkippedShots     []string `json:"skipped_shots"`
	GenerationTime   float64  `json:"generation_time,omitempty"`
	VideoModel       string   `json:"video_model,omitempty"`
}

type Exporter interface {
	Export(ctx context.Context, projectID string, opts Options) (*Result, error)
	Status(projectID string) Status
	ContactSheet(ctx context.Context, projectID string) (string, error)
}

type exporter struct {
	log    *logger.Logger
	store  state.StateStore
	paths  paths.PathManager
	muxer  media.Muxer
	videos video.Generator
	status *StatusStore
}

func NewExporter(
	log *logger.Logger,
	store state.StateStore,
	pm paths.PathManager,
	muxer media.Muxer,
	videos video.Generator,
	status *StatusStore,
) Exporter {
	return &exporter{
		log:    log.With("service", "Exporter"),
		store:  store,
		paths:  pm,
		muxer:  muxer,
		videos: videos,
		status: status,
	}
}

func (e *exporter) Status(projectID string) Status {
	return e.status.Get(projectID)
}

func (e *exporter) Export(ctx context.Context, projectID string, opts Options) (*Result, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = defaultWidth, defaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	if opts.Mode == "" {
		opts.Mode = ModeStills
	}

	result, err := e.export(ctx, projectID, opts)
	if err != nil {
		e.status.Set(projectID, StatusError, 0, 0, err.Error())
		return nil, err
	}
	e.status.Set(projectID, StatusDone, result.ShotsExported, result.ShotsExported, "export complete")
	return result, nil
}

func (e *exporter) export(ctx context.Context, projectID string, opts Options) (*Result, error) {
	st, err := e.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	if st.AudioFile == "" {
		return nil, fmt.Errorf("project has no audio file: %w", apperr.ErrInvalidArgument)
	}
	audioPath, err := e.paths.FromURL(st.AudioFile, st)
	if err != nil {
		return nil, fmt.Errorf("resolve audio file: %w", err)
	}

	shots := renderedShots(st)
	if len(shots) == 0 {
		return nil, fmt.Errorf("no rendered shots to export: %w", apperr.ErrInvalidArgument)
	}

	folder, err := e.paths.ProjectFolder(st)
	if err != nil {
		return nil, err
	}
	tempDir := filepath.Join(folder, "temp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	videoDir, err := e.paths.VideoDir(st)
	if err != nil {
		return nil, err
	}

	switch opts.Mode {
	case ModeImg2Vid:
		return e.exportImg2Vid(ctx, projectID, st, shots, audioPath, tempDir, videoDir, opts)
	default:
		return e.exportStills(ctx, projectID, st, shots, audioPath, tempDir, videoDir, opts)
	}
}

func (e *exporter) exportStills(ctx context.Context, projectID string, st *domain.State, shots []*domain.Shot, audioPath, tempDir, videoDir string, opts Options) (*Result, error) {
	var clips []string
	var clipSeqs []string
	var skipped []string

	total := len(shots)
	for i, shot := range shots {
		e.status.Set(projectID, StatusProcessing, i+1, total, "rendering clip "+shot.ShotID)

		dur := shot.Duration()
		if dur <= 0 {
			skipped = append(skipped, shot.ShotID)
			continue
		}
		imgPath, err := e.paths.FromURL(shot.Render.ImageURL, st)
		if err != nil {
			e.log.Warn("shot image missing, skipping", "shot_id", shot.ShotID, "error", err)
			skipped = append(skipped, shot.ShotID)
			continue
		}

		clip := filepath.Join(tempDir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := e.muxer.ImageToClip(ctx, imgPath, dur, opts.Width, opts.Height, opts.FPS, clip); err != nil {
			return nil, fmt.Errorf("clip for %s: %w", shot.ShotID, err)
		}
		clips = append(clips, clip)
		clipSeqs = append(clipSeqs, shot.SequenceID)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("all shots skipped: %w", apperr.ErrInvalidArgument)
	}

	e.status.Set(projectID, StatusProcessing, total, total, "concatenating")
	out := filepath.Join(videoDir, utils.SanitizeFilename(st.Project.Title, 60)+"_export.mp4")
	if err := e.muxer.Concat(ctx, clips, audioPath, out); err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	cleanupClips(clips)

	dur, err := e.muxer.ProbeDuration(ctx, out)
	if err != nil {
		e.log.Warn("probe of export failed", "path", out, "error", err)
	}
	url, err := e.paths.ToURL(out)
	if err != nil {
		return nil, err
	}
	return &Result{
		VideoURL:         url,
		ShotsExported:    len(clips),
		DurationSec:      utils.Round3(dur),
		SceneTransitions: transitions(clipSeqs),
		SkippedShots:     skipped,
	}, nil
}

func (e *exporter) exportImg2Vid(ctx context.Context, projectID string, st *domain.State, shots []*domain.Shot, audioPath, tempDir, videoDir string, opts Options) (*Result, error) {
	started := time.Now()
	total := len(shots)

	// Generate any missing clips first, then reload so the fitted timings
	// below see the freshly stored video entries.
	modelKey := opts.VideoModel
	regenerated := false
	for i, shot := range shots {
		if shot.Render.Video != nil && shot.Render.Video.VideoURL != "" {
			continue
		}
		e.status.Set(projectID, StatusProcessing, i+1, total, "generating video "+shot.ShotID)
		if _, err := e.videos.GenerateShotVideo(ctx, projectID, shot.ShotID, modelKey); err != nil {
			return nil, fmt.Errorf("generate video for %s: %w", shot.ShotID, err)
		}
		regenerated = true
	}
	if regenerated {
		fresh, err := e.store.Load(projectID)
		if err != nil {
			return nil, err
		}
		st = fresh
		shots = renderedShots(st)
	}

	var clips []string
	var clipSeqs []string
	var skipped []string
	usedModel := modelKey

	for i, shot := range shots {
		e.status.Set(projectID, StatusProcessing, i+1, total, "fitting clip "+shot.ShotID)
		v := shot.Render.Video
		if v == nil || v.VideoURL == "" {
			skipped = append(skipped, shot.ShotID)
			continue
		}
		if usedModel == "" {
			usedModel = v.Model
		}

		src := v.LocalPath
		if src == "" {
			resolved, err := e.paths.FromURL(v.VideoURL, st)
			if err != nil {
				e.log.Warn("shot video missing, skipping", "shot_id", shot.ShotID, "error", err)
				skipped = append(skipped, shot.ShotID)
				continue
			}
			src = resolved
		}

		actual := v.Duration
		if probed, err := e.muxer.ProbeDuration(ctx, src); err == nil && probed > 0 {
			actual = probed
		}
		target := v.TargetDuration
		if target <= 0 {
			target = shot.Duration()
		}

		fitted, err := e.fitClip(ctx, src, actual, target, filepath.Join(tempDir, fmt.Sprintf("clip_%03d.mp4", i)))
		if err != nil {
			return nil, fmt.Errorf("fit clip for %s: %w", shot.ShotID, err)
		}
		clips = append(clips, fitted)
		clipSeqs = append(clipSeqs, shot.SequenceID)
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("no shot videos to export: %w", apperr.ErrInvalidArgument)
	}

	e.status.Set(projectID, StatusProcessing, total, total, "concatenating")
	out := filepath.Join(videoDir, utils.SanitizeFilename(st.Project.Title, 60)+"_img2vid_export.mp4")
	if err := e.muxer.Concat(ctx, clips, audioPath, out); err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	cleanupClips(clips)

	dur, err := e.muxer.ProbeDuration(ctx, out)
	if err != nil {
		e.log.Warn("probe of export failed", "path", out, "error", err)
	}
	url, err := e.paths.ToURL(out)
	if err != nil {
		return nil, err
	}
	return &Result{
		VideoURL:         url,
		ShotsExported:    len(clips),
		DurationSec:      utils.Round3(dur),
		SceneTransitions: transitions(clipSeqs),
		SkippedShots:     skipped,
		GenerationTime:   utils.Round3(time.Since(started).Seconds()),
		VideoModel:       usedModel,
	}, nil
}

// fitClip fits a generated clip into its storyboard slot. Overlong clips
// are trimmed with a fast stream copy to keep natural motion; short clips
// (or failed trims) are retimed so the played duration equals the target.
func (e *exporter) fitClip(ctx context.Context, src string, actual, target float64, dst string) (string, error) {
	if target <= 0 || actual <= 0 {
		return src, nil
	}
	if actual > target+durationTolerance {
		if err := e.muxer.Trim(ctx, src, target, dst); err == nil {
			return dst, nil
		}
		e.log.Warn("trim failed, falling back to speed adjust", "src", src)
		if err := e.muxer.SpeedAdjust(ctx, src, actual/target, dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	if actual < target {
		if err := e.muxer.SpeedAdjust(ctx, src, actual/target, dst); err != nil {
			return "", err
		}
		return dst, nil
	}
	return src, nil
}

func renderedShots(st *domain.State) []*domain.Shot {
	var shots []*domain.Shot
	for i := range st.Storyboard.Shots {
		if st.Storyboard.Shots[i].Render.ImageURL != "" {
			shots = append(shots, &st.Storyboard.Shots[i])
		}
	}
	sort.SliceStable(shots, func(i, j int) bool { return shots[i].Start < shots[j].Start })
	return shots
}

// transitions counts sequence changes between adjacent exported clips.
func transitions(seqIDs []string) int {
	n := 0
	for i := 1; i < len(seqIDs); i++ {
		if seqIDs[i] != seqIDs[i-1] {
			n++
		}
	}
	return n
}

func cleanupClips(clips []string) {
	for _, clip := range clips {
		if strings.Contains(clip, string(filepath.Separator)+"temp"+string(filepath.Separator)) {
			os.Remove(clip)
		}
	}
}
