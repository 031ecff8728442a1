package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/styles"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

// Image generation parallelism across all projects.
const defaultImagePermits = 6

const thumbnailMaxWidth = 480

// closeupMarkers switch a shot from the full-body anchor to the portrait
// anchor when the camera language asks for a tight frame.
var closeupMarkers = []string{"close-up", "closeup", "portrait", "head shot", "face", "eyes"}

type ShotRenderResult struct {
	ShotID        string `json:"shot_id"`
	Prompt        string `json:"prompt"`
	ImageURL      string `json:"image_url"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Model         string `json:"model"`
	RefImagesUsed int    `json:"ref_images_used"`
}

type RenderStats struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Errored int `json:"errored"`
	Pending int `json:"pending"`
}

type Orchestrator interface {
	RenderShot(ctx context.Context, projectID, shotID, negativePrompt string) (*ShotRenderResult, error)
	EditShot(ctx context.Context, projectID, shotID, editPrompt string, extraCast []string, refImage string) (*ShotRenderResult, error)
	// Prewarm uploads every cast ref and scene decor not yet in the project
	// upload cache, so a following batch render never stalls on uploads.
	Prewarm(ctx context.Context, projectID string) (int, error)
	PendingShots(projectID string) ([]string, error)
	Stats(projectID string) (*RenderStats, error)
}

type orchestrator struct {
	log      *logger.Logger
	store    state.StateStore
	paths    paths.PathManager
	fal      clients.FALClient
	costs    costs.CostTracker
	dl       media.Downloader
	uploader media.Uploader
	muxer    media.Muxer
	sem      *semaphore.Weighted
}

func NewOrchestrator(
	log *logger.Logger,
	store state.StateStore,
	pm paths.PathManager,
	fal clients.FALClient,
	tracker costs.CostTracker,
	dl media.Downloader,
	uploader media.Uploader,
	muxer media.Muxer,
) Orchestrator {
	permits := utils.GetEnvAsInt("RENDER_IMAGE_PERMITS", defaultImagePermits, log)
	return &orchestrator{
		log:      log.With("service", "RenderOrchestrator"),
		store:    store,
		paths:    pm,
		fal:      fal,
		costs:    tracker,
		dl:       dl,
		uploader: uploader,
		muxer:    muxer,
		sem:      semaphore.NewWeighted(int64(permits)),
	}
}

// EnergyTokens maps shot energy onto motion/lighting vocabulary.
func EnergyTokens(e float64) []string {
	switch {
	case e <= 0.3:
		return []string{"quiet", "minimal motion", "slow camera"}
	case e <= 0.7:
		return []string{"steady motion", "medium intensity"}
	default:
		return []string{"high intensity", "aggressive motion", "dramatic lighting"}
	}
}

// BuildPrompt assembles the still prompt for one shot: style, aspect,
// energy vocabulary, the shot's own language, then the fixed negatives.
func BuildPrompt(st *domain.State, shot *domain.Shot) string {
	var parts []string
	parts = append(parts, styles.Tokens(st.Project.StylePreset)...)
	parts = append(parts, "aspect "+string(st.Project.Aspect))
	parts = append(parts, EnergyTokens(shot.Energy)...)
	parts = append(parts, shot.PromptBase, shot.CameraLanguage, shot.Environment)
	parts = append(parts, shot.SymbolicElements...)
	parts = append(parts, "no text", "no watermark", "no subtitles", "no logo")

	kept := parts[:0]
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}

// wardrobeSuffix appends per-cast wardrobe lines: the shot-level entry wins
// over the member's prompt_extra. At most two cast members contribute.
func wardrobeSuffix(st *domain.State, shot *domain.Shot) string {
	var parts []string
	castIDs := shot.Cast
	if len(castIDs) > 2 {
		castIDs = castIDs[:2]
	}
	for _, castID := range castIDs {
		member := st.FindCast(castID)
		if member == nil {
			continue
		}
		if w := strings.TrimSpace(shot.Wardrobe[castID]); w != "" {
			name := member.Name
			if name == "" {
				name = castID
			}
			parts = append(parts, name+": "+w)
		} else if extra := strings.TrimSpace(member.PromptExtra); extra != "" {
			parts = append(parts, extra)
		}
	}
	return strings.Join(parts, ", ")
}

// isCloseup reports whether the camera language asks for a tight frame.
func isCloseup(cameraLanguage string) bool {
	lower := strings.ToLower(cameraLanguage)
	for _, marker := range closeupMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// shotRefImages collects the img2img reference set for a shot: the scene
// decor plate, the scene wardrobe preview and one identity anchor per cast
// member (portrait for closeups, full body otherwise). The style lock image
// is deliberately absent here; it only anchors cast-ref generation.
func (o *orchestrator) shotRefImages(ctx context.Context, st *domain.State, shot *domain.Shot) (refs []string, dirty bool) {
	add := func(url string) {
		if url == "" {
			return
		}
		external, d, err := o.uploader.ExternalRef(ctx, st, url)
		if err != nil {
			o.log.Warn("reference upload failed, skipping", "url", url, "error", err)
			return
		}
		dirty = dirty || d
		refs = append(refs, external)
	}

	if scene := st.SceneForSequence(shot.SequenceID); scene != nil {
		if len(scene.DecorRefs) > 0 {
			add(scene.DecorRefs[0])
		}
		add(scene.WardrobeRef)
	}

	closeup := isCloseup(shot.CameraLanguage)
	castIDs := shot.Cast
	if len(castIDs) > 2 {
		castIDs = castIDs[:2]
	}
	for _, castID := range castIDs {
		cr := st.CastMatrix.CharacterRefs[castID]
		if cr == nil {
			continue
		}
		url := cr.RefA
		if closeup && cr.RefB != "" {
			url = cr.RefB
		}
		add(url)
	}
	return refs, dirty
}

func (o *orchestrator) RenderShot(ctx context.Context, projectID, shotID, negativePrompt string) (*ShotRenderResult, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire render slot: %w", err)
	}
	defer o.sem.Release(1)

	st, err := o.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	shot := st.FindShot(shotID)
	if shot == nil {
		return nil, fmt.Errorf("shot %s: %w", shotID, apperr.ErrNotFound)
	}

	prompt := BuildPrompt(st, shot)
	if negativePrompt = strings.TrimSpace(negativePrompt); negativePrompt != "" {
		prompt += ", " + negativePrompt
	}
	if suffix := wardrobeSuffix(st, shot); suffix != "" {
		prompt += ", " + suffix
	}

	refImages, cacheDirty := o.shotRefImages(ctx, st, shot)
	o.log.Info("rendering shot", "project_id", projectID, "shot_id", shotID, "refs", len(refImages))

	imgURL, model, err := o.generate(ctx, st, prompt, refImages)
	if err != nil {
		if ctx.Err() != nil {
			// A cancelled render leaves the shot status untouched.
			return nil, err
		}
		saveErr := o.saveShotRender(projectID, shotID, domain.Render{
			Status: domain.RenderError,
			Model:  model,
			Error:  err.Error(),
		}, st, cacheDirty)
		if saveErr != nil {
			o.log.Error("persist render error failed", "shot_id", shotID, "error", saveErr)
		}
		return nil, err
	}

	localURL := o.dl.FetchImage(ctx, st, imgURL, friendlyShotName(projectID, shotID))
	thumb := o.writeThumbnail(ctx, st, localURL)

	result := &ShotRenderResult{
		ShotID:        shotID,
		Prompt:        prompt,
		ImageURL:      localURL,
		Thumbnail:     thumb,
		Model:         model,
		RefImagesUsed: len(refImages),
	}
	renderState := domain.Render{
		Status:        domain.RenderDone,
		ImageURL:      localURL,
		Model:         model,
		RefImagesUsed: len(refImages),
	}
	if err := o.saveShotRender(projectID, shotID, renderState, st, cacheDirty); err != nil {
		return nil, err
	}
	return result, nil
}

// EditShot reworks an existing render through img2img: the current render is
// the primary reference, optionally joined by another shot's image and the
// identity anchors of extra cast members.
func (o *orchestrator) EditShot(ctx context.Context, projectID, shotID, editPrompt string, extraCast []string, refImage string) (*ShotRenderResult, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire render slot: %w", err)
	}
	defer o.sem.Release(1)

	st, err := o.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	shot := st.FindShot(shotID)
	if shot == nil {
		return nil, fmt.Errorf("shot %s: %w", shotID, apperr.ErrNotFound)
	}
	if shot.Render.ImageURL == "" {
		return nil, fmt.Errorf("shot has no render to edit: %w", apperr.ErrInvalidArgument)
	}

	var refs []string
	dirty := false
	add := func(url string) {
		if url == "" {
			return
		}
		external, d, err := o.uploader.ExternalRef(ctx, st, url)
		if err != nil {
			o.log.Warn("reference upload failed, skipping", "url", url, "error", err)
			return
		}
		dirty = dirty || d
		refs = append(refs, external)
	}

	add(shot.Render.ImageURL)
	add(refImage)
	for _, castID := range extraCast {
		if cr := st.CastMatrix.CharacterRefs[castID]; cr != nil {
			add(cr.RefA)
			add(cr.RefB)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no usable reference images: %w", apperr.ErrInvalidArgument)
	}

	prompt := BuildPrompt(st, shot)
	if editPrompt = strings.TrimSpace(editPrompt); editPrompt != "" {
		prompt += ", " + editPrompt
	}
	for _, castID := range extraCast {
		member := st.FindCast(castID)
		if member == nil {
			continue
		}
		if member.Name != "" {
			prompt += ", " + member.Name + " visible in scene"
		}
		if extra := strings.TrimSpace(member.PromptExtra); extra != "" {
			prompt += ", " + extra
		}
	}

	editor := st.Project.RenderModels.Img2ImgEditor
	imgURL, err := o.fal.EditImage(ctx, editor, prompt, refs, st.Project.Aspect)
	if err != nil {
		return nil, fmt.Errorf("edit shot: %w", err)
	}
	o.costs.Track(st, "fal-ai/"+string(editor), 1, "shot_edit")

	localURL := o.dl.FetchImage(ctx, st, imgURL, friendlyShotName(projectID, shotID)+"_edit")
	thumb := o.writeThumbnail(ctx, st, localURL)

	renderState := domain.Render{
		Status:        domain.RenderDone,
		ImageURL:      localURL,
		Model:         string(editor),
		RefImagesUsed: len(refs),
		EditPrompt:    editPrompt,
	}
	if err := o.saveShotRender(projectID, shotID, renderState, st, dirty); err != nil {
		return nil, err
	}
	return &ShotRenderResult{
		ShotID:        shotID,
		Prompt:        prompt,
		ImageURL:      localURL,
		Thumbnail:     thumb,
		Model:         string(editor),
		RefImagesUsed: len(refs),
	}, nil
}

func (o *orchestrator) Prewarm(ctx context.Context, projectID string) (int, error) {
	st, err := o.store.Load(projectID)
	if err != nil {
		return 0, err
	}

	var urls []string
	for _, cr := range st.CastMatrix.CharacterRefs {
		if cr == nil {
			continue
		}
		urls = append(urls, cr.RefA, cr.RefB)
	}
	for _, scene := range st.CastMatrix.Scenes {
		if len(scene.DecorRefs) > 0 {
			urls = append(urls, scene.DecorRefs[0])
		}
		urls = append(urls, scene.WardrobeRef)
	}

	uploaded := 0
	dirty := false
	for _, url := range urls {
		if url == "" {
			continue
		}
		_, d, err := o.uploader.ExternalRef(ctx, st, url)
		if err != nil {
			o.log.Warn("prewarm upload failed", "url", url, "error", err)
			continue
		}
		if d {
			uploaded++
			dirty = true
		}
	}

	if dirty {
		err = o.store.WithProjectLock(projectID, func() error {
			fresh, err := o.store.Load(projectID)
			if err != nil {
				return err
			}
			mergeUploadCache(fresh, st)
			return o.store.Save(fresh, true, false)
		})
		if err != nil {
			return uploaded, err
		}
	}
	o.log.Info("prewarm complete", "project_id", projectID, "uploaded", uploaded)
	return uploaded, nil
}

func (o *orchestrator) PendingShots(projectID string) ([]string, error) {
	st, err := o.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	var pending []string
	for i := range st.Storyboard.Shots {
		if st.Storyboard.Shots[i].Render.Status != domain.RenderDone {
			pending = append(pending, st.Storyboard.Shots[i].ShotID)
		}
	}
	return pending, nil
}

func (o *orchestrator) Stats(projectID string) (*RenderStats, error) {
	st, err := o.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	stats := &RenderStats{Total: len(st.Storyboard.Shots)}
	for i := range st.Storyboard.Shots {
		switch st.Storyboard.Shots[i].Render.Status {
		case domain.RenderDone:
			stats.Done++
		case domain.RenderError:
			stats.Errored++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// generate dispatches img2img when references exist, falling back to plain
// text-to-image when they don't or when the edit call fails outright.
func (o *orchestrator) generate(ctx context.Context, st *domain.State, prompt string, refImages []string) (string, string, error) {
	if len(refImages) > 0 {
		editor := st.Project.RenderModels.Img2ImgEditor
		url, err := o.fal.EditImage(ctx, editor, prompt, refImages, st.Project.Aspect)
		if err == nil {
			o.costs.Track(st, "fal-ai/"+string(editor), 1, "shot_render")
			return url, string(editor), nil
		}
		if ctx.Err() != nil {
			return "", string(editor), err
		}
		o.log.Warn("img2img failed, falling back to t2i", "error", err)
	}

	model := st.Project.RenderModels.ImageModel
	url, err := o.fal.TextToImage(ctx, st.Project.ImageModelChoice, prompt, st.Project.Aspect)
	if err != nil {
		return "", model, err
	}
	o.costs.Track(st, model, 1, "shot_render")
	return url, model, nil
}

// saveShotRender applies the reload-mutate-save pattern: only this shot's
// render subtree (plus any new upload-cache entries) changes, so parallel
// renders of sibling shots never clobber each other.
func (o *orchestrator) saveShotRender(projectID, shotID string, render domain.Render, rendered *domain.State, cacheDirty bool) error {
	return o.store.WithProjectLock(projectID, func() error {
		fresh, err := o.store.Load(projectID)
		if err != nil {
			return err
		}
		shot := fresh.FindShot(shotID)
		if shot == nil {
			return fmt.Errorf("shot %s vanished during render: %w", shotID, apperr.ErrNotFound)
		}
		shot.Render.Status = render.Status
		shot.Render.ImageURL = render.ImageURL
		shot.Render.Model = render.Model
		shot.Render.RefImagesUsed = render.RefImagesUsed
		shot.Render.Error = render.Error
		if render.EditPrompt != "" {
			shot.Render.EditPrompt = render.EditPrompt
		}
		if cacheDirty {
			mergeUploadCache(fresh, rendered)
		}
		if rendered.Costs != nil {
			fresh.Costs = rendered.Costs
		}
		return o.store.Save(fresh, true, false)
	})
}

func mergeUploadCache(dst, src *domain.State) {
	if len(src.Project.FalUploadCache) == 0 {
		return
	}
	if dst.Project.FalUploadCache == nil {
		dst.Project.FalUploadCache = map[string]string{}
	}
	for k, v := range src.Project.FalUploadCache {
		dst.Project.FalUploadCache[k] = v
	}
}

// friendlyShotName turns seq_01_sh03 into Sce01_Sho03, prefixed with the
// project id so orphaned files can be matched back to their shot on load.
func friendlyShotName(projectID, shotID string) string {
	parts := strings.Split(shotID, "_")
	if len(parts) >= 3 && strings.HasPrefix(parts[2], "sh") {
		return fmt.Sprintf("%s_%s_Sce%s_Sho%s", projectID, shotID, parts[1], strings.TrimPrefix(parts[2], "sh"))
	}
	return projectID + "_" + shotID
}

func (o *orchestrator) writeThumbnail(ctx context.Context, st *domain.State, localURL string) string {
	if o.muxer == nil || !strings.HasPrefix(localURL, "/files/") {
		return ""
	}
	src, err := o.paths.FromURL(localURL, st)
	if err != nil {
		return ""
	}
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + "_thumb.webp"
	if err := o.muxer.Thumbnail(ctx, src, dst, thumbnailMaxWidth); err != nil {
		o.log.Warn("thumbnail failed", "src", src, "error", err)
		return ""
	}
	url, err := o.paths.ToURL(dst)
	if err != nil {
		return ""
	}
	return url
}
