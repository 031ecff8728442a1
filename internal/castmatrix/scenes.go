package castmatrix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/styles"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

// Scene decor plates are locations only. The full negative runs long on
// purpose: every people-shaped token the backends respond to.
const (
	decorNoPeople = "empty location, no people, no person, no human, no figure, no silhouette, no character, no faces, no hands, no body, uninhabited, deserted, vacant space"
	editNoPeople  = "no people, no person, no human, no figure, no silhouette, no character, no faces, no hands, no body"
)

const sceneSchemaHint = `{ "scenes":[ { 
    "scene_id":"scene_01",
    "sequence_id":"seq_01",
    "title":"Scene title matching sequence label",
    "prompt":"location, time of day, camera setup, mood, key props, atmosphere - matching the sequence's story beat",
    "decor_alt_prompt":"OPTIONAL: Alternative location/decor for flashbacks, dream sequences, or split-timeline shots. Leave empty if not needed.",
    "wardrobe":"Describe character costumes/outfits for THIS scene. Can differ from default based on story context (e.g. formal event, flashback, work uniform, transformation)"
} ] }`

type SceneRenderResult struct {
	SceneID     string   `json:"scene_id"`
	DecorRefs   []string `json:"decor_refs"`
	DecorAlt    string   `json:"decor_alt,omitempty"`
	WardrobeRef string   `json:"wardrobe_ref,omitempty"`
}

// AutogenScenes derives one scene per timeline sequence so every story beat
// has a location plate to render against.
func (s *service) AutogenScenes(ctx context.Context, projectID string) ([]domain.Scene, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	sequences := st.Storyboard.Sequences
	if len(sequences) == 0 {
		return nil, fmt.Errorf("no sequences found, create timeline first: %w", apperr.ErrInvalidArgument)
	}
	count := len(sequences)
	preset := st.Project.StylePreset

	seqContext := make([]map[string]any, 0, count)
	for _, seq := range sequences {
		seqContext = append(seqContext, map[string]any{
			"sequence_id":    seq.SequenceID,
			"label":          seq.Label,
			"structure_type": seq.StructureType,
			"description":    seq.Description,
			"arc_start":      seq.ArcStart,
			"arc_end":        seq.ArcEnd,
			"energy":         seq.Energy,
			"cast":           seq.Cast,
		})
	}

	system := "Return ONLY valid JSON. No prose.\n" +
		fmt.Sprintf("Generate exactly %d scene prompts for a music video - ONE scene per sequence.\n\n", count) +
		"CRITICAL: Each scene MUST match its corresponding sequence:\n" +
		"- scene_01 matches seq_01, scene_02 matches seq_02, etc.\n" +
		"- The scene title should relate to the sequence label\n" +
		"- The scene prompt should visualize the sequence's description and emotional arc\n" +
		"- Match the energy level (high energy = dynamic lighting, low = moody)\n" +
		"- Consider the structure_type (intro = establishing, chorus = impactful, outro = resolution)\n\n" +
		"Each prompt MUST include: location, time of day, camera setup, mood, key props.\n" +
		"These are LOCATION PLATES only - no characters in prompts.\n\n" +
		"ALTERNATIVE DECOR (decor_alt_prompt):\n" +
		"- Use ONLY when narratively justified: flashbacks, dream sequences, parallel timelines, dramatic contrasts\n" +
		"- Examples: Present-day apartment vs childhood home; Glamorous party vs lonely aftermath\n" +
		"- Leave empty string if the scene doesn't need an alternative perspective\n" +
		"- Not every scene needs this - use sparingly for maximum impact\n\n" +
		"WARDROBE: Describe what characters should WEAR in each scene.\n" +
		"- This can OVERRIDE the character's default outfit based on story needs\n" +
		"- Examples: 'elegant evening gowns and tuxedos' for gala, 'casual streetwear' for flashback, 'work uniforms' for job scene\n" +
		"- Leave empty string if default character outfit is appropriate\n" +
		fmt.Sprintf("Schema:\n%s\n", sceneSchemaHint)

	user, err := json.Marshal(map[string]any{
		"story_summary": st.Storyboard.StorySummary,
		"sequences":     seqContext,
		"style_preset":  preset,
		"style_tokens":  styles.Tokens(preset),
		"style_notes":   styles.ScriptNotes(preset),
		"aspect":        st.Project.Aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scene context: %w", err)
	}

	resp, model, err := s.llm.GenerateJSON(ctx, system, string(user), 5000)
	if err != nil {
		return nil, fmt.Errorf("scene autogen: %w", err)
	}
	s.costs.Track(st, model, 1, "scenes_autogen")
	s.debug.Record(st, "scenes_autogen", model,
		map[string]any{"system": truncateForLog(system), "user": truncateForLog(string(user))},
		resp, nil)

	rawScenes, _ := resp["scenes"].([]any)
	if len(rawScenes) != count {
		return nil, fmt.Errorf("model returned %d scenes for %d sequences: %w", len(rawScenes), count, apperr.ErrBackendPermanent)
	}

	cleaned := make([]domain.Scene, 0, count)
	for i, raw := range rawScenes {
		sc, _ := raw.(map[string]any)
		seq := sequences[i]
		sceneID := fmt.Sprintf("scene_%02d", i+1)
		title := strings.TrimSpace(stringField(sc, "title"))
		if title == "" {
			title = firstNonEmpty(seq.Label, sceneID)
		}
		cleaned = append(cleaned, domain.Scene{
			SceneID:        sceneID,
			SequenceID:     seq.SequenceID,
			Title:          title,
			Prompt:         strings.TrimSpace(stringField(sc, "prompt")),
			DecorAltPrompt: strings.TrimSpace(stringField(sc, "decor_alt_prompt")),
			Wardrobe:       strings.TrimSpace(stringField(sc, "wardrobe")),
			StructureType:  string(seq.StructureType),
			Energy:         seq.Energy,
			Cast:           seq.Cast,
			DecorRefs:      []string{},
		})
	}

	st.CastMatrix.Scenes = cleaned
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	s.log.Info("scenes generated", "project_id", projectID, "count", count, "model", model)
	return cleaned, nil
}

// RenderScene generates the establishing decor plate for one scene, plus
// the alt decor and wardrobe preview when the scene defines them.
func (s *service) RenderScene(ctx context.Context, projectID, sceneID string) (*SceneRenderResult, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	if scene.DecorLocked {
		return nil, fmt.Errorf("scene decor is locked, unlock to re-render: %w", apperr.ErrConflict)
	}

	preset := st.Project.StylePreset
	basePrompt := strings.Join(append(styles.Tokens(preset),
		scene.Prompt, decorNoPeople, "no text", "no watermark", "wide establishing shot"), ", ")

	url, err := s.fal.TextToImage(ctx, st.Project.ImageModelChoice, basePrompt, st.Project.Aspect)
	if err != nil {
		return nil, fmt.Errorf("render scene decor: %w", err)
	}
	s.costs.Track(st, st.Project.RenderModels.ImageModel, 1, "scene_decor")

	sceneNum := strings.TrimPrefix(sceneID, "scene_")
	decorRef := s.dl.FetchImage(ctx, st, url, fmt.Sprintf("%s_%s_decor", projectID, sceneID))
	result := &SceneRenderResult{SceneID: sceneID, DecorRefs: []string{decorRef}}

	if altPrompt := strings.TrimSpace(scene.DecorAltPrompt); altPrompt != "" {
		altFull := strings.Join(append(styles.Tokens(preset),
			altPrompt, decorNoPeople, "no text", "no watermark", "wide establishing shot"), ", ")
		altURL, err := s.fal.TextToImage(ctx, st.Project.ImageModelChoice, altFull, st.Project.Aspect)
		if err != nil {
			s.log.Warn("alt decor render failed", "scene_id", sceneID, "error", err)
		} else {
			s.costs.Track(st, st.Project.RenderModels.ImageModel, 1, "scene_decor_alt")
			result.DecorAlt = s.dl.FetchImage(ctx, st, altURL, fmt.Sprintf("Sce%s_DecorAlt", sceneNum))
			s.log.Info("generated alt decor", "scene_id", sceneID)
		}
	}

	if wardrobe := strings.TrimSpace(scene.Wardrobe); wardrobe != "" {
		ref, err := s.renderWardrobeRef(ctx, st, scene, wardrobe, sceneNum)
		if err != nil {
			s.log.Warn("wardrobe preview failed", "scene_id", sceneID, "error", err)
		} else {
			result.WardrobeRef = ref
			s.log.Info("generated wardrobe preview", "scene_id", sceneID)
		}
	}

	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		freshScene := fresh.FindScene(sceneID)
		if freshScene == nil {
			return nil
		}
		freshScene.DecorRefs = result.DecorRefs
		if result.DecorAlt != "" {
			freshScene.DecorAlt = result.DecorAlt
		}
		if result.WardrobeRef != "" {
			freshScene.WardrobeRef = result.WardrobeRef
		}
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateDecorAlt renders an alternative decor plate. Without a prompt it
// regenerates the base decor with a variation hint.
func (s *service) GenerateDecorAlt(ctx context.Context, projectID, sceneID, altPrompt string) (string, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return "", err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return "", fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}

	altPrompt = strings.TrimSpace(altPrompt)
	toks := styles.Tokens(st.Project.StylePreset)
	basePrompt := strings.TrimSpace(scene.Prompt)
	var fullPrompt string
	if altPrompt != "" {
		fullPrompt = strings.Join(append(toks, basePrompt, altPrompt, editNoPeople), ", ")
	} else {
		fullPrompt = strings.Join(append(toks, basePrompt, "alternative angle or lighting variation", editNoPeople), ", ")
	}

	url, err := s.fal.TextToImage(ctx, st.Project.ImageModelChoice, fullPrompt, st.Project.Aspect)
	if err != nil {
		return "", fmt.Errorf("render alt decor: %w", err)
	}
	s.costs.Track(st, st.Project.RenderModels.ImageModel, 1, "scene_decor_alt")

	sceneNum := strings.TrimPrefix(sceneID, "scene_")
	title := utils.SanitizeFilename(firstNonEmpty(scene.Title, sceneID), 20)
	local := s.dl.FetchImage(ctx, st, url, fmt.Sprintf("Sce%s_%s_DecorAlt", sceneNum, title))

	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		freshScene := fresh.FindScene(sceneID)
		if freshScene == nil {
			return nil
		}
		freshScene.DecorAlt = local
		if altPrompt != "" {
			freshScene.DecorAltPrompt = altPrompt
		}
		return s.store.Save(fresh, true, true)
	})
	if err != nil {
		return "", err
	}
	s.log.Info("generated alt decor", "scene_id", sceneID)
	return local, nil
}

// EditScene reworks the current decor plate through img2img with an edit
// prompt, keeping the location people-free.
func (s *service) EditScene(ctx context.Context, projectID, sceneID, editPrompt string) (string, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return "", err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return "", fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	editPrompt = strings.TrimSpace(editPrompt)
	if editPrompt == "" {
		return "", fmt.Errorf("missing edit_prompt: %w", apperr.ErrInvalidArgument)
	}
	if len(scene.DecorRefs) == 0 || scene.DecorRefs[0] == "" {
		return "", fmt.Errorf("scene has no image to edit: %w", apperr.ErrInvalidArgument)
	}

	uploaded, err := s.externalURL(ctx, st, scene.DecorRefs[0])
	if err != nil {
		return "", fmt.Errorf("upload scene image: %w", err)
	}

	fullPrompt := strings.Join(append(styles.Tokens(st.Project.StylePreset), editPrompt, editNoPeople), ", ")
	editor := st.Project.RenderModels.Img2ImgEditor
	url, err := s.fal.EditImage(ctx, editor, fullPrompt, []string{uploaded}, st.Project.Aspect)
	if err != nil {
		return "", fmt.Errorf("edit scene: %w", err)
	}
	s.costs.Track(st, "fal-ai/"+string(editor), 1, "scene_edit")

	sceneNum := strings.TrimPrefix(sceneID, "scene_")
	local := s.dl.FetchImage(ctx, st, url, fmt.Sprintf("Sce%s_Edit", sceneNum))

	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		freshScene := fresh.FindScene(sceneID)
		if freshScene == nil {
			return nil
		}
		freshScene.DecorRefs = []string{local}
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return "", err
	}
	return local, nil
}

// ImportSceneImage installs a user-provided image as the scene decor.
func (s *service) ImportSceneImage(projectID, sceneID, filename string, data []byte) (string, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return "", err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return "", fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	sceneNum := strings.TrimPrefix(sceneID, "scene_")
	local, err := s.dl.WriteRenderFile(st, fmt.Sprintf("Sce%s_Import%s", sceneNum, fileExt(filename)), data)
	if err != nil {
		return "", fmt.Errorf("store scene image: %w", err)
	}
	scene.DecorRefs = []string{local}
	if err := s.store.Save(st, true, false); err != nil {
		return "", err
	}
	return local, nil
}

func (s *service) UpdateWardrobe(projectID, sceneID, wardrobe string) (*domain.Scene, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	if scene.WardrobeLocked {
		return nil, fmt.Errorf("scene wardrobe is locked: %w", apperr.ErrConflict)
	}
	scene.Wardrobe = strings.TrimSpace(wardrobe)
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	return scene, nil
}

func (s *service) SetDecorLock(projectID, sceneID string, locked bool) (*domain.Scene, error) {
	return s.setSceneLock(projectID, sceneID, locked, true)
}

func (s *service) SetWardrobeLock(projectID, sceneID string, locked bool) (*domain.Scene, error) {
	return s.setSceneLock(projectID, sceneID, locked, false)
}

func (s *service) setSceneLock(projectID, sceneID string, locked, decor bool) (*domain.Scene, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return nil, fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	if decor {
		scene.DecorLocked = locked
	} else {
		scene.WardrobeLocked = locked
	}
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	return scene, nil
}

// GenerateWardrobeRef renders the wardrobe preview for a scene: the lead
// cast identity anchor composited with the scene decor and wardrobe text.
func (s *service) GenerateWardrobeRef(ctx context.Context, projectID, sceneID string) (string, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return "", err
	}
	scene := st.FindScene(sceneID)
	if scene == nil {
		return "", fmt.Errorf("scene %s: %w", sceneID, apperr.ErrNotFound)
	}
	wardrobe := strings.TrimSpace(scene.Wardrobe)
	if wardrobe == "" {
		return "", fmt.Errorf("scene has no wardrobe defined: %w", apperr.ErrInvalidArgument)
	}

	sceneNum := strings.TrimPrefix(sceneID, "scene_")
	local, err := s.renderWardrobeRef(ctx, st, scene, wardrobe, sceneNum)
	if err != nil {
		return "", err
	}

	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		if freshScene := fresh.FindScene(sceneID); freshScene != nil {
			freshScene.WardrobeRef = local
		}
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return "", err
	}
	s.log.Info("generated wardrobe preview", "scene_id", sceneID)
	return local, nil
}

func (s *service) renderWardrobeRef(ctx context.Context, st *domain.State, scene *domain.Scene, wardrobe, sceneNum string) (string, error) {
	leadID := ""
	if len(scene.Cast) > 0 {
		leadID = scene.Cast[0]
	} else if len(st.Cast) > 0 {
		leadID = st.Cast[0].CastID
	}
	if leadID == "" {
		return "", fmt.Errorf("no cast available for wardrobe preview: %w", apperr.ErrInvalidArgument)
	}
	refs := st.CastMatrix.CharacterRefs[leadID]
	if refs == nil || refs.RefA == "" {
		return "", fmt.Errorf("no cast reference available for wardrobe preview: %w", apperr.ErrInvalidArgument)
	}

	refURL, err := s.externalURL(ctx, st, refs.RefA)
	if err != nil {
		return "", fmt.Errorf("upload cast ref: %w", err)
	}

	baseStyle := strings.Join(styles.Tokens(st.Project.StylePreset), ", ")
	decorPrompt := scene.Prompt
	if len(decorPrompt) > 200 {
		decorPrompt = decorPrompt[:200]
	}
	prompt := fmt.Sprintf("%s, %s, %s, consistent identity, high quality", baseStyle, wardrobe, decorPrompt)

	editor := st.Project.RenderModels.Img2ImgEditor
	url, err := s.fal.EditImage(ctx, editor, prompt, []string{refURL}, st.Project.Aspect)
	if err != nil {
		return "", fmt.Errorf("render wardrobe preview: %w", err)
	}
	s.costs.Track(st, "fal-ai/"+string(editor), 1, "scene_wardrobe")

	title := utils.SanitizeFilename(firstNonEmpty(scene.Title, scene.SceneID), 20)
	return s.dl.FetchImage(ctx, st, url, fmt.Sprintf("Sce%s_%s_Wardrobe", sceneNum, title)), nil
}

func truncateForLog(s string) string {
	if len(s) > 500 {
		return s[:500]
	}
	return s
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
