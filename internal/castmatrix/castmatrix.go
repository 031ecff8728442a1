package castmatrix

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/debuglog"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/styles"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

// Cast prompts never carry props or framing artifacts; the negatives keep
// identity anchors clean enough to reuse across every shot render.
const refNegatives = "no props, no objects, no mug, no cup, no drink, no phone, no bag, no accessories, clean hands, no typography, no title, no caption, no overlay, no frame, no border, no logo"

type AddCastInput struct {
	Name     string
	Role     domain.Role
	Filename string
	Data     []byte
}

type CastPatch struct {
	Name        *string
	Role        *string
	Impact      *float64
	PromptExtra *string
}

type CanonicalRefsResult struct {
	CastID      string `json:"cast_id"`
	Editor      string `json:"editor"`
	RefA        string `json:"ref_a"`
	RefB        string `json:"ref_b"`
	StyleLocked bool   `json:"style_locked"`
}

type Service interface {
	AddCast(ctx context.Context, projectID string, in AddCastInput) (*domain.CastMember, error)
	UpdateCast(projectID, castID string, patch CastPatch) (*domain.CastMember, error)
	DeleteCast(projectID, castID string) error
	AddReferenceImage(ctx context.Context, projectID, castID, filename string, data []byte) (*domain.CastMember, error)
	SetLora(projectID, castID, loraID string, strength float64) (*domain.CastMember, error)
	UploadCanonicalRef(projectID, castID, refType, filename string, data []byte) (*domain.CharacterRefs, error)
	GenerateCanonicalRefs(ctx context.Context, projectID, castID string) (*CanonicalRefsResult, error)
	RerenderRef(ctx context.Context, projectID, castID, refType string) (string, error)
	ClearStyleLock(projectID string) error

	AutogenScenes(ctx context.Context, projectID string) ([]domain.Scene, error)
	RenderScene(ctx context.Context, projectID, sceneID string) (*SceneRenderResult, error)
	GenerateDecorAlt(ctx context.Context, projectID, sceneID, altPrompt string) (string, error)
	EditScene(ctx context.Context, projectID, sceneID, editPrompt string) (string, error)
	ImportSceneImage(projectID, sceneID, filename string, data []byte) (string, error)
	UpdateWardrobe(projectID, sceneID, wardrobe string) (*domain.Scene, error)
	SetDecorLock(projectID, sceneID string, locked bool) (*domain.Scene, error)
	SetWardrobeLock(projectID, sceneID string, locked bool) (*domain.Scene, error)
	GenerateWardrobeRef(ctx context.Context, projectID, sceneID string) (string, error)
}

type service struct {
	log   *logger.Logger
	store state.StateStore
	paths paths.PathManager
	fal   clients.FALClient
	llm   clients.LLMClient
	costs costs.CostTracker
	debug debuglog.Recorder
	dl    media.Downloader
}

func NewService(
	log *logger.Logger,
	store state.StateStore,
	pm paths.PathManager,
	fal clients.FALClient,
	llm clients.LLMClient,
	tracker costs.CostTracker,
	debug debuglog.Recorder,
	dl media.Downloader,
) Service {
	return &service{
		log:   log.With("service", "CastMatrixService"),
		store: store,
		paths: pm,
		fal:   fal,
		llm:   llm,
		costs: tracker,
		debug: debug,
		dl:    dl,
	}
}

func (s *service) AddCast(ctx context.Context, projectID string, in AddCastInput) (*domain.CastMember, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if !role.Valid() {
		role = domain.RoleLead
	}
	castID := fmt.Sprintf("%s_%d", role, len(st.Cast)+1)

	ext := fileExt(in.Filename)
	safeName := utils.SanitizeFilename(firstNonEmpty(in.Name, castID), 20)
	localURL, err := s.dl.WriteRenderFile(st, fmt.Sprintf("Cast_%s_Source%s", safeName, ext), in.Data)
	if err != nil {
		return nil, fmt.Errorf("store cast source image: %w", err)
	}

	falURL, err := s.uploadBytes(ctx, "cast_"+castID, ext, in.Data)
	if err != nil {
		return nil, fmt.Errorf("upload cast source image: %w", err)
	}

	member := domain.CastMember{
		CastID:     castID,
		Name:       in.Name,
		Role:       role,
		Impact:     0.7,
		TextTokens: []string{"consistent face", "consistent outfit"},
		ReferenceImages: []domain.ReferenceImage{
			{URL: localURL, ExternalURL: falURL, Role: "primary_face"},
		},
		Conditioning: domain.Conditioning{
			Identity: domain.IdentityConditioning{Enabled: true, Strength: 0.75},
			Lora:     domain.LoraConditioning{Enabled: false, Strength: 0.8},
		},
	}
	st.Cast = append(st.Cast, member)
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	s.log.Info("cast member added", "project_id", projectID, "cast_id", castID, "role", role)
	return st.FindCast(castID), nil
}

func (s *service) UpdateCast(projectID, castID string, patch CastPatch) (*domain.CastMember, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return nil, fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	if patch.Name != nil {
		cast.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		role := domain.Role(strings.ToLower(strings.TrimSpace(*patch.Role)))
		if !role.Valid() {
			return nil, fmt.Errorf("role %q: %w", *patch.Role, apperr.ErrInvalidArgument)
		}
		cast.Role = role
	}
	if patch.Impact != nil {
		cast.Impact = utils.Clamp(*patch.Impact, 0.0, 1.0)
	}
	if patch.PromptExtra != nil {
		cast.PromptExtra = strings.TrimSpace(*patch.PromptExtra)
	}
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	return cast, nil
}

// DeleteCast removes the member and every reference to it: canonical refs,
// sequence and shot cast lists, and per-shot wardrobe entries.
func (s *service) DeleteCast(projectID, castID string) error {
	st, err := s.store.Load(projectID)
	if err != nil {
		return err
	}
	kept := st.Cast[:0]
	found := false
	for _, c := range st.Cast {
		if c.CastID == castID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	st.Cast = kept

	delete(st.CastMatrix.CharacterRefs, castID)
	for i := range st.Storyboard.Sequences {
		st.Storyboard.Sequences[i].Cast = removeID(st.Storyboard.Sequences[i].Cast, castID)
	}
	for i := range st.Storyboard.Shots {
		shot := &st.Storyboard.Shots[i]
		shot.Cast = removeID(shot.Cast, castID)
		delete(shot.Wardrobe, castID)
	}

	if err := s.store.Save(st, true, false); err != nil {
		return err
	}
	s.log.Info("cast member deleted", "project_id", projectID, "cast_id", castID)
	return nil
}

func (s *service) AddReferenceImage(ctx context.Context, projectID, castID, filename string, data []byte) (*domain.CastMember, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return nil, fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	if len(cast.ReferenceImages) >= domain.MaxReferenceImages {
		return nil, fmt.Errorf("max %d reference images per cast member: %w", domain.MaxReferenceImages, apperr.ErrInvalidArgument)
	}

	falURL, err := s.uploadBytes(ctx, fmt.Sprintf("%s_%s_ref%d", projectID, castID, len(cast.ReferenceImages)+1), fileExt(filename), data)
	if err != nil {
		return nil, fmt.Errorf("upload reference image: %w", err)
	}
	cast.ReferenceImages = append(cast.ReferenceImages, domain.ReferenceImage{URL: falURL, Role: "ref"})
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	return cast, nil
}

func (s *service) SetLora(projectID, castID, loraID string, strength float64) (*domain.CastMember, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return nil, fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	lora := &cast.Conditioning.Lora
	lora.Strength = utils.Clamp(strength, 0.0, 2.0)
	loraID = strings.TrimSpace(loraID)
	if loraID != "" {
		lora.Enabled = true
		lora.LoraID = loraID
	} else {
		lora.Enabled = false
		lora.LoraID = ""
	}
	if err := s.store.Save(st, true, false); err != nil {
		return nil, err
	}
	return cast, nil
}

// UploadCanonicalRef installs a hand-picked image as ref_a or ref_b instead
// of a generated one.
func (s *service) UploadCanonicalRef(projectID, castID, refType, filename string, data []byte) (*domain.CharacterRefs, error) {
	if refType != "a" && refType != "b" {
		return nil, fmt.Errorf("ref_type must be a or b: %w", apperr.ErrInvalidArgument)
	}
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return nil, fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}

	castName := utils.SanitizeFilename(firstNonEmpty(cast.Name, castID), 20)
	filenameOut := fmt.Sprintf("Cast_%s_Ref%s%s", castName, strings.ToUpper(refType), fileExt(filename))
	localURL, err := s.dl.WriteRenderFile(st, filenameOut, data)
	if err != nil {
		return nil, fmt.Errorf("store canonical ref: %w", err)
	}

	var out *domain.CharacterRefs
	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		refs := ensureCharacterRefs(fresh, castID)
		if refType == "a" {
			refs.RefA = localURL
		} else {
			refs.RefB = localURL
		}
		out = refs
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateCanonicalRefs renders the two identity anchors for a cast member:
// ref_a full body and ref_b portrait close-up, both in the project style,
// off the member's first uploaded reference. The first generated ref_a also
// becomes the project style lock anchor.
func (s *service) GenerateCanonicalRefs(ctx context.Context, projectID, castID string) (*CanonicalRefsResult, error) {
	st, err := s.store.Load(projectID)
	if err != nil {
		return nil, err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return nil, fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	refs := cast.RefURLs()
	if len(refs) == 0 {
		return nil, fmt.Errorf("cast has no reference image: %w", apperr.ErrInvalidArgument)
	}

	editor := st.Project.RenderModels.Img2ImgEditor
	aspect := st.Project.Aspect

	refImages := []string{refs[0]}
	if lock := st.Project.StyleLockImage; lock != "" {
		lockURL, err := s.externalURL(ctx, st, lock)
		if err != nil {
			s.log.Warn("style lock image unusable, generating without it", "url", lock, "error", err)
		} else {
			refImages = append(refImages, lockURL)
			s.log.Info("using style lock image for consistency", "url", lock)
		}
	}

	promptA := s.refPrompt(st, cast, "a")
	promptB := s.refPrompt(st, cast, "b")

	refAURL, err := s.fal.EditImage(ctx, editor, promptA, refImages, aspect)
	if err != nil {
		return nil, fmt.Errorf("generate ref_a: %w", err)
	}
	refBURL, err := s.fal.EditImage(ctx, editor, promptB, refImages, aspect)
	if err != nil {
		return nil, fmt.Errorf("generate ref_b: %w", err)
	}

	castName := utils.SanitizeFilename(firstNonEmpty(cast.Name, castID), 20)
	refA := s.dl.FetchImage(ctx, st, refAURL, "Cast_"+castName+"_RefA")
	refB := s.dl.FetchImage(ctx, st, refBURL, "Cast_"+castName+"_RefB")

	result := &CanonicalRefsResult{CastID: castID, Editor: string(editor), RefA: refA, RefB: refB}
	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		cr := ensureCharacterRefs(fresh, castID)
		cr.RefA = refA
		cr.RefB = refB

		// The first generated anchor freezes the project look.
		if fresh.Project.StyleLockImage == "" {
			fresh.Project.StyleLocked = true
			fresh.Project.StyleLockImage = refA
			s.log.Info("style locked to first generated ref", "url", refA)
		}
		result.StyleLocked = fresh.Project.StyleLocked

		s.costs.Track(fresh, "fal-ai/"+string(editor), 1, "ref_a")
		s.costs.Track(fresh, "fal-ai/"+string(editor), 1, "ref_b")
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RerenderRef regenerates only ref_a or ref_b, without the style lock in
// the reference set.
func (s *service) RerenderRef(ctx context.Context, projectID, castID, refType string) (string, error) {
	if refType != "a" && refType != "b" {
		return "", fmt.Errorf("ref_type must be a or b: %w", apperr.ErrInvalidArgument)
	}
	st, err := s.store.Load(projectID)
	if err != nil {
		return "", err
	}
	cast := st.FindCast(castID)
	if cast == nil {
		return "", fmt.Errorf("cast %s: %w", castID, apperr.ErrNotFound)
	}
	refs := cast.RefURLs()
	if len(refs) == 0 {
		return "", fmt.Errorf("cast has no reference image: %w", apperr.ErrInvalidArgument)
	}

	editor := st.Project.RenderModels.Img2ImgEditor
	prompt := s.refPrompt(st, cast, refType)
	newURL, err := s.fal.EditImage(ctx, editor, prompt, []string{refs[0]}, st.Project.Aspect)
	if err != nil {
		return "", fmt.Errorf("rerender ref_%s: %w", refType, err)
	}

	castName := utils.SanitizeFilename(firstNonEmpty(cast.Name, castID), 20)
	local := s.dl.FetchImage(ctx, st, newURL, "Cast_"+castName+"_Ref"+strings.ToUpper(refType))

	err = s.store.WithProjectLock(projectID, func() error {
		fresh, err := s.store.Load(projectID)
		if err != nil {
			return err
		}
		cr := ensureCharacterRefs(fresh, castID)
		if refType == "a" {
			cr.RefA = local
		} else {
			cr.RefB = local
		}
		s.costs.Track(fresh, "fal-ai/"+string(editor), 1, "ref_"+refType)
		return s.store.Save(fresh, true, false)
	})
	if err != nil {
		return "", err
	}
	return local, nil
}

// ClearStyleLock drops the style anchor so refs can be regenerated with a
// different look.
func (s *service) ClearStyleLock(projectID string) error {
	st, err := s.store.Load(projectID)
	if err != nil {
		return err
	}
	st.Project.StyleLocked = false
	st.Project.StyleLockImage = ""
	return s.store.Save(st, true, false)
}

// refPrompt builds the canonical-ref prompt: project style, the member's
// prompt_extra up front so it overrides style defaults, then the pose block
// for the requested ref type.
func (s *service) refPrompt(st *domain.State, cast *domain.CastMember, refType string) string {
	baseStyle := strings.Join(append(styles.Tokens(st.Project.StylePreset), "no text", "no watermark", "clean background"), ", ")
	extraPrefix := ""
	if extra := strings.TrimSpace(cast.PromptExtra); extra != "" {
		extraPrefix = extra + ", "
	}
	if refType == "a" {
		return fmt.Sprintf("%s, %sfull body, standing, three-quarter view, slight angle, neutral pose, clean background, consistent identity, %s", baseStyle, extraPrefix, refNegatives)
	}
	return fmt.Sprintf("%s, %sportrait close-up, head and shoulders, three-quarter view, slight angle from side, neutral expression, clean background, consistent identity, %s", baseStyle, extraPrefix, refNegatives)
}

// externalURL resolves a state URL to something the generation backend can
// fetch, uploading local files on demand.
func (s *service) externalURL(ctx context.Context, st *domain.State, url string) (string, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url, nil
	}
	local, err := s.paths.FromURL(url, st)
	if err != nil {
		return "", err
	}
	return s.fal.UploadFile(ctx, local)
}

func (s *service) uploadBytes(ctx context.Context, prefix, ext string, data []byte) (string, error) {
	tmp, err := s.paths.CreateTempFile(prefix, ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	return s.fal.UploadFile(ctx, tmp)
}

func ensureCharacterRefs(st *domain.State, castID string) *domain.CharacterRefs {
	if st.CastMatrix.CharacterRefs == nil {
		st.CastMatrix.CharacterRefs = map[string]*domain.CharacterRefs{}
	}
	refs, ok := st.CastMatrix.CharacterRefs[castID]
	if !ok {
		refs = &domain.CharacterRefs{}
		st.CastMatrix.CharacterRefs[castID] = refs
	}
	return refs
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func fileExt(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return strings.ToLower(filename[i:])
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
