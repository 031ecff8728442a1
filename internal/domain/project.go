package domain

// Version is the application version written into every project state as
// created_version and migrated forward on save.
const Version = "1.8.8"

type Aspect string

const (
	AspectHorizontal Aspect = "horizontal"
	AspectVertical   Aspect = "vertical"
	AspectSquare     Aspect = "square"
)

func (a Aspect) Valid() bool {
	switch a {
	case AspectHorizontal, AspectVertical, AspectSquare:
		return true
	}
	return false
}

// Ratio returns the aspect_ratio string the generation backends expect.
func (a Aspect) Ratio() string {
	switch a {
	case AspectVertical:
		return "9:16"
	case AspectSquare:
		return "1:1"
	default:
		return "16:9"
	}
}

// ImageSize returns the named image_size the generation backends expect.
func (a Aspect) ImageSize() string {
	switch a {
	case AspectVertical:
		return "portrait_16_9"
	case AspectSquare:
		return "square_hd"
	default:
		return "landscape_16_9"
	}
}

// Dimensions returns explicit pixel dimensions for backends that want them.
func (a Aspect) Dimensions() (w, h int) {
	switch a {
	case AspectVertical:
		return 1080, 1920
	case AspectSquare:
		return 1024, 1024
	default:
		return 1920, 1080
	}
}

type ImageModel string

const (
	ImageModelNanoBanana ImageModel = "nanobanana"
	ImageModelSeedream45 ImageModel = "seedream45"
	ImageModelFlux2      ImageModel = "flux2"
)

type EditorKey string

const (
	EditorNanoBanana EditorKey = "nanobanana_edit"
	EditorSeedream45 EditorKey = "seedream45_edit"
	EditorFlux2      EditorKey = "flux2_edit"
)

// MaxRefImages is the reference-image cap the editor endpoint accepts.
func (e EditorKey) MaxRefImages() int {
	if e == EditorSeedream45 {
		return 10
	}
	return 4
}

// RenderModels is the per-project hard lock of which image model family
// serves every still render. Derived from the project image_model_choice
// and never changed implicitly afterwards.
type RenderModels struct {
	ImageModel       string    `json:"image_model"`
	Img2ImgEditor    EditorKey `json:"img2img_editor"`
	AvailableEditors []string  `json:"available_editors"`
}

// LockRenderModels resolves an image model choice to its locked model set.
func LockRenderModels(choice ImageModel) RenderModels {
	switch choice {
	case ImageModelFlux2:
		return RenderModels{
			ImageModel:       "fal-ai/flux-2",
			Img2ImgEditor:    EditorFlux2,
			AvailableEditors: []string{string(EditorFlux2), string(EditorNanoBanana), string(EditorSeedream45)},
		}
	case ImageModelSeedream45:
		return RenderModels{
			ImageModel:       "fal-ai/bytedance/seedream/v4.5/text-to-image",
			Img2ImgEditor:    EditorSeedream45,
			AvailableEditors: []string{string(EditorSeedream45), string(EditorNanoBanana), string(EditorFlux2)},
		}
	default:
		return RenderModels{
			ImageModel:       "fal-ai/nano-banana-pro",
			Img2ImgEditor:    EditorNanoBanana,
			AvailableEditors: []string{string(EditorNanoBanana), string(EditorSeedream45), string(EditorFlux2)},
		}
	}
}

// Project is the root metadata block of a state document.
type Project struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	StylePreset      string       `json:"style_preset"`
	Aspect           Aspect       `json:"aspect"`
	LLMPreference    string       `json:"llm"`
	ImageModelChoice ImageModel   `json:"image_model_choice"`
	VideoModelChoice string       `json:"video_model"`
	UseWhisper       bool         `json:"use_whisper"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
	CreatedVersion   string       `json:"created_version"`
	ProjectLocation  string       `json:"project_location,omitempty"`
	StyleLocked      bool         `json:"style_locked"`
	StyleLockImage   string       `json:"style_lock_image,omitempty"`
	RenderModels     RenderModels `json:"render_models"`
	// FalUploadCache maps local file URLs to external upload URLs. Entries
	// are soft: always HEAD-revalidated before reuse.
	FalUploadCache map[string]string `json:"fal_upload_cache,omitempty"`
}

// State is the single authoritative document for one project.
type State struct {
	Project    Project     `json:"project"`
	AudioDNA   *AudioDNA   `json:"audio_dna"`
	AudioFile  string      `json:"audio_file_path,omitempty"`
	Cast       []CastMember `json:"cast"`
	CastMatrix CastMatrix  `json:"cast_matrix"`
	Storyboard Storyboard  `json:"storyboard"`
	Costs      *CostLedger `json:"costs,omitempty"`
}

func (s *State) FindCast(castID string) *CastMember {
	for i := range s.Cast {
		if s.Cast[i].CastID == castID {
			return &s.Cast[i]
		}
	}
	return nil
}

func (s *State) FindSequence(sequenceID string) *Sequence {
	for i := range s.Storyboard.Sequences {
		if s.Storyboard.Sequences[i].SequenceID == sequenceID {
			return &s.Storyboard.Sequences[i]
		}
	}
	return nil
}

func (s *State) FindShot(shotID string) *Shot {
	for i := range s.Storyboard.Shots {
		if s.Storyboard.Shots[i].ShotID == shotID {
			return &s.Storyboard.Shots[i]
		}
	}
	return nil
}

func (s *State) FindScene(sceneID string) *Scene {
	for i := range s.CastMatrix.Scenes {
		if s.CastMatrix.Scenes[i].SceneID == sceneID {
			return &s.CastMatrix.Scenes[i]
		}
	}
	return nil
}

// SceneForSequence returns the scene paired with a sequence. Scenes map to
// sequences one-to-one by index.
func (s *State) SceneForSequence(sequenceID string) *Scene {
	for i := range s.Storyboard.Sequences {
		if s.Storyboard.Sequences[i].SequenceID == sequenceID {
			if i < len(s.CastMatrix.Scenes) {
				return &s.CastMatrix.Scenes[i]
			}
			return nil
		}
	}
	return nil
}

func (s *State) ValidCastIDs() map[string]bool {
	ids := make(map[string]bool, len(s.Cast))
	for _, c := range s.Cast {
		if c.CastID != "" {
			ids[c.CastID] = true
		}
	}
	return ids
}
