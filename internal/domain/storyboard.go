package domain

import "strings"

type StructureType string

const (
	StructureIntro        StructureType = "intro"
	StructureVerse        StructureType = "verse"
	StructurePrechorus    StructureType = "prechorus"
	StructureChorus       StructureType = "chorus"
	StructureBridge       StructureType = "bridge"
	StructureBreakdown    StructureType = "breakdown"
	StructureOutro        StructureType = "outro"
	StructureInstrumental StructureType = "instrumental"
)

var structureTypes = []StructureType{
	StructureIntro, StructureVerse, StructurePrechorus, StructureChorus,
	StructureBridge, StructureBreakdown, StructureOutro, StructureInstrumental,
}

func (t StructureType) Valid() bool {
	for _, s := range structureTypes {
		if t == s {
			return true
		}
	}
	return false
}

// NormalizeStructureType maps free-form model output onto the allowed set,
// prefix-matching and folding "pre-chorus" variants; anything else is a verse.
func NormalizeStructureType(s string) StructureType {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "" {
		return StructureVerse
	}
	for _, k := range structureTypes {
		if strings.HasPrefix(t, string(k)) {
			return k
		}
	}
	if strings.HasPrefix(t, "pre-chorus") || strings.HasPrefix(t, "pre chorus") {
		return StructurePrechorus
	}
	return StructureVerse
}

type RenderStatus string

const (
	RenderNone  RenderStatus = "none"
	RenderDone  RenderStatus = "done"
	RenderError RenderStatus = "error"
)

// ShotVideo is the optional generated clip attached to a rendered shot.
// Duration is what the model actually produced; TargetDuration is the
// storyboard slot the exporter must fit it into.
type ShotVideo struct {
	VideoURL       string  `json:"video_url"`
	LocalPath      string  `json:"local_path,omitempty"`
	Duration       float64 `json:"duration"`
	TargetDuration float64 `json:"target_duration"`
	Model          string  `json:"model"`
	HasAudio       bool    `json:"has_audio"`
	GeneratedAt    string  `json:"generated_at"`
	MotionPrompt   string  `json:"motion_prompt,omitempty"`
}

type Render struct {
	Status        RenderStatus `json:"status"`
	ImageURL      string       `json:"image_url,omitempty"`
	Model         string       `json:"model,omitempty"`
	RefImagesUsed int          `json:"ref_images_used,omitempty"`
	Error         string       `json:"error,omitempty"`
	EditPrompt    string       `json:"edit_prompt,omitempty"`
	Video         *ShotVideo   `json:"video,omitempty"`
}

type Sequence struct {
	SequenceID       string        `json:"sequence_id"`
	Label            string        `json:"label"`
	Start            float64       `json:"start"`
	End              float64       `json:"end"`
	StructureType    StructureType `json:"structure_type"`
	Energy           float64       `json:"energy"`
	Cast             []string      `json:"cast"`
	ArcStart         string        `json:"arc_start,omitempty"`
	ArcEnd           string        `json:"arc_end,omitempty"`
	Description      string        `json:"description,omitempty"`
	LyricsReference  string        `json:"lyrics_reference,omitempty"`
	StartFramePrompt string        `json:"start_frame_prompt,omitempty"`
	EndFramePrompt   string        `json:"end_frame_prompt,omitempty"`
}

type Shot struct {
	ShotID           string            `json:"shot_id"`
	SequenceID       string            `json:"sequence_id"`
	Start            float64           `json:"start"`
	End              float64           `json:"end"`
	StructureType    StructureType     `json:"structure_type"`
	Energy           float64           `json:"energy"`
	Cast             []string          `json:"cast"`
	Wardrobe         map[string]string `json:"wardrobe,omitempty"`
	Intent           string            `json:"intent,omitempty"`
	CameraLanguage   string            `json:"camera_language,omitempty"`
	Environment      string            `json:"environment,omitempty"`
	SymbolicElements []string          `json:"symbolic_elements,omitempty"`
	PromptBase       string            `json:"prompt_base"`
	Render           Render            `json:"render"`
}

func (s *Shot) Duration() float64 {
	return s.End - s.Start
}

type Storyboard struct {
	StorySummary string     `json:"story_summary,omitempty"`
	Sequences    []Sequence `json:"sequences"`
	Shots        []Shot     `json:"shots"`
}

// ShotsForSequence returns the shots of one sequence in stored order.
func (b *Storyboard) ShotsForSequence(sequenceID string) []*Shot {
	var out []*Shot
	for i := range b.Shots {
		if b.Shots[i].SequenceID == sequenceID {
			out = append(out, &b.Shots[i])
		}
	}
	return out
}
