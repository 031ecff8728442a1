package domain

// AudioDNA is the normalized, structured summary of the uploaded track.
type AudioDNA struct {
	Meta              AudioMeta   `json:"meta"`
	Style             []string    `json:"style,omitempty"`
	Mood              string      `json:"mood,omitempty"`
	Sections          []Section   `json:"structure,omitempty"`
	Dynamics          []Dynamic   `json:"dynamics,omitempty"`
	Delivery          string      `json:"vocal_delivery,omitempty"`
	Story             StoryArc    `json:"story_arc"`
	Lyrics            []LyricLine `json:"lyrics,omitempty"`
	LyricsSource      string      `json:"lyrics_source,omitempty"`
	Instruments       []string    `json:"instruments,omitempty"`
	WhisperTranscript string      `json:"whisper_transcript,omitempty"`
	RawTextBlob       string      `json:"raw_text_blob,omitempty"`
	BeatGrid          *BeatGrid   `json:"beat_grid,omitempty"`
	Source            SourceInfo  `json:"source"`
}

type AudioMeta struct {
	DurationSec    float64 `json:"duration_sec"`
	DurationSource string  `json:"duration_source,omitempty"`
	BPM            int     `json:"bpm,omitempty"`
	BPMSource      string  `json:"bpm_source,omitempty"`
	BPMExternal    int     `json:"bpm_fal,omitempty"`
	Key            string  `json:"key,omitempty"`
	Genre          string  `json:"genre,omitempty"`
	Energy         float64 `json:"energy,omitempty"`
	Language       string  `json:"language,omitempty"`
}

type Section struct {
	Type  string  `json:"type"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Dynamic struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Energy float64 `json:"energy"`
}

type StoryArc struct {
	Theme    string `json:"theme"`
	Start    string `json:"start"`
	Conflict string `json:"conflict"`
	End      string `json:"end"`
}

type LyricLine struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start,omitempty"`
}

type SourceInfo struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
}

// BeatGrid is derived from BPM assuming 4/4.
type BeatGrid struct {
	BPM        int         `json:"bpm"`
	BeatSec    float64     `json:"beat_sec"`
	BarSec     float64     `json:"bar_sec"`
	Beats      []BeatPoint `json:"beats"`
	Bars       []BeatPoint `json:"bars"`
	Downbeats  []float64   `json:"downbeats"`
	TotalBeats int         `json:"total_beats"`
	TotalBars  int         `json:"total_bars"`
}

type BeatPoint struct {
	Index int     `json:"i"`
	Time  float64 `json:"t"`
}
