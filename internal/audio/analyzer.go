// Package audio turns an uploaded track into AudioDNA: duration, tempo,
// structure, dynamics, lyrics, and the beat grid everything downstream snaps
// to.
package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/debuglog"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

// DefaultPrompt is sent to the audio-understanding backend when the caller
// does not provide one.
const DefaultPrompt = "I need you to transcribe the lyrics (timecoded); " +
	"I need BPM; I need Style; " +
	"I need the Structure (timecoded); Dynamics (timecoded); " +
	"Vocal delivery and the Story/Arch"

const (
	defaultBPM   = 120
	bpmMin       = 40
	bpmMax       = 240
	pcmRate      = 11025
	maxLyricRows = 50
)

type AudioAnalyzer interface {
	Analyze(ctx context.Context, state *domain.State, localPath, audioURL, prompt string) (*domain.AudioDNA, error)
	UpdateBPM(state *domain.State, bpm int) error
	UpdateLyrics(state *domain.State, text string) error
}

type audioAnalyzer struct {
	log   *logger.Logger
	fal   clients.FALClient
	muxer media.Muxer
	costs costs.CostTracker
	debug debuglog.Recorder
}

func NewAudioAnalyzer(log *logger.Logger, fal clients.FALClient, muxer media.Muxer, ct costs.CostTracker, debug debuglog.Recorder) AudioAnalyzer {
	return &audioAnalyzer{
		log:   log.With("service", "AudioAnalyzer"),
		fal:   fal,
		muxer: muxer,
		costs: ct,
		debug: debug,
	}
}

func (a *audioAnalyzer) Analyze(ctx context.Context, state *domain.State, localPath, audioURL, prompt string) (*domain.AudioDNA, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	// Local probes run first; either may fail without consequence.
	localDuration := 0.0
	if d, err := a.muxer.ProbeDuration(ctx, localPath); err == nil {
		localDuration = d
		a.log.Info("Local duration probe", "seconds", d)
	} else {
		a.log.Warn("Duration probe failed", "error", err.Error())
	}

	localBPM := 0
	if samples, err := a.muxer.DecodePCM(ctx, localPath, pcmRate); err == nil {
		localBPM = EstimateBPM(samples, pcmRate)
		if localBPM > 0 {
			a.log.Info("Local tempo estimate", "bpm", localBPM)
		}
	} else {
		a.log.Warn("PCM decode failed", "error", err.Error())
	}

	whisperTranscript := ""
	if state.Project.UseWhisper {
		text, err := a.fal.Transcribe(ctx, audioURL)
		if err != nil {
			a.log.Warn("Whisper transcription failed", "error", err.Error())
		} else {
			whisperTranscript = text
			units := int(localDuration)
			if units <= 0 {
				units = 180
			}
			a.costs.Track(state, "fal-ai/whisper", units, "whisper")
		}
	}

	raw, err := a.fal.AudioUnderstanding(ctx, audioURL, prompt)

	// Duration-based pricing: one unit per five seconds.
	costDuration := localDuration
	if costDuration <= 0 {
		costDuration = 180
	}
	a.costs.Track(state, "fal-ai/audio-understanding", max(1, int(costDuration/5)), "audio_dna")

	if err != nil {
		return nil, err
	}
	a.debug.Record(state, "audio_understanding", "fal-ai/audio-understanding",
		map[string]any{"audio_url": audioURL, "prompt": prompt}, raw, nil)

	dna := normalize(raw)
	dna.Source = domain.SourceInfo{
		Provider:  "fal",
		Model:     "audio-understanding",
		CreatedAt: time.Now().Format("2006-01-02T15:04:05"),
	}

	// Local measurements win over model guesses.
	if localDuration > 0 {
		dna.Meta.DurationSec = localDuration
		dna.Meta.DurationSource = "local"
	}
	if localBPM > 0 {
		dna.Meta.BPMExternal = dna.Meta.BPM
		dna.Meta.BPM = localBPM
		dna.Meta.BPMSource = "local"
	} else if dna.Meta.BPM > 0 {
		dna.Meta.BPMSource = "external"
	} else {
		dna.Meta.BPM = defaultBPM
		dna.Meta.BPMSource = "default"
	}

	if whisperTranscript != "" {
		dna.WhisperTranscript = whisperTranscript
		if len(dna.Lyrics) < 3 {
			dna.Lyrics = lyricsFromTranscript(whisperTranscript)
			dna.LyricsSource = "whisper"
		} else {
			dna.LyricsSource = "audio-understanding"
		}
	} else if len(dna.Lyrics) > 0 && dna.LyricsSource == "" {
		dna.LyricsSource = "audio-understanding"
	}

	dna.BeatGrid = BuildBeatGrid(dna.Meta.BPM, dna.Meta.DurationSec)
	return dna, nil
}

func (a *audioAnalyzer) UpdateBPM(state *domain.State, bpm int) error {
	if state.AudioDNA == nil {
		return fmt.Errorf("project has no audio analysis: %w", apperr.ErrNotFound)
	}
	if bpm < bpmMin {
		bpm = bpmMin
	}
	if bpm > bpmMax {
		bpm = bpmMax
	}
	state.AudioDNA.Meta.BPM = bpm
	state.AudioDNA.Meta.BPMSource = "manual"
	state.AudioDNA.BeatGrid = BuildBeatGrid(bpm, state.AudioDNA.Meta.DurationSec)
	a.log.Info("BPM override", "project_id", state.Project.ID, "bpm", bpm)
	return nil
}

func (a *audioAnalyzer) UpdateLyrics(state *domain.State, text string) error {
	if state.AudioDNA == nil {
		return fmt.Errorf("project has no audio analysis: %w", apperr.ErrNotFound)
	}
	state.AudioDNA.Lyrics = lyricsFromTranscript(text)
	state.AudioDNA.LyricsSource = "manual"
	return nil
}

func lyricsFromTranscript(text string) []domain.LyricLine {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) <= 1 {
		lines = lines[:0]
		for _, s := range strings.Split(text, ".") {
			if t := strings.TrimSpace(s); t != "" {
				lines = append(lines, t+".")
			}
		}
	}
	if len(lines) > maxLyricRows {
		lines = lines[:maxLyricRows]
	}
	out := make([]domain.LyricLine, len(lines))
	for i, l := range lines {
		out[i] = domain.LyricLine{Text: l}
	}
	return out
}

// unwrapOutput handles the backend's habit of returning the analysis JSON as
// a fenced markdown string under "output".
func unwrapOutput(raw map[string]any) map[string]any {
	if raw["bpm"] != nil || raw["structure"] != nil || raw["lyrics"] != nil {
		return raw
	}
	output, _ := raw["output"].(string)
	if output == "" {
		return raw
	}
	jsonText := clients.ExtractJSONObject(output)
	if jsonText == "" {
		return raw
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return raw
	}
	return parsed
}

func normalize(raw map[string]any) *domain.AudioDNA {
	data := unwrapOutput(raw)
	dna := &domain.AudioDNA{}

	dna.Meta.DurationSec = asFloat(first(data, "duration_sec", "duration"))
	dna.Meta.BPM = int(asFloat(first(data, "bpm", "tempo")))
	dna.Meta.Key = asString(first(data, "key", "musical_key"))
	dna.Meta.Genre = asString(data["genre"])
	dna.Meta.Energy = asFloat(data["energy"])
	dna.Meta.Language = asString(data["language"])

	switch v := data["style"].(type) {
	case []any:
		for _, s := range v {
			if str := asString(s); str != "" {
				dna.Style = append(dna.Style, str)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if t := strings.TrimSpace(s); t != "" {
				dna.Style = append(dna.Style, t)
			}
		}
	}

	mood := first(data, "mood", "emotion", "atmosphere")
	if list, ok := mood.([]any); ok && len(list) > 0 {
		mood = list[0]
	}
	dna.Mood = asString(mood)

	if sections, ok := first(data, "structure", "sections").([]any); ok {
		for _, s := range sections {
			m, ok := s.(map[string]any)
			if !ok {
				continue
			}
			typ := asString(first(m, "type", "label"))
			if typ == "" {
				typ = "verse"
			}
			dna.Sections = append(dna.Sections, domain.Section{
				Type:  typ,
				Start: asFloat(m["start"]),
				End:   asFloat(m["end"]),
			})
		}
	}

	if dynamics, ok := data["dynamics"].([]any); ok {
		sum, n := 0.0, 0
		for _, d := range dynamics {
			m, ok := d.(map[string]any)
			if !ok {
				continue
			}
			dyn := domain.Dynamic{
				Start:  asFloat(m["start"]),
				End:    asFloat(m["end"]),
				Energy: asFloat(m["energy"]),
			}
			dna.Dynamics = append(dna.Dynamics, dyn)
			sum += dyn.Energy
			n++
		}
		if n > 0 {
			dna.Meta.Energy = sum / float64(n)
		}
	}

	switch v := data["vocal_delivery"].(type) {
	case map[string]any:
		pace := asString(v["pace"])
		tone := ""
		if list, ok := v["tone"].([]any); ok {
			parts := make([]string, 0, len(list))
			for _, t := range list {
				if s := asString(t); s != "" {
					parts = append(parts, s)
				}
			}
			tone = strings.Join(parts, ", ")
		} else {
			tone = asString(v["tone"])
		}
		if pace != "" || tone != "" {
			dna.Delivery = strings.TrimSpace(pace + " - " + tone)
		}
	case string:
		dna.Delivery = v
	}

	switch v := data["story_arc"].(type) {
	case map[string]any:
		dna.Story = domain.StoryArc{
			Theme:    asString(v["theme"]),
			Start:    asString(v["start"]),
			Conflict: asString(v["conflict"]),
			End:      asString(v["end"]),
		}
	case string:
		dna.Story = domain.StoryArc{Theme: v}
	}

	switch v := data["lyrics"].(type) {
	case string:
		dna.Lyrics = lyricsFromTranscript(v)
	case []any:
		for _, item := range v {
			switch line := item.(type) {
			case string:
				dna.Lyrics = append(dna.Lyrics, domain.LyricLine{Text: line})
			case map[string]any:
				ll := domain.LyricLine{Text: asString(line["text"])}
				if s, ok := line["start"]; ok && s != nil {
					f := asFloat(s)
					ll.Start = &f
				}
				dna.Lyrics = append(dna.Lyrics, ll)
			}
		}
	}

	switch v := first(data, "instruments", "instrumentation").(type) {
	case []any:
		for _, i := range v {
			if s := asString(i); s != "" {
				dna.Instruments = append(dna.Instruments, s)
			}
		}
	case string:
		for _, i := range strings.Split(v, ",") {
			if t := strings.TrimSpace(i); t != "" {
				dna.Instruments = append(dna.Instruments, t)
			}
		}
	}

	if blob, err := json.Marshal(raw); err == nil && len(blob) < 100_000 {
		dna.RawTextBlob = string(blob)
	}
	return dna
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
