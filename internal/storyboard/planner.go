// Package storyboard plans the video's timeline: sequences from the song's
// structure, shots within each sequence, and the repair passes that keep the
// timeline inside the audio bounds.
package storyboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/debuglog"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/styles"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

// tightenGap is the largest inter-shot gap closed silently by Tighten.
const tightenGap = 0.06

type BuildResult struct {
	StorySummary  string            `json:"story_summary"`
	Sequences     []domain.Sequence `json:"sequences"`
	SequenceCount int               `json:"sequence_count"`
	TargetShots   int               `json:"target_shots"`
	ModelUsed     string            `json:"model"`
}

type RepairReport struct {
	SequencesRemoved []string `json:"sequences_removed"`
	SequencesCapped  []string `json:"sequences_capped"`
	SequencesKept    int      `json:"sequences_kept"`
	ShotsRemoved     []string `json:"shots_removed"`
	ShotsKept        int      `json:"shots_kept"`
}

type CoverageReport struct {
	Valid         bool     `json:"valid"`
	Issues        []string `json:"issues"`
	SequenceCount int      `json:"sequence_count"`
	ShotCount     int      `json:"shot_count"`
}

type Planner interface {
	BuildSequences(ctx context.Context, state *domain.State) (*BuildResult, error)
	ExpandAll(ctx context.Context, state *domain.State) ([]domain.Shot, error)
	ExpandSequence(ctx context.Context, state *domain.State, sequenceID string) ([]domain.Shot, error)
	Tighten(state *domain.State) error
	Repair(state *domain.State) (*RepairReport, error)
	ValidateCoverage(state *domain.State) *CoverageReport
}

type planner struct {
	log   *logger.Logger
	llm   clients.LLMClient
	costs costs.CostTracker
	debug debuglog.Recorder
}

func NewPlanner(log *logger.Logger, llm clients.LLMClient, ct costs.CostTracker, debug debuglog.Recorder) Planner {
	return &planner{
		log:   log.With("service", "StoryboardPlanner"),
		llm:   llm,
		costs: ct,
		debug: debug,
	}
}

const sequenceSchemaHint = `{
  "story_summary": "One paragraph summary of the visual narrative arc for this song",
  "sequences": [ {
    "sequence_id":"seq_01",
    "label":"Scene Title",
    "start":0.0,
    "end":12.3,
    "structure_type":"intro|verse|prechorus|chorus|bridge|breakdown|outro|instrumental",
    "energy":0.5,
    "cast":["lead_1"],
    "arc_start":"Emotional/visual state at start",
    "arc_end":"Emotional/visual state at end",
    "description":"What happens, what changes, connection to lyrics",
    "lyrics_reference":"Key lyric line this sequence visualizes",
    "start_frame_prompt":"...",
    "end_frame_prompt":"..."
  } ]
}`

func (p *planner) BuildSequences(ctx context.Context, state *domain.State) (*BuildResult, error) {
	if state.AudioDNA == nil {
		return nil, fmt.Errorf("audio analysis missing, upload audio first: %w", apperr.ErrInvalidArgument)
	}
	if len(state.Cast) == 0 {
		return nil, fmt.Errorf("cast missing, add at least one cast member first: %w", apperr.ErrInvalidArgument)
	}
	duration := state.AudioDNA.Meta.DurationSec
	seqCount, targetShots := Targets(duration)

	primary := domain.PrimaryLeadID(state.Cast)
	castInfo := make([]map[string]any, 0, len(state.Cast))
	for _, c := range domain.SortByPresence(state.Cast) {
		castInfo = append(castInfo, map[string]any{
			"cast_id":  c.CastID,
			"name":     c.Name,
			"role":     string(c.Role),
			"wardrobe": c.PromptExtra,
			"usage":    domain.UsageString(c, c.CastID == primary),
		})
	}

	system := "Return ONLY valid JSON. No prose. No markdown. No code fences.\n" +
		"Your entire response MUST be a single JSON object.\n\n" +
		fmt.Sprintf("TASK: Create a visual storyboard for a %.1fs music video with %d sequences.\n\n", duration, seqCount) +
		"CRITICAL RULES:\n" +
		"1. LEAD cast members are the PROTAGONIST - they appear in MOST sequences, especially choruses\n" +
		"2. SUPPORTING cast members are SECONDARY - they appear in verses and bridges, interact with lead\n" +
		"3. EXTRA cast members are BACKGROUND - brief appearances, crowd shots, atmosphere\n" +
		"4. Each sequence MUST connect to the song's LYRICS and STORY - reference specific lines!\n" +
		"5. The visual narrative must follow the song's emotional arc (intro, build, climax, resolution)\n" +
		"6. Sequences must match the song STRUCTURE - intro sequences feel like intros, choruses are high energy\n" +
		fmt.Sprintf("7. TIMING IS CRITICAL: First sequence starts at 0.0, last sequence ends at EXACTLY %.1f. NO sequence may end after %.1f!\n", duration, duration) +
		"8. Energy levels should follow the song dynamics\n\n" +
		fmt.Sprintf("AUDIO DURATION: %.1f seconds. The final sequence MUST end at %.1f, not before, not after.\n\n", duration, duration) +
		"Schema:\n" + sequenceSchemaHint + "\n"

	lyricsPreview := "No lyrics available"
	if len(state.AudioDNA.Lyrics) > 0 {
		lines := make([]string, 0, 20)
		for _, l := range state.AudioDNA.Lyrics {
			lines = append(lines, l.Text)
			if len(lines) == 20 {
				break
			}
		}
		lyricsPreview = strings.Join(lines, " | ")
	}

	userPayload := map[string]any{
		"project":        state.Project,
		"style_notes":    styles.ScriptNotes(state.Project.StylePreset),
		"style_tokens":   styles.Tokens(state.Project.StylePreset),
		"song_story":     state.AudioDNA.Story,
		"song_structure": state.AudioDNA.Sections,
		"lyrics_preview": lyricsPreview,
		"audio_meta":     state.AudioDNA.Meta,
		"beat_grid":      state.AudioDNA.BeatGrid,
		"targets": map[string]any{
			"sequence_count": seqCount,
			"target_shots":   targetShots,
			"duration_sec":   duration,
		},
		"cast": castInfo,
	}
	user, err := json.Marshal(userPayload)
	if err != nil {
		return nil, fmt.Errorf("encode prompt payload: %w", err)
	}

	resp, model, err := p.llm.GenerateJSON(ctx, system, string(user), 5000)
	if err != nil {
		return nil, err
	}
	p.costs.Track(state, model, 1, "sequences_build")
	p.debug.Record(state, "sequences_build", model,
		map[string]any{"system": truncateForLog(system), "user": truncateForLog(string(user))}, resp, nil)

	rawSequences, ok := resp["sequences"].([]any)
	if !ok || len(rawSequences) == 0 {
		return nil, fmt.Errorf("model returned no sequences: %w", apperr.ErrBackendTransient)
	}
	storySummary, _ := resp["story_summary"].(string)

	validCast := state.ValidCastIDs()
	cleaned := make([]domain.Sequence, 0, len(rawSequences))
	for i, raw := range rawSequences {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		seq := cleanSequence(m, i+1, validCast)

		// Cap to the audio duration; drop what starts past it.
		if seq.Start >= duration {
			p.log.Warn("Dropping sequence past audio end", "sequence_id", seq.SequenceID, "start", seq.Start)
			continue
		}
		if seq.End > duration {
			p.log.Info("Capping sequence end", "sequence_id", seq.SequenceID, "from", seq.End, "to", duration)
			seq.End = duration
		}
		if seq.Start >= seq.End {
			continue
		}
		cleaned = append(cleaned, seq)
	}
	if len(cleaned) > seqCount {
		cleaned = cleaned[:seqCount]
		cleaned[len(cleaned)-1].End = duration
	}

	state.Storyboard.Sequences = cleaned
	state.Storyboard.Shots = []domain.Shot{}
	state.Storyboard.StorySummary = storySummary

	return &BuildResult{
		StorySummary:  storySummary,
		Sequences:     cleaned,
		SequenceCount: seqCount,
		TargetShots:   targetShots,
		ModelUsed:     model,
	}, nil
}

func cleanSequence(m map[string]any, index int, validCast map[string]bool) domain.Sequence {
	seq := domain.Sequence{
		SequenceID:       strOr(m["sequence_id"], fmt.Sprintf("seq_%02d", index)),
		Start:            numOf(m["start"]),
		End:              numOf(m["end"]),
		StructureType:    domain.NormalizeStructureType(strOr(m["structure_type"], "verse")),
		Energy:           utils.Clamp(numOf(m["energy"]), 0, 1),
		ArcStart:         strings.TrimSpace(strOr(m["arc_start"], "")),
		ArcEnd:           strings.TrimSpace(strOr(m["arc_end"], "")),
		Description:      strings.TrimSpace(strOr(m["description"], "")),
		LyricsReference:  strings.TrimSpace(strOr(m["lyrics_reference"], "")),
		StartFramePrompt: strings.TrimSpace(strOr(m["start_frame_prompt"], "")),
		EndFramePrompt:   strings.TrimSpace(strOr(m["end_frame_prompt"], "")),
		Cast:             []string{},
	}
	seq.Label = strings.TrimSpace(strOr(m["label"], ""))
	if seq.Label == "" {
		seq.Label = seq.SequenceID
	}
	if list, ok := m["cast"].([]any); ok {
		for _, c := range list {
			if id, ok := c.(string); ok && validCast[id] {
				seq.Cast = append(seq.Cast, id)
			}
		}
	}
	if m["energy"] == nil {
		seq.Energy = 0.5
	}
	return seq
}

const shotSchemaHint = `{ "shots": [ { "shot_id":"seq_01_sh01","start":0.0,"end":1.2,"energy":0.0,"structure_type":"verse","cast":["lead_1"],"wardrobe":{"lead_1":"specific wardrobe for this shot"},"intent":"...","camera_language":"...","environment":"...","symbolic_elements":["..."],"prompt_base":"..." } ] }`

func (p *planner) ExpandAll(ctx context.Context, state *domain.State) ([]domain.Shot, error) {
	if len(state.Storyboard.Sequences) == 0 {
		return nil, fmt.Errorf("no sequences, build sequences first: %w", apperr.ErrInvalidArgument)
	}
	var all []domain.Shot
	for i := range state.Storyboard.Sequences {
		shots, err := p.expandOne(ctx, state, &state.Storyboard.Sequences[i])
		if err != nil {
			return nil, err
		}
		all = append(all, shots...)
	}
	state.Storyboard.Shots = all
	return all, nil
}

func (p *planner) ExpandSequence(ctx context.Context, state *domain.State, sequenceID string) ([]domain.Shot, error) {
	seq := state.FindSequence(sequenceID)
	if seq == nil {
		return nil, fmt.Errorf("sequence %s: %w", sequenceID, apperr.ErrNotFound)
	}
	shots, err := p.expandOne(ctx, state, seq)
	if err != nil {
		return nil, err
	}
	// Replace only this sequence's shots, keeping overall start order.
	kept := state.Storyboard.Shots[:0]
	for _, sh := range state.Storyboard.Shots {
		if sh.SequenceID != sequenceID {
			kept = append(kept, sh)
		}
	}
	kept = append(kept, shots...)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	state.Storyboard.Shots = kept
	return shots, nil
}

func (p *planner) expandOne(ctx context.Context, state *domain.State, seq *domain.Sequence) ([]domain.Shot, error) {
	primary := domain.PrimaryLeadID(state.Cast)
	castInfo := make([]map[string]any, 0, len(state.Cast))
	for _, c := range domain.SortByPresence(state.Cast) {
		castInfo = append(castInfo, map[string]any{
			"cast_id":  c.CastID,
			"name":     c.Name,
			"role":     strings.ToUpper(string(c.Role)),
			"impact":   fmt.Sprintf("%d%%", int(c.Impact*100)),
			"wardrobe": c.PromptExtra,
			"usage":    domain.UsageString(c, c.CastID == primary),
		})
	}

	system := "Return ONLY valid JSON. No prose. No markdown.\n" +
		"Expand ONE sequence into 5 to 8 shots.\n" +
		"Shots must fit within the sequence start/end. No gaps, no overlaps.\n" +
		"SHOT DURATION: Each shot should be 2-5 seconds. NEVER exceed 5 seconds per shot.\n" +
		"CRITICAL CAST RULES:\n" +
		"- LEAD cast members appear in MOST shots (70%+)\n" +
		"- SUPPORTING cast members appear in about HALF the shots (50%)\n" +
		"- EXTRA cast members MUST appear in at least 1-2 shots across the video\n" +
		"- EVERY cast member must appear somewhere in the video!\n" +
		"- Use the cast[] array to specify which cast_ids appear in each shot\n" +
		"WARDROBE PER SHOT:\n" +
		"- Use the wardrobe object to specify costume/clothing for EACH cast member in EACH shot\n" +
		"- Key is cast_id, value is the wardrobe description for that character in this specific shot\n" +
		"- Wardrobe can change between shots (e.g., 'disheveled' in verse, 'formal suit' in chorus)\n" +
		"- DO NOT put wardrobe in prompt_base, use the wardrobe field instead\n\n" +
		"Schema hint:\n" + shotSchemaHint + "\n"

	userPayload := map[string]any{
		"sequence":     seq,
		"duration_sec": state.AudioDNA.Meta.DurationSec,
		"style_notes":  styles.ScriptNotes(state.Project.StylePreset),
		"cast":         castInfo,
	}
	user, err := json.Marshal(userPayload)
	if err != nil {
		return nil, fmt.Errorf("encode prompt payload: %w", err)
	}

	resp, model, err := p.llm.GenerateJSON(ctx, system, string(user), 5000)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", seq.SequenceID, err)
	}
	p.costs.Track(state, model, 1, "shots_expand")
	p.debug.Record(state, "shots_expand_"+seq.SequenceID, model,
		map[string]any{"user": truncateForLog(string(user))}, resp, nil)

	rawShots, ok := resp["shots"].([]any)
	if !ok || len(rawShots) == 0 {
		return nil, fmt.Errorf("model returned no shots for %s: %w", seq.SequenceID, apperr.ErrBackendTransient)
	}

	nameToID := buildNameIndex(state.Cast)
	shots := make([]domain.Shot, 0, len(rawShots))
	for j, raw := range rawShots {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		shot := p.cleanShot(m, seq, j+1, nameToID)
		shots = append(shots, shot)
	}
	sort.SliceStable(shots, func(i, j int) bool { return shots[i].Start < shots[j].Start })
	return shots, nil
}

func (p *planner) cleanShot(m map[string]any, seq *domain.Sequence, index int, nameToID map[string]string) domain.Shot {
	shot := domain.Shot{
		ShotID:        strOr(m["shot_id"], fmt.Sprintf("%s_sh%02d", seq.SequenceID, index)),
		SequenceID:    seq.SequenceID,
		Start:         numOr(m["start"], seq.Start),
		End:           numOr(m["end"], seq.End),
		StructureType: domain.NormalizeStructureType(strOr(m["structure_type"], string(seq.StructureType))),
		Energy:        utils.Clamp(numOr(m["energy"], seq.Energy), 0, 1),
		Cast:          []string{},
		Intent:        strings.TrimSpace(strOr(m["intent"], "")),
		CameraLanguage: strings.TrimSpace(strOr(m["camera_language"], "")),
		Environment:   strings.TrimSpace(strOr(m["environment"], "")),
		PromptBase:    strings.TrimSpace(strOr(m["prompt_base"], "")),
		Render:        domain.Render{Status: domain.RenderNone},
	}
	if d := shot.End - shot.Start; d > 5.0 {
		// Long shots are kept: truncating here would open a timeline gap.
		p.log.Warn("Shot exceeds recommended length", "shot_id", shot.ShotID, "seconds", d)
	}
	if list, ok := m["cast"].([]any); ok {
		for _, c := range list {
			name, _ := c.(string)
			if id, ok := nameToID[strings.ToLower(strings.TrimSpace(name))]; ok && !contains(shot.Cast, id) {
				shot.Cast = append(shot.Cast, id)
			}
		}
	}
	if wardrobe, ok := m["wardrobe"].(map[string]any); ok {
		for k, v := range wardrobe {
			id, ok := nameToID[strings.ToLower(strings.TrimSpace(k))]
			if !ok {
				continue
			}
			if outfit, ok := v.(string); ok && strings.TrimSpace(outfit) != "" {
				if shot.Wardrobe == nil {
					shot.Wardrobe = map[string]string{}
				}
				shot.Wardrobe[id] = strings.TrimSpace(outfit)
			}
		}
	}
	if list, ok := m["symbolic_elements"].([]any); ok {
		for _, e := range list {
			if s, ok := e.(string); ok && s != "" {
				shot.SymbolicElements = append(shot.SymbolicElements, s)
			}
		}
	}
	return shot
}

// Tighten closes rounding artifacts: overlaps push the later shot forward,
// and gaps at or under tightenGap are absorbed by the earlier shot.
func (p *planner) Tighten(state *domain.State) error {
	if len(state.Storyboard.Shots) == 0 {
		return fmt.Errorf("no shots, expand first: %w", apperr.ErrInvalidArgument)
	}
	bySeq := map[string][]*domain.Shot{}
	order := []string{}
	for i := range state.Storyboard.Shots {
		sh := &state.Storyboard.Shots[i]
		if _, ok := bySeq[sh.SequenceID]; !ok {
			order = append(order, sh.SequenceID)
		}
		bySeq[sh.SequenceID] = append(bySeq[sh.SequenceID], sh)
	}
	for _, seqID := range order {
		arr := bySeq[seqID]
		sort.SliceStable(arr, func(i, j int) bool { return arr[i].Start < arr[j].Start })
		for i := 1; i < len(arr); i++ {
			prev, cur := arr[i-1], arr[i]
			if cur.Start < prev.End {
				cur.Start = prev.End
			}
			if cur.End < cur.Start {
				cur.End = cur.Start + 0.1
			}
		}
		for i := 0; i < len(arr)-1; i++ {
			if arr[i+1].Start-arr[i].End <= tightenGap {
				arr[i].End = arr[i+1].Start
			}
		}
	}
	return nil
}

// Repair drops or caps sequences and shots that drifted past the audio
// duration. Safe to run repeatedly.
func (p *planner) Repair(state *domain.State) (*RepairReport, error) {
	if state.AudioDNA == nil {
		return nil, fmt.Errorf("audio analysis missing: %w", apperr.ErrInvalidArgument)
	}
	duration := state.AudioDNA.Meta.DurationSec
	if duration <= 0 {
		duration = 180
	}
	report := &RepairReport{
		SequencesRemoved: []string{},
		SequencesCapped:  []string{},
		ShotsRemoved:     []string{},
	}

	keptSeqs := make([]domain.Sequence, 0, len(state.Storyboard.Sequences))
	validSeqIDs := map[string]bool{}
	for _, seq := range state.Storyboard.Sequences {
		if seq.Start >= duration {
			report.SequencesRemoved = append(report.SequencesRemoved, seq.SequenceID)
			continue
		}
		if seq.End > duration {
			seq.End = duration
			report.SequencesCapped = append(report.SequencesCapped, seq.SequenceID)
		}
		if seq.Start >= seq.End {
			report.SequencesRemoved = append(report.SequencesRemoved, seq.SequenceID)
			continue
		}
		keptSeqs = append(keptSeqs, seq)
		validSeqIDs[seq.SequenceID] = true
	}

	keptShots := make([]domain.Shot, 0, len(state.Storyboard.Shots))
	for _, shot := range state.Storyboard.Shots {
		if !validSeqIDs[shot.SequenceID] || shot.Start >= duration {
			report.ShotsRemoved = append(report.ShotsRemoved, shot.ShotID)
			continue
		}
		if shot.End > duration {
			shot.End = duration
		}
		if shot.Start >= shot.End {
			report.ShotsRemoved = append(report.ShotsRemoved, shot.ShotID)
			continue
		}
		keptShots = append(keptShots, shot)
	}

	state.Storyboard.Sequences = keptSeqs
	state.Storyboard.Shots = keptShots
	report.SequencesKept = len(keptSeqs)
	report.ShotsKept = len(keptShots)
	return report, nil
}

func (p *planner) ValidateCoverage(state *domain.State) *CoverageReport {
	report := &CoverageReport{
		Issues:        []string{},
		SequenceCount: len(state.Storyboard.Sequences),
		ShotCount:     len(state.Storyboard.Shots),
	}
	for _, seq := range state.Storyboard.Sequences {
		shots := state.Storyboard.ShotsForSequence(seq.SequenceID)
		if len(shots) == 0 {
			report.Issues = append(report.Issues, fmt.Sprintf("sequence %s has no shots", seq.SequenceID))
			continue
		}
		sort.SliceStable(shots, func(i, j int) bool { return shots[i].Start < shots[j].Start })
		if diff := shots[0].Start - seq.Start; diff > 0.1 || diff < -0.1 {
			report.Issues = append(report.Issues, fmt.Sprintf("gap at start of %s", seq.SequenceID))
		}
		if diff := shots[len(shots)-1].End - seq.End; diff > 0.1 || diff < -0.1 {
			report.Issues = append(report.Issues, fmt.Sprintf("gap at end of %s", seq.SequenceID))
		}
		for i := 0; i < len(shots)-1; i++ {
			if diff := shots[i+1].Start - shots[i].End; diff > 0.1 || diff < -0.1 {
				report.Issues = append(report.Issues,
					fmt.Sprintf("gap between %s and %s", shots[i].ShotID, shots[i+1].ShotID))
			}
		}
	}
	report.Valid = len(report.Issues) == 0
	return report
}

func buildNameIndex(cast []domain.CastMember) map[string]string {
	idx := map[string]string{}
	for _, c := range cast {
		if c.Name != "" {
			idx[strings.ToLower(strings.TrimSpace(c.Name))] = c.CastID
		}
		if c.CastID != "" {
			idx[strings.ToLower(c.CastID)] = c.CastID
		}
	}
	return idx
}

func strOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func numOf(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

func numOr(v any, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncateForLog(s string) string {
	if len(s) > 500 {
		return s[:500]
	}
	return s
}
