package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func TestBuildBeatGridSpacing(t *testing.T) {
	grid := BuildBeatGrid(120, 10)
	if grid.BPM != 120 {
		t.Fatalf("bpm: %d", grid.BPM)
	}
	if grid.BeatSec != 0.5 || grid.BarSec != 2.0 {
		t.Fatalf("beat/bar seconds: %.3f / %.3f", grid.BeatSec, grid.BarSec)
	}
	// 10s at 0.5s per beat covers beats at 0..9.5.
	if grid.TotalBeats != 20 {
		t.Fatalf("expected 20 beats, got %d", grid.TotalBeats)
	}
	if grid.TotalBars != 5 {
		t.Fatalf("expected 5 bars, got %d", grid.TotalBars)
	}
	if len(grid.Downbeats) != grid.TotalBars {
		t.Fatalf("downbeats/bars mismatch: %d vs %d", len(grid.Downbeats), grid.TotalBars)
	}
	if grid.Beats[1].Time != 0.5 {
		t.Fatalf("second beat at %.3f", grid.Beats[1].Time)
	}
}

func TestBuildBeatGridDegenerate(t *testing.T) {
	grid := BuildBeatGrid(0, 100)
	if len(grid.Beats) != 0 || len(grid.Bars) != 0 {
		t.Fatalf("expected empty grid for zero bpm")
	}
}

func TestSnapToGrid(t *testing.T) {
	grid := []float64{0, 0.5, 1.0, 1.5}
	if got := SnapToGrid(0.52, grid, 0.1); got != 0.5 {
		t.Fatalf("expected snap to 0.5, got %.3f", got)
	}
	if got := SnapToGrid(0.75, grid, 0.1); got != 0.75 {
		t.Fatalf("expected no snap outside tolerance, got %.3f", got)
	}
}

func TestEstimateBPMOnClickTrack(t *testing.T) {
	const (
		rate = 11025
		bpm  = 120.0
	)
	samples := make([]float64, rate*30)
	secPerBeat := 60.0 / bpm
	interval := int(secPerBeat * rate)
	for i := 0; i < len(samples); i += interval {
		for j := 0; j < 400 && i+j < len(samples); j++ {
			samples[i+j] = math.Sin(float64(j) * 0.3)
		}
	}
	got := EstimateBPM(samples, rate)
	// Lag quantization at the analysis frame rate leaves a few BPM of slack.
	if got < 110 || got > 132 {
		t.Fatalf("expected ~120 bpm, got %d", got)
	}
}

func TestEstimateBPMTooShort(t *testing.T) {
	if got := EstimateBPM(make([]float64, 100), 11025); got != 0 {
		t.Fatalf("expected 0 for short input, got %d", got)
	}
}

func TestNormalizeUnwrapsFencedOutput(t *testing.T) {
	raw := map[string]any{
		"output": "```json\n{\"bpm\": 98, \"duration_sec\": 212.5, \"mood\": \"dark\"}\n```",
	}
	dna := normalize(raw)
	if dna.Meta.BPM != 98 {
		t.Fatalf("bpm: %d", dna.Meta.BPM)
	}
	if dna.Meta.DurationSec != 212.5 {
		t.Fatalf("duration: %.2f", dna.Meta.DurationSec)
	}
	if dna.Mood != "dark" {
		t.Fatalf("mood: %q", dna.Mood)
	}
}

func TestNormalizeAcceptsAliases(t *testing.T) {
	dna := normalize(map[string]any{
		"tempo":    140.0,
		"duration": 95.0,
		"emotion":  []any{"euphoric", "bright"},
		"style":    "synthwave, retro",
	})
	if dna.Meta.BPM != 140 {
		t.Fatalf("bpm from tempo alias: %d", dna.Meta.BPM)
	}
	if dna.Meta.DurationSec != 95 {
		t.Fatalf("duration from alias: %.1f", dna.Meta.DurationSec)
	}
	if dna.Mood != "euphoric" {
		t.Fatalf("mood from list: %q", dna.Mood)
	}
	if len(dna.Style) != 2 || dna.Style[0] != "synthwave" {
		t.Fatalf("style split: %v", dna.Style)
	}
}

func TestUpdateBPMClampsAndRebuildsGrid(t *testing.T) {
	a := NewAudioAnalyzer(logger.NewNop(), nil, nil, nil, nil)
	st := &domain.State{
		AudioDNA: &domain.AudioDNA{},
	}
	st.AudioDNA.Meta.DurationSec = 60

	if err := a.UpdateBPM(st, 500); err != nil {
		t.Fatalf("UpdateBPM: %v", err)
	}
	if st.AudioDNA.Meta.BPM != 240 {
		t.Fatalf("expected clamp to 240, got %d", st.AudioDNA.Meta.BPM)
	}
	if st.AudioDNA.Meta.BPMSource != "manual" {
		t.Fatalf("bpm source: %q", st.AudioDNA.Meta.BPMSource)
	}
	if st.AudioDNA.BeatGrid == nil || st.AudioDNA.BeatGrid.BPM != 240 {
		t.Fatalf("beat grid not rebuilt")
	}

	if err := a.UpdateBPM(st, 10); err != nil {
		t.Fatalf("UpdateBPM: %v", err)
	}
	if st.AudioDNA.Meta.BPM != 40 {
		t.Fatalf("expected clamp to 40, got %d", st.AudioDNA.Meta.BPM)
	}
}

func TestUpdateBPMRequiresAnalysis(t *testing.T) {
	a := NewAudioAnalyzer(logger.NewNop(), nil, nil, nil, nil)
	if err := a.UpdateBPM(&domain.State{}, 120); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLyricsMarksManual(t *testing.T) {
	a := NewAudioAnalyzer(logger.NewNop(), nil, nil, nil, nil)
	st := &domain.State{AudioDNA: &domain.AudioDNA{}}
	if err := a.UpdateLyrics(st, "line one\n\nline two"); err != nil {
		t.Fatalf("UpdateLyrics: %v", err)
	}
	if st.AudioDNA.LyricsSource != "manual" {
		t.Fatalf("lyrics source: %q", st.AudioDNA.LyricsSource)
	}
	if len(st.AudioDNA.Lyrics) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(st.AudioDNA.Lyrics))
	}
}
