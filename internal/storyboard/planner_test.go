package storyboard

import (
	"errors"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	apperr "github.com/BXLSTNRD/FrePathe/internal/pkg/errors"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

func newTestPlanner() *planner {
	return &planner{log: logger.NewNop()}
}

func TestTargetsByDuration(t *testing.T) {
	cases := []struct {
		duration  float64
		sequences int
	}{
		{30, 3},
		{90, 5},
		{150, 7},
		{200, 9},
		{300, 12},
		{1000, 12},
		{0, 9}, // zero falls back to the 180s default
	}
	for _, tc := range cases {
		seqs, shots := Targets(tc.duration)
		if seqs != tc.sequences {
			t.Fatalf("duration %.0f: expected %d sequences, got %d", tc.duration, tc.sequences, seqs)
		}
		if shots != seqs*6 {
			t.Fatalf("duration %.0f: expected %d shots, got %d", tc.duration, seqs*6, shots)
		}
	}
}

func TestTightenClosesSmallGaps(t *testing.T) {
	p := newTestPlanner()
	st := &domain.State{
		Storyboard: domain.Storyboard{
			Shots: []domain.Shot{
				{ShotID: "a", SequenceID: "seq_01", Start: 0, End: 2.0},
				{ShotID: "b", SequenceID: "seq_01", Start: 2.05, End: 4.0},
				{ShotID: "c", SequenceID: "seq_01", Start: 5.0, End: 6.0},
			},
		},
	}
	if err := p.Tighten(st); err != nil {
		t.Fatalf("Tighten: %v", err)
	}
	if st.Storyboard.Shots[0].End != 2.05 {
		t.Fatalf("small gap not closed: end=%.2f", st.Storyboard.Shots[0].End)
	}
	// 1.0s gap is above the threshold and must stay.
	if st.Storyboard.Shots[1].End != 4.0 {
		t.Fatalf("large gap was closed: end=%.2f", st.Storyboard.Shots[1].End)
	}
}

func TestTightenResolvesOverlap(t *testing.T) {
	p := newTestPlanner()
	st := &domain.State{
		Storyboard: domain.Storyboard{
			Shots: []domain.Shot{
				{ShotID: "a", SequenceID: "seq_01", Start: 0, End: 3.0},
				{ShotID: "b", SequenceID: "seq_01", Start: 2.5, End: 5.0},
			},
		},
	}
	if err := p.Tighten(st); err != nil {
		t.Fatalf("Tighten: %v", err)
	}
	if st.Storyboard.Shots[1].Start != 3.0 {
		t.Fatalf("overlap not pushed forward: start=%.2f", st.Storyboard.Shots[1].Start)
	}
}

func TestTightenNeedsShots(t *testing.T) {
	p := newTestPlanner()
	if err := p.Tighten(&domain.State{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRepairDropsAndCaps(t *testing.T) {
	p := newTestPlanner()
	st := &domain.State{
		AudioDNA: &domain.AudioDNA{},
		Storyboard: domain.Storyboard{
			Sequences: []domain.Sequence{
				{SequenceID: "seq_01", Start: 0, End: 50},
				{SequenceID: "seq_02", Start: 50, End: 130}, // capped to 100
				{SequenceID: "seq_03", Start: 120, End: 150}, // starts past duration
			},
			Shots: []domain.Shot{
				{ShotID: "s1", SequenceID: "seq_01", Start: 0, End: 50},
				{ShotID: "s2", SequenceID: "seq_02", Start: 50, End: 110}, // end clipped
				{ShotID: "s3", SequenceID: "seq_03", Start: 120, End: 130}, // sequence dropped
				{ShotID: "s4", SequenceID: "seq_02", Start: 105, End: 110}, // starts past duration
			},
		},
	}
	st.AudioDNA.Meta.DurationSec = 100

	report, err := p.Repair(st)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if len(report.SequencesRemoved) != 1 || report.SequencesRemoved[0] != "seq_03" {
		t.Fatalf("sequences removed: %v", report.SequencesRemoved)
	}
	if len(report.SequencesCapped) != 1 || report.SequencesCapped[0] != "seq_02" {
		t.Fatalf("sequences capped: %v", report.SequencesCapped)
	}
	if report.SequencesKept != 2 {
		t.Fatalf("sequences kept: %d", report.SequencesKept)
	}
	if len(report.ShotsRemoved) != 2 {
		t.Fatalf("shots removed: %v", report.ShotsRemoved)
	}
	for _, shot := range st.Storyboard.Shots {
		if shot.End > 100 {
			t.Fatalf("shot %s end %.1f not clipped", shot.ShotID, shot.End)
		}
	}
}

func TestRepairRequiresAudio(t *testing.T) {
	p := newTestPlanner()
	if _, err := p.Repair(&domain.State{}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCleanShotResolvesCastNames(t *testing.T) {
	p := newTestPlanner()
	seq := &domain.Sequence{
		SequenceID:    "seq_01",
		Start:         0,
		End:           12,
		StructureType: domain.StructureVerse,
		Energy:        0.5,
	}
	nameToID := buildNameIndex([]domain.CastMember{
		{CastID: "lead_1", Name: "Ava"},
		{CastID: "supporting_1", Name: "Max"},
	})
	shot := p.cleanShot(map[string]any{
		"start":           0.0,
		"end":             3.0,
		"cast":            []any{"ava", "Max", "Unknown"},
		"wardrobe":        map[string]any{"Ava": "red jacket", "Nobody": "x"},
		"camera_language": " slow dolly in ",
		"energy":          1.7,
	}, seq, 1, nameToID)

	if shot.ShotID != "seq_01_sh01" {
		t.Fatalf("shot id: %q", shot.ShotID)
	}
	if len(shot.Cast) != 2 || shot.Cast[0] != "lead_1" || shot.Cast[1] != "supporting_1" {
		t.Fatalf("cast resolution: %v", shot.Cast)
	}
	if shot.Wardrobe["lead_1"] != "red jacket" {
		t.Fatalf("wardrobe: %v", shot.Wardrobe)
	}
	if _, ok := shot.Wardrobe["Nobody"]; ok {
		t.Fatalf("unknown wardrobe name kept")
	}
	if shot.CameraLanguage != "slow dolly in" {
		t.Fatalf("camera language not trimmed: %q", shot.CameraLanguage)
	}
	if shot.Energy != 1 {
		t.Fatalf("energy not clamped: %.2f", shot.Energy)
	}
}

func TestCleanShotFallsBackToSequence(t *testing.T) {
	p := newTestPlanner()
	seq := &domain.Sequence{
		SequenceID:    "seq_02",
		Start:         10,
		End:           20,
		StructureType: domain.StructureChorus,
		Energy:        0.8,
	}
	shot := p.cleanShot(map[string]any{}, seq, 3, map[string]string{})
	if shot.Start != 10 || shot.End != 20 {
		t.Fatalf("timing fallback: [%.1f, %.1f]", shot.Start, shot.End)
	}
	if shot.StructureType != domain.StructureChorus {
		t.Fatalf("structure fallback: %q", shot.StructureType)
	}
	if shot.Energy != 0.8 {
		t.Fatalf("energy fallback: %.2f", shot.Energy)
	}
	if shot.Render.Status != domain.RenderNone {
		t.Fatalf("render status: %q", shot.Render.Status)
	}
}

func TestValidateCoverageFindsGaps(t *testing.T) {
	p := newTestPlanner()
	st := &domain.State{
		Storyboard: domain.Storyboard{
			Sequences: []domain.Sequence{
				{SequenceID: "seq_01", Start: 0, End: 10},
			},
			Shots: []domain.Shot{
				{ShotID: "a", SequenceID: "seq_01", Start: 0, End: 4},
				{ShotID: "b", SequenceID: "seq_01", Start: 5, End: 10},
			},
		},
	}
	report := p.ValidateCoverage(st)
	if report.Valid {
		t.Fatalf("expected coverage issues")
	}
	if len(report.Issues) != 1 {
		t.Fatalf("issues: %v", report.Issues)
	}
}
