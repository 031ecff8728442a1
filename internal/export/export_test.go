package export

import (
	"context"
	"errors"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

// fakeMuxer records which operation ran and with what factor.
type fakeMuxer struct {
	trimCalls  int
	speedCalls int
	trimErr    error
	lastFactor float64
	lastTarget float64
}

func (f *fakeMuxer) Probe(context.Context) error { return nil }

func (f *fakeMuxer) ProbeDuration(context.Context, string) (float64, error) { return 0, nil }

func (f *fakeMuxer) ImageToClip(context.Context, string, float64, int, int, int, string) error {
	return nil
}

func (f *fakeMuxer) Concat(context.Context, []string, string, string) error { return nil }

func (f *fakeMuxer) Trim(_ context.Context, _ string, target float64, _ string) error {
	f.trimCalls++
	f.lastTarget = target
	return f.trimErr
}

func (f *fakeMuxer) SpeedAdjust(_ context.Context, _ string, factor float64, _ string) error {
	f.speedCalls++
	f.lastFactor = factor
	return nil
}

func (f *fakeMuxer) Thumbnail(context.Context, string, string, int) error { return nil }

func (f *fakeMuxer) DecodePCM(context.Context, string, int) ([]float64, error) { return nil, nil }

func newFitExporter(m *fakeMuxer) *exporter {
	return &exporter{log: logger.NewNop(), muxer: m}
}

func TestFitClipTrimsLongClips(t *testing.T) {
	m := &fakeMuxer{}
	e := newFitExporter(m)

	out, err := e.fitClip(context.Background(), "src.mp4", 8.0, 5.0, "dst.mp4")
	if err != nil {
		t.Fatalf("fitClip: %v", err)
	}
	if out != "dst.mp4" {
		t.Fatalf("output: %q", out)
	}
	if m.trimCalls != 1 || m.speedCalls != 0 {
		t.Fatalf("expected trim only, got trim=%d speed=%d", m.trimCalls, m.speedCalls)
	}
	if m.lastTarget != 5.0 {
		t.Fatalf("trim target: %.2f", m.lastTarget)
	}
}

func TestFitClipTrimFailureFallsBackToSpeed(t *testing.T) {
	m := &fakeMuxer{trimErr: errors.New("stream copy unsupported")}
	e := newFitExporter(m)

	out, err := e.fitClip(context.Background(), "src.mp4", 8.0, 5.0, "dst.mp4")
	if err != nil {
		t.Fatalf("fitClip: %v", err)
	}
	if out != "dst.mp4" {
		t.Fatalf("output: %q", out)
	}
	if m.speedCalls != 1 {
		t.Fatalf("speed fallback not used")
	}
	// factor = actual/target > 1 speeds the clip up to fit.
	if m.lastFactor != 8.0/5.0 {
		t.Fatalf("speed factor: %.4f", m.lastFactor)
	}
}

func TestFitClipStretchesShortClips(t *testing.T) {
	m := &fakeMuxer{}
	e := newFitExporter(m)

	out, err := e.fitClip(context.Background(), "src.mp4", 4.0, 5.0, "dst.mp4")
	if err != nil {
		t.Fatalf("fitClip: %v", err)
	}
	if out != "dst.mp4" {
		t.Fatalf("output: %q", out)
	}
	if m.trimCalls != 0 || m.speedCalls != 1 {
		t.Fatalf("expected speed only, got trim=%d speed=%d", m.trimCalls, m.speedCalls)
	}
	if m.lastFactor != 4.0/5.0 {
		t.Fatalf("stretch factor: %.4f", m.lastFactor)
	}
}

func TestFitClipWithinToleranceIsUntouched(t *testing.T) {
	m := &fakeMuxer{}
	e := newFitExporter(m)

	out, err := e.fitClip(context.Background(), "src.mp4", 5.05, 5.0, "dst.mp4")
	if err != nil {
		t.Fatalf("fitClip: %v", err)
	}
	if out != "src.mp4" {
		t.Fatalf("expected passthrough, got %q", out)
	}
	if m.trimCalls != 0 || m.speedCalls != 0 {
		t.Fatalf("tolerance window triggered work")
	}
}

func TestRenderedShotsSortedByStart(t *testing.T) {
	st := &domain.State{
		Storyboard: domain.Storyboard{
			Shots: []domain.Shot{
				{ShotID: "b", Start: 5, Render: domain.Render{ImageURL: "/files/b.png"}},
				{ShotID: "skip", Start: 2},
				{ShotID: "a", Start: 0, Render: domain.Render{ImageURL: "/files/a.png"}},
			},
		},
	}
	shots := renderedShots(st)
	if len(shots) != 2 {
		t.Fatalf("expected 2 rendered shots, got %d", len(shots))
	}
	if shots[0].ShotID != "a" || shots[1].ShotID != "b" {
		t.Fatalf("order: %s, %s", shots[0].ShotID, shots[1].ShotID)
	}
}

func TestTransitionsCountsSequenceChanges(t *testing.T) {
	if n := transitions([]string{"s1", "s1", "s2", "s2", "s3"}); n != 2 {
		t.Fatalf("transitions: %d", n)
	}
	if n := transitions(nil); n != 0 {
		t.Fatalf("empty transitions: %d", n)
	}
}

func TestStatusStoreDefaultsToIdle(t *testing.T) {
	store := NewStatusStore()
	got := store.Get("p1")
	if got.Status != StatusIdle {
		t.Fatalf("default status: %q", got.Status)
	}

	store.Set("p1", StatusProcessing, 3, 10, "clip 3/10")
	got = store.Get("p1")
	if got.Status != StatusProcessing || got.Current != 3 || got.Total != 10 {
		t.Fatalf("stored status: %+v", got)
	}
	// Other projects are unaffected.
	if other := store.Get("p2"); other.Status != StatusIdle {
		t.Fatalf("cross-project status leak: %+v", other)
	}
}
