package video

import (
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
)

func TestDefaultModel(t *testing.T) {
	m := DefaultModel()
	if m.Key != "ltx2_i2v" {
		t.Fatalf("default model: %q", m.Key)
	}
	if m.Endpoint == "" || m.MinDuration <= 0 || m.MaxDuration <= m.MinDuration {
		t.Fatalf("default model incomplete: %+v", m)
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	if got := Lookup("kling_i2v"); got.Key != "kling_i2v" {
		t.Fatalf("known key: %q", got.Key)
	}
	if got := Lookup("does_not_exist"); got.Key != DefaultModel().Key {
		t.Fatalf("unknown key fallback: %q", got.Key)
	}
	if got := Lookup(""); got.Key != DefaultModel().Key {
		t.Fatalf("empty key fallback: %q", got.Key)
	}
}

func TestListModelsSortedAndComplete(t *testing.T) {
	models := ListModels()
	if len(models) != 4 {
		t.Fatalf("expected 4 models, got %d", len(models))
	}
	for i := 1; i < len(models); i++ {
		if models[i-1].Key >= models[i].Key {
			t.Fatalf("models not sorted: %s before %s", models[i-1].Key, models[i].Key)
		}
	}
	for _, m := range models {
		if m.Endpoint == "" || m.Cost <= 0 {
			t.Fatalf("model %s incomplete: %+v", m.Key, m)
		}
	}
}

func TestAudioSupportFlags(t *testing.T) {
	if !Lookup("ltx2_i2v").SupportsAudio || !Lookup("kling_i2v").SupportsAudio {
		t.Fatalf("expected audio support on ltx2/kling")
	}
	if Lookup("veo31_i2v").SupportsAudio || Lookup("wan_i2v").SupportsAudio {
		t.Fatalf("expected no audio on veo31/wan")
	}
}

func TestMotionPromptComposition(t *testing.T) {
	shot := &domain.Shot{
		CameraLanguage:   "slow dolly in",
		Energy:           0.9,
		Environment:      "rain-soaked street",
		SymbolicElements: []string{"sparks", "smoke", "shadows"},
	}
	got := MotionPrompt(shot)
	want := "slow dolly in, dynamic motion, rain-soaked street, sparks, smoke"
	if got != want {
		t.Fatalf("motion prompt:\n got %q\nwant %q", got, want)
	}
}

func TestMotionPromptLowEnergy(t *testing.T) {
	shot := &domain.Shot{Energy: 0.1}
	if got := MotionPrompt(shot); got != "subtle motion" {
		t.Fatalf("low energy prompt: %q", got)
	}
}

func TestMotionPromptDefault(t *testing.T) {
	shot := &domain.Shot{Energy: 0.5}
	if got := MotionPrompt(shot); got != defaultMotionPrompt {
		t.Fatalf("default prompt: %q", got)
	}
}
