package render

import (
	"context"
	"strings"
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type passthroughUploader struct{}

func (passthroughUploader) ExternalRef(_ context.Context, _ *domain.State, url string) (string, bool, error) {
	return url, false, nil
}

func testState() *domain.State {
	st := &domain.State{
		Project: domain.Project{
			ID:          "p1",
			Title:       "Test",
			StylePreset: "anamorphic_cinema",
			Aspect:      domain.AspectHorizontal,
		},
		Cast: []domain.CastMember{
			{CastID: "lead_1", Name: "Ava", Role: domain.RoleLead, Impact: 0.9},
			{CastID: "supporting_1", Name: "Max", Role: domain.RoleSupporting, Impact: 0.5, PromptExtra: "leather gloves"},
		},
		CastMatrix: domain.CastMatrix{
			CharacterRefs: map[string]*domain.CharacterRefs{
				"lead_1":       {RefA: "/files/a_full.png", RefB: "/files/a_face.png"},
				"supporting_1": {RefA: "/files/m_full.png"},
			},
			Scenes: []domain.Scene{
				{
					SceneID:     "scene_01",
					SequenceID:  "seq_01",
					DecorRefs:   []string{"/files/decor.png", "/files/decor_alt.png"},
					WardrobeRef: "/files/wardrobe.png",
				},
			},
		},
	}
	st.Project.StyleLocked = true
	st.Project.StyleLockImage = "/files/style_lock.png"
	return st
}

func TestEnergyTokensBands(t *testing.T) {
	if got := EnergyTokens(0.2); got[0] != "quiet" {
		t.Fatalf("low band: %v", got)
	}
	if got := EnergyTokens(0.5); got[0] != "steady motion" {
		t.Fatalf("mid band: %v", got)
	}
	if got := EnergyTokens(0.9); got[0] != "high intensity" {
		t.Fatalf("high band: %v", got)
	}
	// Band edges belong to the lower band.
	if got := EnergyTokens(0.3); got[0] != "quiet" {
		t.Fatalf("0.3 band: %v", got)
	}
	if got := EnergyTokens(0.7); got[0] != "steady motion" {
		t.Fatalf("0.7 band: %v", got)
	}
}

func TestBuildPromptComposition(t *testing.T) {
	st := testState()
	shot := &domain.Shot{
		ShotID:           "seq_01_sh01",
		SequenceID:       "seq_01",
		Energy:           0.9,
		PromptBase:       "lead walks through rain",
		CameraLanguage:   "tracking shot",
		Environment:      "neon alley",
		SymbolicElements: []string{"broken umbrella"},
	}
	prompt := BuildPrompt(st, shot)

	for _, want := range []string{
		"anamorphic lens",
		"aspect horizontal",
		"high intensity",
		"lead walks through rain",
		"tracking shot",
		"neon alley",
		"broken umbrella",
		"no text, no watermark, no subtitles, no logo",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, ", ,") {
		t.Fatalf("prompt carries empty segments:\n%s", prompt)
	}
}

func TestWardrobeSuffixPriority(t *testing.T) {
	st := testState()
	shot := &domain.Shot{
		Cast:     []string{"lead_1", "supporting_1"},
		Wardrobe: map[string]string{"lead_1": "red coat"},
	}
	suffix := wardrobeSuffix(st, shot)
	if !strings.Contains(suffix, "Ava: red coat") {
		t.Fatalf("shot wardrobe not applied: %q", suffix)
	}
	// No shot-level entry for the second member: prompt_extra fills in.
	if !strings.Contains(suffix, "leather gloves") {
		t.Fatalf("prompt_extra fallback missing: %q", suffix)
	}
}

func TestIsCloseupMarkers(t *testing.T) {
	cases := map[string]bool{
		"slow push-in close-up on her eyes": true,
		"tight portrait framing":            true,
		"wide establishing drone shot":      false,
		"CLOSEUP profile":                   true,
	}
	for camera, want := range cases {
		if got := isCloseup(camera); got != want {
			t.Fatalf("isCloseup(%q) = %v", camera, got)
		}
	}
}

func TestShotRefImagesCloseupPicksRefB(t *testing.T) {
	o := &orchestrator{log: logger.NewNop(), uploader: passthroughUploader{}}
	st := testState()
	shot := &domain.Shot{
		ShotID:         "seq_01_sh01",
		SequenceID:     "seq_01",
		Cast:           []string{"lead_1", "supporting_1"},
		CameraLanguage: "intimate close-up",
	}
	refs, dirty := o.shotRefImages(context.Background(), st, shot)
	if dirty {
		t.Fatalf("passthrough uploads marked dirty")
	}

	want := []string{"/files/decor.png", "/files/wardrobe.png", "/files/a_face.png", "/files/m_full.png"}
	if len(refs) != len(want) {
		t.Fatalf("refs: %v", refs)
	}
	for i, url := range want {
		if refs[i] != url {
			t.Fatalf("ref %d: expected %s, got %s", i, url, refs[i])
		}
	}
	// The style lock image never joins shot renders.
	for _, r := range refs {
		if r == st.Project.StyleLockImage {
			t.Fatalf("style lock image leaked into refs")
		}
	}
}

func TestShotRefImagesWideUsesRefA(t *testing.T) {
	o := &orchestrator{log: logger.NewNop(), uploader: passthroughUploader{}}
	st := testState()
	shot := &domain.Shot{
		ShotID:         "seq_01_sh02",
		SequenceID:     "seq_01",
		Cast:           []string{"lead_1"},
		CameraLanguage: "wide establishing shot",
	}
	refs, _ := o.shotRefImages(context.Background(), st, shot)
	for _, r := range refs {
		if r == "/files/a_face.png" {
			t.Fatalf("wide shot picked the portrait ref")
		}
	}
}

func TestShotRefImagesCapsCast(t *testing.T) {
	o := &orchestrator{log: logger.NewNop(), uploader: passthroughUploader{}}
	st := testState()
	st.Cast = append(st.Cast, domain.CastMember{CastID: "extra_1", Name: "Bo", Role: domain.RoleExtra})
	st.CastMatrix.CharacterRefs["extra_1"] = &domain.CharacterRefs{RefA: "/files/bo.png"}
	shot := &domain.Shot{
		SequenceID: "seq_01",
		Cast:       []string{"lead_1", "supporting_1", "extra_1"},
	}
	refs, _ := o.shotRefImages(context.Background(), st, shot)
	for _, r := range refs {
		if r == "/files/bo.png" {
			t.Fatalf("third cast member ref included")
		}
	}
}

func TestFriendlyShotName(t *testing.T) {
	if got := friendlyShotName("p1", "seq_01_sh03"); got != "p1_seq_01_sh03_Sce01_Sho03" {
		t.Fatalf("friendly name: %q", got)
	}
	if got := friendlyShotName("p1", "custom"); got != "p1_custom" {
		t.Fatalf("fallback name: %q", got)
	}
}
