package domain

import (
	"strings"
	"testing"
)

func TestSortByPresenceOrder(t *testing.T) {
	cast := []CastMember{
		{CastID: "extra_1", Role: RoleExtra, Impact: 0.9},
		{CastID: "lead_2", Role: RoleLead, Impact: 0.4},
		{CastID: "supporting_1", Role: RoleSupporting, Impact: 0.8},
		{CastID: "lead_1", Role: RoleLead, Impact: 0.9},
	}
	sorted := SortByPresence(cast)
	want := []string{"lead_1", "lead_2", "supporting_1", "extra_1"}
	for i, id := range want {
		if sorted[i].CastID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, sorted[i].CastID)
		}
	}
	// Input stays untouched.
	if cast[0].CastID != "extra_1" {
		t.Fatalf("input slice reordered")
	}
}

func TestPrimaryLeadID(t *testing.T) {
	cast := []CastMember{
		{CastID: "lead_1", Role: RoleLead, Impact: 0.5},
		{CastID: "lead_2", Role: RoleLead, Impact: 0.9},
		{CastID: "supporting_1", Role: RoleSupporting, Impact: 1.0},
	}
	if got := PrimaryLeadID(cast); got != "lead_2" {
		t.Fatalf("primary lead: %q", got)
	}
	if got := PrimaryLeadID(nil); got != "" {
		t.Fatalf("expected empty for no cast, got %q", got)
	}
}

func TestUsageStringTiers(t *testing.T) {
	primary := CastMember{Role: RoleLead, Impact: 0.9}
	if got := UsageString(primary, true); !strings.Contains(got, "PRIMARY PROTAGONIST") {
		t.Fatalf("primary usage: %q", got)
	}
	coLead := CastMember{Role: RoleLead, Impact: 0.7}
	if got := UsageString(coLead, false); !strings.Contains(got, "CO-LEAD") {
		t.Fatalf("co-lead usage: %q", got)
	}
	secondary := CastMember{Role: RoleLead, Impact: 0.5}
	if got := UsageString(secondary, false); !strings.Contains(got, "SECONDARY LEAD") {
		t.Fatalf("secondary usage: %q", got)
	}
	extra := CastMember{Role: RoleExtra, Impact: 0.2}
	if got := UsageString(extra, false); !strings.Contains(got, "MINIMAL PRESENCE") {
		t.Fatalf("extra usage: %q", got)
	}
}

func TestLockRenderModelsFamilies(t *testing.T) {
	nano := LockRenderModels(ImageModelNanoBanana)
	if nano.ImageModel != "fal-ai/nano-banana-pro" || nano.Img2ImgEditor != EditorNanoBanana {
		t.Fatalf("nanobanana lock: %+v", nano)
	}
	flux := LockRenderModels(ImageModelFlux2)
	if flux.Img2ImgEditor != EditorFlux2 {
		t.Fatalf("flux lock: %+v", flux)
	}
	// Unknown choices fall back to the default family.
	unknown := LockRenderModels(ImageModel("nope"))
	if unknown.ImageModel != "fal-ai/nano-banana-pro" {
		t.Fatalf("unknown lock: %+v", unknown)
	}
}

func TestEditorMaxRefImages(t *testing.T) {
	if EditorNanoBanana.MaxRefImages() != 4 {
		t.Fatalf("nanobanana max refs: %d", EditorNanoBanana.MaxRefImages())
	}
	if EditorSeedream45.MaxRefImages() != 10 {
		t.Fatalf("seedream max refs: %d", EditorSeedream45.MaxRefImages())
	}
}

func TestShotDuration(t *testing.T) {
	s := Shot{Start: 1.5, End: 4.0}
	if d := s.Duration(); d != 2.5 {
		t.Fatalf("duration: %.2f", d)
	}
}
