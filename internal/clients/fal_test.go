package clients

import (
	"testing"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
)

func TestVideoPayloadPerModel(t *testing.T) {
	base := VideoRequest{
		ImageURL:    "https://cdn.example.com/shot.png",
		Prompt:      "slow dolly in",
		DurationSec: 6,
		Aspect:      domain.AspectHorizontal,
	}

	ltx := base
	ltx.ModelKey = "ltx2_i2v"
	p := videoPayload(ltx)
	if p["num_frames"] != 150 || p["frame_rate"] != 25 {
		t.Fatalf("ltx payload: %v", p)
	}

	kling := base
	kling.ModelKey = "kling_i2v"
	p = videoPayload(kling)
	if p["duration"] != 6 || p["creativity"] != 0.7 {
		t.Fatalf("kling payload: %v", p)
	}

	veo := base
	veo.ModelKey = "veo31_i2v"
	p = videoPayload(veo)
	if p["duration"] != "6s" {
		t.Fatalf("veo payload: %v", p)
	}

	wan := base
	wan.ModelKey = "wan_i2v"
	wan.DurationSec = 4
	p = videoPayload(wan)
	if p["duration"] != "5" || p["resolution"] != "1080p" {
		t.Fatalf("wan payload: %v", p)
	}
	wan.Aspect = domain.AspectVertical
	if p = videoPayload(wan); p["resolution"] != "720p" {
		t.Fatalf("wan vertical payload: %v", p)
	}
}

func TestVideoPayloadDefaultPrompt(t *testing.T) {
	p := videoPayload(VideoRequest{ModelKey: "ltx2_i2v", ImageURL: "x", DurationSec: 5})
	if p["prompt"] != "Natural motion, cinematic quality" {
		t.Fatalf("default prompt: %v", p["prompt"])
	}
}

func TestVeoDurationBuckets(t *testing.T) {
	cases := map[float64]string{4: "4s", 5: "4s", 6: "6s", 7: "6s", 8: "8s"}
	for sec, want := range cases {
		if got := veoDuration(sec); got != want {
			t.Fatalf("veoDuration(%.0f) = %q, want %q", sec, got, want)
		}
	}
}
