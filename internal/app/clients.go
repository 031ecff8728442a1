package app

import (
	"context"
	"fmt"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/costs"
	"github.com/BXLSTNRD/FrePathe/internal/media"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type Clients struct {
	FAL      clients.FALClient
	LLM      clients.LLMClient
	Muxer    media.Muxer
	Costs    costs.CostTracker
	Download media.Downloader
	Upload   media.Uploader
}

// wireClients builds every external-facing client. Missing generation
// credentials fail here, at startup, never at call time.
func wireClients(log *logger.Logger, cfg Config, pm paths.PathManager) (Clients, error) {
	fal, err := clients.NewFALClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init fal client: %w", err)
	}
	llm, err := clients.NewLLMClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}

	muxer := media.NewFFmpegMuxer(log)
	if err := muxer.Probe(context.Background()); err != nil {
		log.Warn("ffmpeg not available, export and local audio probes disabled", "error", err)
	}

	tracker, err := costs.NewCostTracker(log, fal, cfg.CostDBPath)
	if err != nil {
		return Clients{}, fmt.Errorf("init cost tracker: %w", err)
	}

	return Clients{
		FAL:      fal,
		LLM:      llm,
		Muxer:    muxer,
		Costs:    tracker,
		Download: media.NewDownloader(log, pm),
		Upload:   media.NewUploader(log, pm, fal),
	}, nil
}
