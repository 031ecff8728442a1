package app

import (
	"github.com/BXLSTNRD/FrePathe/internal/audio"
	"github.com/BXLSTNRD/FrePathe/internal/castmatrix"
	"github.com/BXLSTNRD/FrePathe/internal/debuglog"
	"github.com/BXLSTNRD/FrePathe/internal/export"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
	"github.com/BXLSTNRD/FrePathe/internal/render"
	"github.com/BXLSTNRD/FrePathe/internal/settings"
	"github.com/BXLSTNRD/FrePathe/internal/state"
	"github.com/BXLSTNRD/FrePathe/internal/storyboard"
	"github.com/BXLSTNRD/FrePathe/internal/video"
)

type Services struct {
	Store    state.StateStore
	Audio    audio.AudioAnalyzer
	Planner  storyboard.Planner
	Cast     castmatrix.Service
	Render   render.Orchestrator
	Video    video.Generator
	Export   export.Exporter
	Settings settings.Service
	Debug    debuglog.Recorder
}

func wireServices(log *logger.Logger, cfg Config, pm paths.PathManager, cl Clients) Services {
	store := state.NewStateStore(log, pm)
	debug := debuglog.NewRecorder(log, pm)

	analyzer := audio.NewAudioAnalyzer(log, cl.FAL, cl.Muxer, cl.Costs, debug)
	planner := storyboard.NewPlanner(log, cl.LLM, cl.Costs, debug)
	cast := castmatrix.NewService(log, store, pm, cl.FAL, cl.LLM, cl.Costs, debug, cl.Download)
	orchestrator := render.NewOrchestrator(log, store, pm, cl.FAL, cl.Costs, cl.Download, cl.Upload, cl.Muxer)
	videos := video.NewGenerator(log, store, pm, cl.FAL, cl.Costs, cl.Upload)
	exporter := export.NewExporter(log, store, pm, cl.Muxer, videos, export.NewStatusStore())
	settingsSvc := settings.NewService(log, cfg.SettingsDir, pm)

	return Services{
		Store:    store,
		Audio:    analyzer,
		Planner:  planner,
		Cast:     cast,
		Render:   orchestrator,
		Video:    videos,
		Export:   exporter,
		Settings: settingsSvc,
		Debug:    debug,
	}
}
