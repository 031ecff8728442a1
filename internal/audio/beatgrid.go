package audio

import (
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

const beatsPerBar = 4

// BuildBeatGrid lays a 4/4 grid over the track from a single BPM value.
// Times are rounded to the millisecond.
func BuildBeatGrid(bpm int, durationSec float64) *domain.BeatGrid {
	if bpm <= 0 || durationSec <= 0 {
		return &domain.BeatGrid{Beats: []domain.BeatPoint{}, Bars: []domain.BeatPoint{}, Downbeats: []float64{}}
	}
	beatSec := 60.0 / float64(bpm)
	grid := &domain.BeatGrid{
		BPM:       bpm,
		BeatSec:   utils.Round3(beatSec),
		BarSec:    utils.Round3(beatSec * beatsPerBar),
		Beats:     []domain.BeatPoint{},
		Bars:      []domain.BeatPoint{},
		Downbeats: []float64{},
	}
	t := 0.0
	for i := 0; t < durationSec; i++ {
		rounded := utils.Round3(t)
		grid.Beats = append(grid.Beats, domain.BeatPoint{Index: i, Time: rounded})
		if i%beatsPerBar == 0 {
			grid.Bars = append(grid.Bars, domain.BeatPoint{Index: i / beatsPerBar, Time: rounded})
			grid.Downbeats = append(grid.Downbeats, rounded)
		}
		t += beatSec
	}
	grid.TotalBeats = len(grid.Beats)
	grid.TotalBars = len(grid.Bars)
	return grid
}

// SnapToGrid moves t onto the nearest grid time if one lies within tolerance.
func SnapToGrid(t float64, grid []float64, tolerance float64) float64 {
	if len(grid) == 0 {
		return t
	}
	nearest := grid[0]
	for _, g := range grid[1:] {
		if abs(g-t) < abs(nearest-t) {
			nearest = g
		}
	}
	if abs(nearest-t) <= tolerance {
		return nearest
	}
	return t
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
