package audio

import "math"

// BPM detection bounds; values outside are treated as octave errors and
// folded back into range.
const (
	minBPM = 40
	maxBPM = 240
)

// EstimateBPM guesses the tempo of mono PCM audio. It builds an onset
// envelope from positive spectral-energy flux over short frames, then picks
// the autocorrelation lag with the strongest periodicity inside the valid
// tempo range. Returns 0 when no stable tempo emerges.
func EstimateBPM(samples []float64, sampleRate int) int {
	const (
		frameSize = 1024
		hopSize   = 512
	)
	if sampleRate <= 0 || len(samples) < frameSize*8 {
		return 0
	}

	// Frame energies.
	numFrames := (len(samples) - frameSize) / hopSize
	if numFrames < 64 {
		return 0
	}
	energies := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		sum := 0.0
		for i := start; i < start+frameSize; i++ {
			sum += samples[i] * samples[i]
		}
		energies[f] = sum
	}

	// Onset envelope: positive energy flux, mean-removed.
	flux := make([]float64, numFrames)
	mean := 0.0
	for f := 1; f < numFrames; f++ {
		d := energies[f] - energies[f-1]
		if d > 0 {
			flux[f] = d
		}
		mean += flux[f]
	}
	mean /= float64(numFrames)
	for f := range flux {
		flux[f] -= mean
	}

	frameRate := float64(sampleRate) / hopSize
	minLag := int(frameRate * 60.0 / maxBPM)
	maxLag := int(frameRate * 60.0 / minBPM)
	if maxLag >= numFrames/2 {
		maxLag = numFrames/2 - 1
	}
	if minLag < 1 || maxLag <= minLag {
		return 0
	}

	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		score := 0.0
		for f := 0; f+lag < numFrames; f++ {
			score += flux[f] * flux[f+lag]
		}
		// Mild bias toward shorter lags so half-tempo harmonics don't win.
		score /= math.Sqrt(float64(lag))
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag == 0 || bestScore <= 0 {
		return 0
	}

	bpm := 60.0 * frameRate / float64(bestLag)
	for bpm < minBPM {
		bpm *= 2
	}
	for bpm > maxBPM {
		bpm /= 2
	}
	return int(math.Round(bpm))
}
