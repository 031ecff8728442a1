package storyboard

// Targets sizes the storyboard from track length: roughly one sequence per
// 10-20 seconds, six shots per sequence.
func Targets(durationSec float64) (sequenceCount, targetShots int) {
	if durationSec <= 0 {
		durationSec = 180
	}
	switch {
	case durationSec < 60:
		sequenceCount = 3
	case durationSec < 120:
		sequenceCount = 5
	case durationSec < 180:
		sequenceCount = 7
	case durationSec < 240:
		sequenceCount = 9
	default:
		sequenceCount = int(durationSec / 20)
		if sequenceCount > 12 {
			sequenceCount = 12
		}
	}
	return sequenceCount, sequenceCount * 6
}
