package utils

import (
	"regexp"
	"strings"
	"time"
)

var (
	unsafeChars    = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	collapseDashes = regexp.MustCompile(`-{2,}`)
)

// SanitizeFilename turns an arbitrary title into something safe for a file
// name, capped at maxLen runes.
func SanitizeFilename(name string, maxLen int) string {
	s := strings.TrimSpace(name)
	s = unsafeChars.ReplaceAllString(s, "-")
	s = collapseDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-._")
	if s == "" {
		s = "untitled"
	}
	if maxLen > 0 {
		r := []rune(s)
		if len(r) > maxLen {
			s = string(r[:maxLen])
		}
	}
	return s
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NowISO is the timestamp format used everywhere in project state.
func NowISO() string {
	return time.Now().Format("2006-01-02T15:04:05")
}

// Round4 rounds to 4 decimal places, the precision the cost ledger uses.
func Round4(x float64) float64 {
	return float64(int64(x*10000+copysignHalf(x))) / 10000
}

func copysignHalf(x float64) float64 {
	if x < 0 {
		return -0.5
	}
	return 0.5
}

// Round3 rounds to 3 decimal places, used for beat grid times.
func Round3(x float64) float64 {
	return float64(int64(x*1000+copysignHalf(x))) / 1000
}
