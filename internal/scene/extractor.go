// Package scene reduces a dense brightness sequence to a sparse set of
// scene-transition fingerprints: local maxima spaced at least D seconds
// apart, tagged with how long it has been since the previous one.
package scene

import "github.com/viddup/viddup/internal/record"

// DefaultMinSpacingSeconds is the default minimum spacing between
// retained peaks.
const DefaultMinSpacingSeconds = 10.0

// Extract walks brightness (length N, sampled at fps) and returns one
// fingerprint per strict local maximum, where a local maximum is strictly
// greater than every other sample within `order = floor(minSpacingSeconds *
// fps)` frames on either side. Ties are not peaks (a sample equal to a
// neighbor within the window is not "strictly greater").
//
// Boundary samples whose window would run off either end of the sequence
// are still checked against whatever window they do have on both sides;
// edge samples are never skipped outright. Dropping them would silently
// lose peaks near a short file's boundary.
func Extract(brightness []float64, fps float64, minSpacingSeconds float64) []record.Fingerprint {
	n := len(brightness)
	if n == 0 || fps <= 0 {
		return nil
	}

	order := int(minSpacingSeconds * fps)

	var out []record.Fingerprint
	prev := 0

	for i := 0; i < n; i++ {
		if !isPeak(brightness, i, order) {
			continue
		}
		gap := float64(i-prev) / fps
		out = append(out, record.Fingerprint{Frame: int64(i), Value: gap})
		prev = i
	}

	return out
}

func isPeak(b []float64, i, order int) bool {
	lo := i - order
	if lo < 0 {
		lo = 0
	}
	hi := i + order
	if hi > len(b)-1 {
		hi = len(b) - 1
	}
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if b[j] >= b[i] {
			return false
		}
	}
	return true
}
