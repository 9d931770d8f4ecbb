// Package frame reduces a decoded-frame stream down to one brightness
// scalar per frame. It is the only package that looks at pixels; everything
// downstream operates on the brightness sequence.
package frame

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
)

// Frame is a single decoded video frame. This package only needs the
// channel values, not a specific pixel format.
type Frame interface {
	// Channels returns every pixel-channel sample in the frame: one value
	// per pixel for luminance-only decoders, or one value per channel
	// per pixel (e.g. R, G, B) for decoders that hand back raw color. The
	// summarizer is intentionally naive about which: it takes the mean
	// over whatever is returned, so two different decoders that decode
	// the same bits agree bit-for-bit on the resulting brightness value.
	Channels() []float64
}

// ErrDecodeTruncated is the sentinel a Source returns from Next when the
// underlying decoder cannot read the next frame but earlier frames decoded
// fine. This is recoverable: the caller keeps the partial sequence and
// does not reject the file.
var ErrDecodeTruncated = errors.New("frame: decoder could not read next frame")

// Source is the lazy, finite frame stream a decoder hands to the
// summarizer, along with the metadata the decoder already knows about the
// file (fps and duration are declared by the container, not recomputed
// here).
type Source interface {
	FPS() float64
	Duration() float64
	// Next returns the next decoded frame, io.EOF when the stream is
	// exhausted cleanly, ErrDecodeTruncated (wrapped or bare) on a
	// recoverable decode failure, or any other error on a fatal one.
	Next(ctx context.Context) (Frame, error)
}

// Sequence is the dense, ordered brightness sequence produced for one file.
type Sequence struct {
	Brightness []float64
	FPS        float64
	Duration   float64
}

// Summarize drains src, computing the arithmetic mean of every frame's
// channel values.
//
// It always returns the partial sequence collected so far, alongside one
// of three outcomes: a nil error on clean EOF, ErrDecodeTruncated on a
// recoverable decode failure, or the decoder's own error on anything else.
// Both failure cases still keep the prefix; only the log severity the
// caller chooses differs. ctx's own error is returned on cancellation,
// which aborts the whole pass, so the caller discards the partial
// sequence rather than ingesting it.
func Summarize(ctx context.Context, src Source) (Sequence, error) {
	seq := Sequence{FPS: src.FPS(), Duration: src.Duration()}

	for {
		if err := ctx.Err(); err != nil {
			return seq, err
		}

		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return seq, nil
			}
			return seq, err
		}

		seq.Brightness = append(seq.Brightness, mean(f.Channels()))
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
