package frame_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viddup/viddup/internal/frame"
)

type fakeFrame struct{ channels []float64 }

func (f fakeFrame) Channels() []float64 { return f.channels }

type fakeSource struct {
	fps, duration float64
	frames        []frame.Frame
	failAt        int // -1 means never
	failErr       error
	i             int
}

func (s *fakeSource) FPS() float64      { return s.fps }
func (s *fakeSource) Duration() float64 { return s.duration }

func (s *fakeSource) Next(ctx context.Context) (frame.Frame, error) {
	if s.failAt >= 0 && s.i == s.failAt {
		return nil, s.failErr
	}
	if s.i >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.i]
	s.i++
	return f, nil
}

func TestSummarizeMeansEachFrame(t *testing.T) {
	src := &fakeSource{
		fps: 25, duration: 2, failAt: -1,
		frames: []frame.Frame{
			fakeFrame{[]float64{0, 10}},   // mean 5
			fakeFrame{[]float64{2, 2, 2}}, // mean 2
		},
	}

	seq, err := frame.Summarize(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, []float64{5, 2}, seq.Brightness)
	require.Equal(t, 25.0, seq.FPS)
	require.Equal(t, 2.0, seq.Duration)
}

func TestSummarizeTruncatesOnRecoverableError(t *testing.T) {
	src := &fakeSource{
		fps: 25, duration: 2, failAt: 1,
		failErr: frame.ErrDecodeTruncated,
		frames: []frame.Frame{
			fakeFrame{[]float64{4}},
		},
	}

	seq, err := frame.Summarize(context.Background(), src)
	require.ErrorIs(t, err, frame.ErrDecodeTruncated)
	require.Equal(t, []float64{4}, seq.Brightness)
}

func TestSummarizeKeepsPrefixOnUnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		fps: 25, duration: 2, failAt: 1,
		failErr: boom,
		frames: []frame.Frame{
			fakeFrame{[]float64{4}},
		},
	}

	seq, err := frame.Summarize(context.Background(), src)
	require.ErrorIs(t, err, boom)
	require.Equal(t, []float64{4}, seq.Brightness)
}

func TestSummarizeRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{fps: 25, duration: 2, failAt: -1}
	_, err := frame.Summarize(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
}
