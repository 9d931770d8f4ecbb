// Package decode turns a video file into a frame.Source by shelling out
// to ffmpeg/ffprobe, the same way an operator would from the command
// line. The rest of the pipeline only sees the frame.Source interface.
package decode

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/viddup/viddup/internal/frame"
)

// FFmpegDecoder decodes files via the ffmpeg/ffprobe binaries on PATH.
// ffmpeg downscales decoded frames to a small fixed grid before piping
// them out; the summarizer only needs a mean over pixel channels, so
// shipping full-resolution frames would waste cycles without changing the
// result shape.
type FFmpegDecoder struct {
	// Width and Height set the downscale grid. Zero means 32x18.
	Width, Height int
}

// Name identifies the ffmpeg-backed decoder.
const Name = "ffmpeg"

func (d FFmpegDecoder) grid() (int, int) {
	w, h := d.Width, d.Height
	if w <= 0 {
		w = 32
	}
	if h <= 0 {
		h = 18
	}
	return w, h
}

// Open probes path for its fps/duration via ffprobe, then starts an
// ffmpeg process streaming raw 8-bit grayscale frames at the configured
// grid size. The returned Source must be drained (via frame.Summarize or
// similar) to let the ffmpeg process exit cleanly.
func (d FFmpegDecoder) Open(ctx context.Context, path string) (frame.Source, error) {
	fps, duration, err := probe(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "decode: probe %s", path)
	}

	width, height := d.grid()
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-loglevel", "error",
		"-i", path,
		"-vf", "scale="+strconv.Itoa(width)+":"+strconv.Itoa(height),
		"-pix_fmt", "gray",
		"-f", "rawvideo",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "decode: stdout pipe for %s", path)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "decode: start ffmpeg for %s", path)
	}

	return &ffmpegSource{
		fps:       fps,
		duration:  duration,
		reader:    bufio.NewReaderSize(stdout, 1<<20),
		cmd:       cmd,
		frameSize: width * height,
	}, nil
}

// ffmpegSource is a frame.Source backed by a running ffmpeg process's raw
// grayscale stdout stream.
type ffmpegSource struct {
	fps, duration float64
	reader        *bufio.Reader
	cmd           *exec.Cmd
	frameSize     int
	buf           []byte
	waited        bool
}

func (s *ffmpegSource) FPS() float64      { return s.fps }
func (s *ffmpegSource) Duration() float64 { return s.duration }

func (s *ffmpegSource) Next(ctx context.Context) (frame.Frame, error) {
	if s.buf == nil {
		s.buf = make([]byte, s.frameSize)
	}
	_, err := io.ReadFull(s.reader, s.buf)
	if err != nil {
		s.wait()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrap(frame.ErrDecodeTruncated, err.Error())
	}

	channels := make([]float64, len(s.buf))
	for i, b := range s.buf {
		channels[i] = float64(b)
	}
	return grayFrame{channels: channels}, nil
}

// wait reaps the ffmpeg process once, so Next can be called repeatedly
// past EOF without leaking zombie processes.
func (s *ffmpegSource) wait() {
	if s.waited {
		return
	}
	s.waited = true
	_ = s.cmd.Wait()
}

type grayFrame struct{ channels []float64 }

func (f grayFrame) Channels() []float64 { return f.channels }

// probeResult mirrors the subset of `ffprobe -of json` output this
// package reads.
type probeResult struct {
	Streams []struct {
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe reports path's frame rate and duration via ffprobe, without
// starting a decode. It is exported for the fix-metadata maintenance
// verb, which re-probes files whose stored metadata looks wrong without
// re-ingesting them.
func Probe(ctx context.Context, path string) (fps, duration float64, err error) {
	return probe(ctx, path)
}

func probe(ctx context.Context, path string) (fps, duration float64, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode: ffprobe %s", path)
	}

	var parsed probeResult
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, 0, errors.Wrapf(err, "decode: parse ffprobe output for %s", path)
	}
	if len(parsed.Streams) == 0 {
		return 0, 0, errors.Newf("decode: no video stream found in %s", path)
	}

	fps, err = parseRational(parsed.Streams[0].RFrameRate)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode: parse frame rate for %s", path)
	}
	duration, err = strconv.ParseFloat(parsed.Streams[0].Duration, 64)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode: parse duration for %s", path)
	}
	return fps, duration, nil
}

// parseRational parses ffprobe's "num/den" frame rate notation.
func parseRational(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return strconv.ParseFloat(s, 64)
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	if den == 0 {
		return 0, errors.New("decode: zero denominator in frame rate")
	}
	return num / den, nil
}
