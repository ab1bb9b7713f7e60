package vad

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alnah/go-transcript/internal/ffmpeg"
	"github.com/alnah/go-transcript/internal/pcmwav"
)

// silenceStartRe and silenceEndRe match FFmpeg's silencedetect filter log
// lines:
//
//	[silencedetect @ 0x...] silence_start: 42.123
//	[silencedetect @ 0x...] silence_end: 43.456 | silence_duration: 1.333
var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([\d.]+)`)
)

// FFmpegOracle detects silence midpoints by running FFmpeg's silencedetect
// filter over a re-encoded copy of the PCM buffer. It satisfies Oracle and is
// the preferred boundary source when FFmpeg is available; RMSOracle is the
// in-process fallback spec.md §4.1 names for when it is not.
type FFmpegOracle struct {
	resolver   *ffmpeg.Resolver
	NoiseDB    float64
	MinSilence float64
}

// NewFFmpegOracle constructs an FFmpegOracle with spec-reasonable defaults
// (-30dB noise floor, 0.5s minimum silence).
func NewFFmpegOracle(resolver *ffmpeg.Resolver) *FFmpegOracle {
	return &FFmpegOracle{resolver: resolver, NoiseDB: -30, MinSilence: 0.5}
}

// DetectBoundaries writes buf to a temp WAV and runs silencedetect over it,
// returning each detected silence span's midpoint in seconds. On any FFmpeg
// failure it returns nil so the caller falls back to RMSOracle.
func (o *FFmpegOracle) DetectBoundaries(buf pcmwav.Buffer) []float64 {
	ctx := context.Background()
	path, err := o.resolver.Resolve(ctx)
	if err != nil {
		return nil
	}
	wavBytes, err := pcmwav.EncodeWAV(buf.Samples, buf.SampleRate)
	if err != nil {
		return nil
	}
	tmp, err := writeTempWAV(wavBytes)
	if err != nil {
		return nil
	}
	defer removeTemp(tmp)

	args := []string{
		"-i", tmp,
		"-af", fmt.Sprintf("silencedetect=noise=%gdB:d=%.2f", o.NoiseDB, o.MinSilence),
		"-f", "null", "-",
	}
	out, runErr := ffmpeg.RunOutput(ctx, path, args)
	if runErr != nil && len(out) == 0 {
		return nil
	}
	return midpoints(parseSilenceSpans(out))
}

type silenceSpan struct{ start, end float64 }

func parseSilenceSpans(output string) []silenceSpan {
	var spans []silenceSpan
	var start float64
	hasStart := false
	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start, hasStart = v, true
			}
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && hasStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				spans = append(spans, silenceSpan{start: start, end: v})
				hasStart = false
			}
		}
	}
	return spans
}

func midpoints(spans []silenceSpan) []float64 {
	if len(spans) == 0 {
		return nil
	}
	out := make([]float64, len(spans))
	for i, s := range spans {
		out[i] = (s.start + s.end) / 2
	}
	return out
}
