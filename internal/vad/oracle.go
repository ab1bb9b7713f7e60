// Package vad provides the silence-boundary oracle the chunk planner
// consumes: a function returning candidate cut points (silence midpoints, in
// seconds) for a PCM buffer. A VAD-backed implementation is an external
// collaborator (spec.md §6); this package supplies the pure-Go RMS-energy
// fallback spec.md §4.1 names, plus the oracle interface both sides share.
package vad

import (
	"math"

	"github.com/alnah/go-transcript/internal/pcmwav"
)

// Oracle detects candidate silence midpoints, in seconds, within a PCM
// buffer. A real VAD implementation satisfies this externally; RMSOracle is
// the in-process fallback used when no VAD boundaries are available.
type Oracle interface {
	DetectBoundaries(buf pcmwav.Buffer) []float64
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc func(buf pcmwav.Buffer) []float64

func (f OracleFunc) DetectBoundaries(buf pcmwav.Buffer) []float64 { return f(buf) }

// RMSOracle finds local RMS-energy minima as silence-candidate midpoints. It
// is deliberately simple and deterministic: a real VAD model hears phonemes;
// this hears only "quiet vs. not quiet" over a sliding window, which is
// sufficient as the snap-to-silence fallback spec.md §4.1 describes ("the
// planner falls back to a local RMS-energy minimum search").
type RMSOracle struct {
	// WindowSeconds is the RMS analysis window width. Default 0.05s (50ms).
	WindowSeconds float64
	// StrideSeconds is the hop between analysis windows. Default 0.02s (20ms).
	StrideSeconds float64
}

// NewRMSOracle constructs an RMSOracle with spec-reasonable defaults.
func NewRMSOracle() *RMSOracle {
	return &RMSOracle{WindowSeconds: 0.05, StrideSeconds: 0.02}
}

// DetectBoundaries returns candidate cut positions at local RMS minima
// across the whole buffer. The chunk planner treats these as one more
// silence-candidate source alongside any real VAD oracle's output; it is the
// planner, not this oracle, that snaps a specific target position to the
// nearest candidate within ±5s (spec.md §4.1).
func (o *RMSOracle) DetectBoundaries(buf pcmwav.Buffer) []float64 {
	if len(buf.Samples) == 0 || buf.SampleRate <= 0 {
		return nil
	}
	window := o.window()
	stride := o.stride()
	windowSamples := max(1, int(window*float64(buf.SampleRate)))
	strideSamples := max(1, int(stride*float64(buf.SampleRate)))

	type point struct {
		t   float64
		rms float64
	}
	var points []point
	for start := 0; start+windowSamples <= len(buf.Samples); start += strideSamples {
		rms := rmsOf(buf.Samples[start : start+windowSamples])
		t := (float64(start) + float64(windowSamples)/2) / float64(buf.SampleRate)
		points = append(points, point{t: t, rms: rms})
	}
	if len(points) < 3 {
		return nil
	}

	var boundaries []float64
	for i := 1; i < len(points)-1; i++ {
		if points[i].rms <= points[i-1].rms && points[i].rms <= points[i+1].rms {
			boundaries = append(boundaries, points[i].t)
		}
	}
	return boundaries
}

func (o *RMSOracle) window() float64 {
	if o.WindowSeconds > 0 {
		return o.WindowSeconds
	}
	return 0.05
}

func (o *RMSOracle) stride() float64 {
	if o.StrideSeconds > 0 {
		return o.StrideSeconds
	}
	return 0.02
}

func rmsOf(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}

// NearestWithinWindow returns the element of candidates closest to target,
// provided it is within ±windowSeconds; the second return value is false if
// no candidate qualifies.
func NearestWithinWindow(candidates []float64, target, windowSeconds float64) (float64, bool) {
	best := 0.0
	bestDist := math.Inf(1)
	found := false
	for _, c := range candidates {
		d := math.Abs(c - target)
		if d <= windowSeconds && d < bestDist {
			best = c
			bestDist = d
			found = true
		}
	}
	return best, found
}
