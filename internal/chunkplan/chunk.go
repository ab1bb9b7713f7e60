// Package chunkplan turns a decoded audio buffer and a model's chunking
// config into a ChunkStrategy and the actual AudioChunk sequence (spec.md
// §4.1). It mirrors the structural shape of the teacher's audio.Chunker —
// functional options, an injectable WarnFunc, a fallback path — generalized
// from fixed-duration ffmpeg extraction to VAD-boundary-snapped in-memory
// slicing.
package chunkplan

import (
	"fmt"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/pcmwav"
	"github.com/alnah/go-transcript/internal/vad"
)

// Chunk is one AudioChunk (spec.md §3): a WAV-encoded slice with its place in
// the timeline.
type Chunk struct {
	ID              int
	WAV             []byte
	StartTime       float64
	EndTime         float64
	HasOverlap      bool
	OverlapDuration float64
}

func (c Chunk) Duration() float64 { return c.EndTime - c.StartTime }

// Reason names why chunking was required (spec.md §3 "ChunkStrategy").
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonDuration Reason = "duration"
	ReasonFileSize Reason = "file_size"
	ReasonBoth     Reason = "both"
)

// Strategy is the planner's decision, independent of the actual chunk slices.
type Strategy struct {
	NeedsChunking   bool
	TotalChunks     int
	ChunkDuration   float64
	OverlapDuration float64
	TotalDuration   float64
	Reason          Reason
}

// WarnFunc receives non-fatal planner diagnostics, mirroring the teacher's
// audio.WarnFunc injection point.
type WarnFunc func(format string, args ...any)

// Planner produces a Strategy and the realized Chunk sequence for one
// ProcessedAudio buffer under one model's config.
type Planner struct {
	oracle  vad.Oracle
	warn    WarnFunc
	snapWin float64 // seconds; default 5
	snapHop float64 // seconds; default 0.1 (RMS fallback stride)
}

// Option configures a Planner.
type Option func(*Planner)

// WithOracle sets the boundary oracle consulted first, before the RMS
// fallback.
func WithOracle(o vad.Oracle) Option {
	return func(p *Planner) { p.oracle = o }
}

// WithWarnFunc sets the diagnostic sink.
func WithWarnFunc(fn WarnFunc) Option {
	return func(p *Planner) { p.warn = fn }
}

// NewPlanner constructs a Planner with spec-mandated defaults: ±5s snap
// window, 100ms RMS fallback stride.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		oracle:  vad.NewRMSOracle(),
		warn:    func(string, ...any) {},
		snapWin: 5,
		snapHop: 0.1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DecideStrategy implements the ordered decision spec.md §4.1 names.
func DecideStrategy(totalDuration, estimatedSizeMB float64, cfg model.Config) Strategy {
	needsDuration := totalDuration > cfg.ChunkDurationSeconds
	needsSize := estimatedSizeMB > 0.9*cfg.MaxFileSizeMB

	if !needsDuration && !needsSize {
		return Strategy{NeedsChunking: false, TotalDuration: totalDuration, Reason: ReasonNone}
	}

	reason := ReasonDuration
	switch {
	case needsDuration && needsSize:
		reason = ReasonBoth
	case needsSize:
		reason = ReasonFileSize
	}

	chunkDuration := optimalChunkDuration(totalDuration, estimatedSizeMB, cfg)
	overlap := cfg.VADChunking.OverlapDurationSeconds
	totalChunks := int(totalDuration/(chunkDuration-overlap)) + 1
	if totalChunks < 1 {
		totalChunks = 1
	}

	return Strategy{
		NeedsChunking:   true,
		TotalChunks:     totalChunks,
		ChunkDuration:   chunkDuration,
		OverlapDuration: overlap,
		TotalDuration:   totalDuration,
		Reason:          reason,
	}
}

// optimalChunkDuration implements spec.md §4.1 "Optimal chunk duration":
// start from min(maxDurationSeconds, totalDuration); scale down if the
// estimated size would exceed the per-model ceiling; floor at 60s; round to
// the nearest 10s. A model whose configured ChunkDurationSeconds already
// fits both limits is used as-is (its preferred duration).
func optimalChunkDuration(totalDuration, estimatedSizeMB float64, cfg model.Config) float64 {
	if cfg.ChunkDurationSeconds <= cfg.MaxDurationSeconds &&
		withinSizeBudget(cfg.ChunkDurationSeconds, totalDuration, estimatedSizeMB, cfg.MaxFileSizeMB) {
		return cfg.ChunkDurationSeconds
	}

	d := min(cfg.MaxDurationSeconds, totalDuration)
	if estimatedSizeMB > 0.9*cfg.MaxFileSizeMB && estimatedSizeMB > 0 {
		d *= (0.9 * cfg.MaxFileSizeMB) / estimatedSizeMB
	}
	if d < 60 {
		d = 60
	}
	return roundToNearest(d, 10)
}

func withinSizeBudget(chunkDuration, totalDuration, estimatedSizeMB, maxSizeMB float64) bool {
	if totalDuration <= 0 || estimatedSizeMB <= 0 {
		return true
	}
	bytesPerSecond := estimatedSizeMB / totalDuration
	return chunkDuration*bytesPerSecond <= 0.9*maxSizeMB
}

func roundToNearest(v, step float64) float64 {
	return step * float64(int(v/step+0.5))
}

// Plan realizes a Strategy's chunks from the decoded buffer: snapping cut
// positions to silence boundaries, slicing with overlap, dropping undersized
// tail slices, and re-encoding each slice as canonical WAV (spec.md §4.1
// "Chunk construction").
func (p *Planner) Plan(buf pcmwav.Buffer, strat Strategy, cfg model.Config) ([]Chunk, error) {
	if !strat.NeedsChunking {
		wav, err := pcmwav.EncodeWAV(buf.Samples, buf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("chunkplan: encode single chunk: %w", err)
		}
		return []Chunk{{ID: 0, WAV: wav, StartTime: 0, EndTime: buf.Duration()}}, nil
	}

	targets := p.targetPositions(strat)
	oracleBoundaries := p.oracle.DetectBoundaries(buf)
	rmsOracle := vad.NewRMSOracle()
	rmsBoundaries := rmsOracle.DetectBoundaries(buf)

	snapped := make([]float64, len(targets))
	snapped[0] = 0
	snapped[len(targets)-1] = buf.Duration()
	for i := 1; i < len(targets)-1; i++ {
		if b, ok := vad.NearestWithinWindow(oracleBoundaries, targets[i], p.snapWin); ok {
			snapped[i] = b
			continue
		}
		if b, ok := vad.NearestWithinWindow(rmsBoundaries, targets[i], p.snapWin); ok {
			snapped[i] = b
			continue
		}
		p.warn("chunkplan: no silence boundary found near %.2fs, using target position", targets[i])
		snapped[i] = targets[i]
	}

	minChunkSize := cfg.VADChunking.MinChunkSize
	if minChunkSize <= 0 {
		minChunkSize = 0.1
	}

	var chunks []Chunk
	id := 0
	for i := 0; i < len(snapped)-1; i++ {
		start := snapped[i]
		end := snapped[i+1] + strat.OverlapDuration
		if i == len(snapped)-2 {
			end = buf.Duration()
		}
		if end > buf.Duration() {
			end = buf.Duration()
		}
		if end-start < minChunkSize {
			continue
		}
		samples := buf.Slice(start, end)
		wav, err := pcmwav.EncodeWAV(samples, buf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("chunkplan: encode chunk %d: %w", id, err)
		}
		chunks = append(chunks, Chunk{
			ID:              id,
			WAV:             wav,
			StartTime:       start,
			EndTime:         end,
			HasOverlap:      strat.OverlapDuration > 0 && i > 0,
			OverlapDuration: strat.OverlapDuration,
		})
		id++
	}

	if len(chunks) == 0 {
		wav, err := pcmwav.EncodeWAV(buf.Samples, buf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("chunkplan: encode fallback single chunk: %w", err)
		}
		return []Chunk{{ID: 0, WAV: wav, StartTime: 0, EndTime: buf.Duration()}}, nil
	}
	return chunks, nil
}

// targetPositions computes the idealized (pre-snap) cut boundaries: 0,
// stepDuration, 2*stepDuration, ..., totalDuration.
func (p *Planner) targetPositions(strat Strategy) []float64 {
	step := strat.ChunkDuration - strat.OverlapDuration
	if step <= 0 {
		step = strat.ChunkDuration
	}
	var positions []float64
	for t := 0.0; t < strat.TotalDuration; t += step {
		positions = append(positions, t)
	}
	if len(positions) == 0 || positions[len(positions)-1] < strat.TotalDuration {
		positions = append(positions, strat.TotalDuration)
	}
	return positions
}
