package chunkplan

import (
	"math"
	"testing"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/pcmwav"
)

func TestDecideStrategy_SingleChunk(t *testing.T) {
	cfg, err := model.Get(model.Whisper)
	if err != nil {
		t.Fatal(err)
	}
	strat := DecideStrategy(120, 2, cfg)
	if strat.NeedsChunking {
		t.Fatalf("expected no chunking for short/small audio, got %+v", strat)
	}
	if strat.Reason != ReasonNone {
		t.Fatalf("reason must be absent when needsChunking=false, got %q", strat.Reason)
	}
}

func TestDecideStrategy_DurationReason(t *testing.T) {
	cfg, err := model.Get(model.Whisper)
	if err != nil {
		t.Fatal(err)
	}
	strat := DecideStrategy(cfg.ChunkDurationSeconds+1, 1, cfg)
	if !strat.NeedsChunking || strat.Reason != ReasonDuration {
		t.Fatalf("expected duration-reason chunking, got %+v", strat)
	}
}

func TestDecideStrategy_BothReason(t *testing.T) {
	cfg, err := model.Get(model.Whisper)
	if err != nil {
		t.Fatal(err)
	}
	strat := DecideStrategy(cfg.ChunkDurationSeconds+1, cfg.MaxFileSizeMB, cfg)
	if strat.Reason != ReasonBoth {
		t.Fatalf("expected both-reason chunking, got %q", strat.Reason)
	}
}

func TestPlanner_Plan_SingleChunkRoundTrips(t *testing.T) {
	buf := sineBuffer(16000, 3)
	p := NewPlanner()
	cfg, _ := model.Get(model.Whisper)
	strat := Strategy{NeedsChunking: false, TotalDuration: buf.Duration()}
	chunks, err := p.Plan(buf, strat, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 || chunks[0].ID != 0 {
		t.Fatalf("expected exactly one chunk with id 0, got %+v", chunks)
	}
	decoded, err := pcmwav.DecodeWAV(chunks[0].WAV)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(decoded.Duration()-buf.Duration()) > 0.01 {
		t.Fatalf("round-tripped duration mismatch: got %.3f want %.3f", decoded.Duration(), buf.Duration())
	}
}

func TestPlanner_Plan_OrderedAndOverlapping(t *testing.T) {
	buf := sineBuffer(16000, 30)
	cfg, _ := model.Get(model.Whisper)
	strat := Strategy{
		NeedsChunking:   true,
		TotalChunks:     3,
		ChunkDuration:   12,
		OverlapDuration: 2,
		TotalDuration:   buf.Duration(),
		Reason:          ReasonDuration,
	}
	p := NewPlanner()
	chunks, err := p.Plan(buf, strat, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if c.EndTime <= c.StartTime {
			t.Fatalf("chunk %d has endTime <= startTime: %+v", i, c)
		}
		if i > 0 && chunks[i].StartTime > chunks[i-1].EndTime {
			t.Fatalf("chunk %d starts after previous chunk ends: %+v then %+v", i, chunks[i-1], c)
		}
	}
}

func sineBuffer(sampleRate int, seconds float64) pcmwav.Buffer {
	n := int(float64(sampleRate) * seconds)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.1 * math.Sin(float64(i)*0.01)
	}
	return pcmwav.Buffer{Samples: samples, SampleRate: sampleRate}
}
