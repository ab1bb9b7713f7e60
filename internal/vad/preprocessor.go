package vad

import (
	"context"

	"github.com/alnah/go-transcript/internal/pcmwav"
)

// FallbackMode reports which boundary source a Preprocessor is actually
// using, so the controller can choose the VAD-based planner path vs. the
// RMS-fallback path (spec.md §4.5 "Per request ... Initialize audio pipeline
// (chooses planner variant: VAD-based vs. fallback WebAudio-based by
// availability)").
type FallbackMode string

const (
	// ModeServerVAD means a real VAD collaborator is initialized and active.
	ModeServerVAD FallbackMode = "server_vad"
	// ModeLocal means no VAD is available; RMSOracle boundary detection is
	// used instead.
	ModeLocal FallbackMode = "local"
)

// Preprocessor is the VAD preprocessor external collaborator (spec.md §6):
// it optionally trims/denoises a file ahead of decode, reporting whether it
// changed anything.
type Preprocessor interface {
	Initialize(ctx context.Context) error
	ProcessFile(ctx context.Context, path string, startTime, endTime *float64) (pcmwav.Buffer, bool, error)
	GetFallbackMode() FallbackMode
	Cleanup() error
}

// NoopPreprocessor never changes the audio and always reports the local
// fallback mode; it exists so a caller lacking any real VAD collaborator
// always has a valid Preprocessor to inject (spec.md §9 "dependency
// inversion ... constructor-injected capabilities").
type NoopPreprocessor struct{}

func (NoopPreprocessor) Initialize(ctx context.Context) error { return nil }

func (NoopPreprocessor) ProcessFile(ctx context.Context, path string, startTime, endTime *float64) (pcmwav.Buffer, bool, error) {
	return pcmwav.Buffer{}, false, nil
}

func (NoopPreprocessor) GetFallbackMode() FallbackMode { return ModeLocal }

func (NoopPreprocessor) Cleanup() error { return nil }

var _ Preprocessor = NoopPreprocessor{}
