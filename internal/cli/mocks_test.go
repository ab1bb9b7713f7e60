package cli

import (
	"context"
	"sync"

	"github.com/alnah/go-transcript/internal/audioengine"
	"github.com/alnah/go-transcript/internal/config"
	"github.com/alnah/go-transcript/internal/lang"
	"github.com/alnah/go-transcript/internal/pcmwav"
	"github.com/alnah/go-transcript/internal/remote"
	"github.com/alnah/go-transcript/internal/restructure"
	"github.com/alnah/go-transcript/internal/template"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context) (string, error)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func configWithOutputDir(outputDir string) *mockConfigLoader {
	return &mockConfigLoader{
		LoadFunc: func() (config.Config, error) {
			return config.Config{OutputDir: outputDir}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Mock RemoteClientFactory + Transcriber
// ---------------------------------------------------------------------------

type mockRemoteClientFactory struct {
	NewClientFunc func(apiKey string) remote.Transcriber

	mu       sync.Mutex
	apiKeys  []string
}

func (m *mockRemoteClientFactory) NewClient(apiKey string) remote.Transcriber {
	m.mu.Lock()
	m.apiKeys = append(m.apiKeys, apiKey)
	m.mu.Unlock()
	if m.NewClientFunc != nil {
		return m.NewClientFunc(apiKey)
	}
	return &mockTranscriber{}
}

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, wav []byte, chunkID int, startTime, endTime float64, opts remote.Options, modelOpts remote.ModelOptions) (remote.TranscriptionResult, error)
}

func (m *mockTranscriber) Transcribe(ctx context.Context, wav []byte, chunkID int, startTime, endTime float64, opts remote.Options, modelOpts remote.ModelOptions) (remote.TranscriptionResult, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wav, chunkID, startTime, endTime, opts, modelOpts)
	}
	return remote.TranscriptionResult{ChunkID: chunkID, Text: "transcribed text", StartTime: startTime, EndTime: endTime, Success: true}, nil
}

func (m *mockTranscriber) TestConnection(ctx context.Context) bool { return true }

// ---------------------------------------------------------------------------
// Mock RestructurerFactory + MapReducer
// ---------------------------------------------------------------------------

type mockRestructurerFactory struct {
	NewMapReducerFunc func(apiKey string, opts ...restructure.MapReduceOption) restructure.MapReducer

	mu             sync.Mutex
	apiKeys        []string
	mockMapReducer *mockMapReduceRestructurer
}

func (m *mockRestructurerFactory) NewMapReducer(apiKey string, opts ...restructure.MapReduceOption) restructure.MapReducer {
	m.mu.Lock()
	m.apiKeys = append(m.apiKeys, apiKey)
	m.mu.Unlock()
	if m.NewMapReducerFunc != nil {
		return m.NewMapReducerFunc(apiKey, opts...)
	}
	if m.mockMapReducer != nil {
		return m.mockMapReducer
	}
	return &mockMapReduceRestructurer{}
}

type mockMapReduceRestructurer struct {
	RestructureFunc func(ctx context.Context, transcript string, tmpl template.Name, outputLang lang.Language) (string, bool, error)
}

func (m *mockMapReduceRestructurer) Restructure(ctx context.Context, transcript string, tmpl template.Name, outputLang lang.Language) (string, bool, error) {
	if m.RestructureFunc != nil {
		return m.RestructureFunc(ctx, transcript, tmpl, outputLang)
	}
	return "restructured text", false, nil
}

// ---------------------------------------------------------------------------
// Mock AudioEngine
// ---------------------------------------------------------------------------

// mockAudioEngine hands back a short flat buffer already in target format,
// so controller.Run can exercise chunk planning/dispatch/merge/clean without
// a real ffmpeg binary.
type mockAudioEngine struct {
	ValidateFunc func(ctx context.Context, in audioengine.AudioInput) (audioengine.AudioValidationResult, error)
	DecodeFunc   func(ctx context.Context, in audioengine.AudioInput) (audioengine.DecodedBuffer, error)
}

func (m *mockAudioEngine) Validate(ctx context.Context, in audioengine.AudioInput) (audioengine.AudioValidationResult, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, in)
	}
	return audioengine.AudioValidationResult{OK: true}, nil
}

func (m *mockAudioEngine) Decode(ctx context.Context, in audioengine.AudioInput) (audioengine.DecodedBuffer, error) {
	if m.DecodeFunc != nil {
		return m.DecodeFunc(ctx, in)
	}
	return audioengine.DecodedBuffer{
		Buffer:   pcmwav.Buffer{Samples: make([]float64, 16000*5), SampleRate: 16000},
		Channels: 1,
	}, nil
}

func (m *mockAudioEngine) ConvertToTargetFormat(ctx context.Context, buf audioengine.DecodedBuffer, target audioengine.TargetFormat) (pcmwav.Buffer, error) {
	return buf.Buffer, nil
}

func (m *mockAudioEngine) Cleanup() error { return nil }

// ---------------------------------------------------------------------------
// Compile-time interface verification
// ---------------------------------------------------------------------------

var (
	_ FFmpegResolver      = (*mockFFmpegResolver)(nil)
	_ ConfigLoader        = (*mockConfigLoader)(nil)
	_ RemoteClientFactory = (*mockRemoteClientFactory)(nil)
	_ remote.Transcriber  = (*mockTranscriber)(nil)
	_ RestructurerFactory    = (*mockRestructurerFactory)(nil)
	_ restructure.MapReducer = (*mockMapReduceRestructurer)(nil)
	_ audioengine.Engine     = (*mockAudioEngine)(nil)
)
