package cli

import (
	"context"
	"io"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-transcript/internal/audioengine"
	"github.com/alnah/go-transcript/internal/config"
	"github.com/alnah/go-transcript/internal/ffmpeg"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
	"github.com/alnah/go-transcript/internal/restructure"
	"github.com/alnah/go-transcript/internal/vad"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time

	// Factories and collaborators for the transcription pipeline
	FFmpegResolver      FFmpegResolver
	ConfigLoader        ConfigLoader
	ModelRegistry       *model.Registry
	RemoteClientFactory RemoteClientFactory
	AudioEngine         audioengine.Engine
	VADPreprocessor     vad.Preprocessor
	RestructurerFactory RestructurerFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(ctx context.Context) (string, error)
	CheckVersion(ctx context.Context, ffmpegPath string)
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// RemoteClientFactory builds the remote transcription collaborator bound to
// an API key (spec.md §6 "remote speech-to-text client").
type RemoteClientFactory interface {
	NewClient(apiKey string) remote.Transcriber
}

// RestructurerFactory creates restructurers for the optional post-pipeline
// template step (spec.md's transcription pipeline ends at dictionary
// correction; restructuring is a supplemented feature carried from the
// teacher, kept behind this same factory seam).
type RestructurerFactory interface {
	NewMapReducer(apiKey string, opts ...restructure.MapReduceOption) restructure.MapReducer
}

// EnvOption configures an Env.
type EnvOption func(*Env)

func WithStderr(w io.Writer) EnvOption { return func(e *Env) { e.Stderr = w } }

func WithGetenv(fn func(string) string) EnvOption { return func(e *Env) { e.Getenv = fn } }

func WithNow(fn func() time.Time) EnvOption { return func(e *Env) { e.Now = fn } }

func WithFFmpegResolver(r FFmpegResolver) EnvOption { return func(e *Env) { e.FFmpegResolver = r } }

func WithConfigLoader(l ConfigLoader) EnvOption { return func(e *Env) { e.ConfigLoader = l } }

func WithModelRegistry(r *model.Registry) EnvOption { return func(e *Env) { e.ModelRegistry = r } }

func WithRemoteClientFactory(f RemoteClientFactory) EnvOption {
	return func(e *Env) { e.RemoteClientFactory = f }
}

func WithAudioEngine(a audioengine.Engine) EnvOption { return func(e *Env) { e.AudioEngine = a } }

func WithVADPreprocessor(v vad.Preprocessor) EnvOption {
	return func(e *Env) { e.VADPreprocessor = v }
}

func WithRestructurerFactory(f RestructurerFactory) EnvOption {
	return func(e *Env) { e.RestructurerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stderr:              os.Stderr,
		Getenv:              os.Getenv,
		Now:                 time.Now,
		FFmpegResolver:      &defaultFFmpegResolver{},
		ConfigLoader:        &defaultConfigLoader{},
		ModelRegistry:       model.NewRegistry(),
		RemoteClientFactory: &defaultRemoteClientFactory{},
		AudioEngine:         audioengine.NewFFmpegEngine(),
		VADPreprocessor:     vad.NoopPreprocessor{},
		RestructurerFactory: &defaultRestructurerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

// defaultFFmpegResolver implements FFmpegResolver using the ffmpeg package.
type defaultFFmpegResolver struct{}

func (defaultFFmpegResolver) Resolve(ctx context.Context) (string, error) {
	return ffmpeg.Resolve(ctx)
}

func (defaultFFmpegResolver) CheckVersion(ctx context.Context, ffmpegPath string) {
	ffmpeg.CheckVersion(ctx, ffmpegPath)
}

// defaultConfigLoader implements ConfigLoader using the config package.
type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

// defaultRemoteClientFactory implements RemoteClientFactory using OpenAI.
type defaultRemoteClientFactory struct{}

func (defaultRemoteClientFactory) NewClient(apiKey string) remote.Transcriber {
	return remote.NewOpenAIClient(apiKey)
}

// defaultRestructurerFactory implements RestructurerFactory using OpenAI.
type defaultRestructurerFactory struct{}

func (defaultRestructurerFactory) NewMapReducer(apiKey string, opts ...restructure.MapReduceOption) restructure.MapReducer {
	base := restructure.NewOpenAIRestructurer(openai.NewClient(apiKey))
	return restructure.NewMapReduceRestructurer(base, opts...)
}

// Compile-time interface verification.
var (
	_ FFmpegResolver      = (*defaultFFmpegResolver)(nil)
	_ ConfigLoader        = (*defaultConfigLoader)(nil)
	_ RemoteClientFactory = (*defaultRemoteClientFactory)(nil)
	_ RestructurerFactory = (*defaultRestructurerFactory)(nil)
)
