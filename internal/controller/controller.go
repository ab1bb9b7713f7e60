// Package controller orchestrates one transcription request end to end
// (spec.md §4.5): load audio, run the VAD preprocessor, plan chunks,
// dispatch them through the model's strategy, merge results, run the
// cleaning pipeline, and apply an optional dictionary-correction step.
package controller

import (
	"context"
	"fmt"

	"github.com/alnah/go-transcript/internal/audioengine"
	"github.com/alnah/go-transcript/internal/chunkplan"
	"github.com/alnah/go-transcript/internal/clean"
	"github.com/alnah/go-transcript/internal/dispatch"
	"github.com/alnah/go-transcript/internal/merge"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/obs"
	"github.com/alnah/go-transcript/internal/pcmwav"
	"github.com/alnah/go-transcript/internal/remote"
	"github.com/alnah/go-transcript/internal/vad"
)

// Request is one transcription job (spec.md §4.5 "Per request").
type Request struct {
	AudioPath      string
	ModelID        model.ID
	Language       string
	Prompt         string
	Timestamps     bool
	StartTime      *float64
	EndTime        *float64
}

// Result is the controller's final output (spec.md §4.5 "Return
// {text, modelUsed?}").
type Result struct {
	Text      string
	ModelUsed string
	Partial   bool
	Issues    []string
}

// DictionaryCorrector is the pluggable last step (spec.md §4.5 "Apply
// dictionary correction as a separate, pluggable last step"). Out of scope
// to implement for real (dictionary storage is an external collaborator per
// spec.md §1); NoopDictionaryCorrector is the default no-op.
type DictionaryCorrector interface {
	Correct(ctx context.Context, text string, language string) (string, error)
}

// NoopDictionaryCorrector returns text unchanged.
type NoopDictionaryCorrector struct{}

func (NoopDictionaryCorrector) Correct(ctx context.Context, text string, language string) (string, error) {
	return text, nil
}

var _ DictionaryCorrector = NoopDictionaryCorrector{}

// Controller wires every collaborator a request needs. The audio engine,
// VAD, oracle, remote and dictionary fields are interfaces so tests can
// inject fakes without touching real audio/network I/O (spec.md §9
// "constructor-injected capabilities"); Registry is a concrete
// *model.Registry and Progress a channel.
type Controller struct {
	Registry    *model.Registry
	AudioEngine audioengine.Engine
	VAD         vad.Preprocessor
	Oracle      vad.Oracle // optional; nil means the planner's own default (RMSOracle)
	Remote      remote.Transcriber
	Dictionary  DictionaryCorrector
	Progress    chan<- dispatch.ProgressEvent
}

// Option configures a Controller at construction time.
type Option func(*Controller)

func WithVAD(p vad.Preprocessor) Option { return func(c *Controller) { c.VAD = p } }

// WithOracle overrides the chunk planner's boundary oracle (e.g. a real
// silence-detecting vad.FFmpegOracle) when "VAD-based" planning is
// available, instead of the planner's RMS fallback (spec.md §4.5 "chooses
// planner variant: VAD-based vs. fallback WebAudio-based by availability").
func WithOracle(o vad.Oracle) Option { return func(c *Controller) { c.Oracle = o } }

func WithDictionary(d DictionaryCorrector) Option {
	return func(c *Controller) { c.Dictionary = d }
}

func WithProgress(ch chan<- dispatch.ProgressEvent) Option {
	return func(c *Controller) { c.Progress = ch }
}

// New constructs a Controller. audioEngine and remoteClient are required
// collaborators; vad defaults to vad.NoopPreprocessor and dictionary to
// NoopDictionaryCorrector when not overridden by an Option.
func New(audioEngine audioengine.Engine, remoteClient remote.Transcriber, opts ...Option) *Controller {
	c := &Controller{
		AudioEngine: audioEngine,
		VAD:         vad.NoopPreprocessor{},
		Remote:      remoteClient,
		Dictionary:  NoopDictionaryCorrector{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one request end to end (spec.md §4.5).
func (c *Controller) Run(ctx context.Context, req Request) (Result, error) {
	cfg, strategy, err := c.lookupModel(req.ModelID)
	if err != nil {
		return Result{}, err
	}

	buf, _, err := c.loadAudio(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("loading audio: %w", err)
	}

	chunks, _, err := c.planChunks(buf, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("planning chunks: %w", err)
	}
	obs.ChunksPlanned.WithLabelValues(string(req.ModelID)).Add(float64(len(chunks)))

	dispatchStrategy := dispatch.NewStrategy(req.ModelID, c.Remote)
	outcome := dispatchStrategy.Dispatch(ctx, chunks, cfg, remote.Options{Language: req.Language, Prompt: req.Prompt}, c.Progress)
	if outcome.Err != nil && len(outcome.Results) == 0 {
		return Result{}, fmt.Errorf("dispatch: %w", outcome.Err)
	}
	recordDispatchOutcome(req.ModelID, outcome)
	if ctx.Err() == nil {
		var firstErr error
		succeeded := false
		for _, r := range outcome.Results {
			if r.Success {
				succeeded = true
				break
			}
			if firstErr == nil {
				firstErr = r.Err
			}
		}
		if !succeeded && firstErr != nil {
			return Result{}, fmt.Errorf("dispatch: no chunk succeeded: %w", firstErr)
		}
	}

	mergeResult := merge.Merge(outcome.Results, cfg.Merging, outcome.Partial, req.Timestamps || req.ModelID.IsTimestamped())

	pipeline := clean.NewPipelineForModel(strategy, req.Timestamps || req.ModelID.IsTimestamped())
	pipelineResult := pipeline.Run(mergeResult.Text, clean.Context{
		Language:      req.Language,
		AudioDuration: buf.Duration(),
	})
	obs.CleaningReductionRatio.WithLabelValues(string(req.ModelID)).Observe(pipelineResult.Metadata.ReductionRatio)

	finalText := pipelineResult.FinalText
	if clean.ShouldFallback(pipelineResult, strategy.PipelineFallback, buf.Duration()) {
		finalText = mergeResult.Text
	}

	finalText, err = c.Dictionary.Correct(ctx, finalText, req.Language)
	if err != nil {
		return Result{}, fmt.Errorf("dictionary correction: %w", err)
	}

	var issues []string
	for _, stage := range pipelineResult.Stages {
		issues = append(issues, stage.Issues...)
	}

	return Result{
		Text:      finalText,
		ModelUsed: string(req.ModelID),
		Partial:   mergeResult.Partial,
		Issues:    issues,
	}, nil
}

// recordDispatchOutcome tallies per-chunk success/failure counts for
// obs.ChunksDispatched.
func recordDispatchOutcome(id model.ID, outcome dispatch.Outcome) {
	for _, r := range outcome.Results {
		outcomeLabel := "success"
		if !r.Success {
			outcomeLabel = "failure"
		}
		obs.ChunksDispatched.WithLabelValues(string(id), outcomeLabel).Inc()
	}
}

// lookupModel resolves a model's Config/CleaningStrategy, preferring an
// injected Registry (e.g. one carrying CLI-supplied Config.Override
// concurrency tweaks) over the process-wide default.
func (c *Controller) lookupModel(id model.ID) (model.Config, model.CleaningStrategy, error) {
	if c.Registry != nil {
		cfg, err := c.Registry.Config(id)
		if err != nil {
			return model.Config{}, model.CleaningStrategy{}, err
		}
		strat, err := c.Registry.Strategy(id)
		if err != nil {
			return model.Config{}, model.CleaningStrategy{}, err
		}
		return cfg, strat, nil
	}
	cfg, err := model.Get(id)
	if err != nil {
		return model.Config{}, model.CleaningStrategy{}, err
	}
	strat, err := model.GetStrategy(id)
	if err != nil {
		return model.Config{}, model.CleaningStrategy{}, err
	}
	return cfg, strat, nil
}

// loadAudio decodes the request's source file, running it through the VAD
// preprocessor first; when the preprocessor changed the audio, its output
// buffer is used directly and the request's start/end range is not applied
// again (spec.md §4.5 "if VAD succeeded and changed the audio, use the
// preprocessed buffer and suppress subsequent time-range application");
// otherwise the range is cut from the decoded, converted buffer.
func (c *Controller) loadAudio(ctx context.Context, req Request) (pcmwav.Buffer, bool, error) {
	if err := c.VAD.Initialize(ctx); err != nil {
		return pcmwav.Buffer{}, false, fmt.Errorf("initializing VAD: %w", err)
	}
	defer c.VAD.Cleanup()

	vadBuf, changed, err := c.VAD.ProcessFile(ctx, req.AudioPath, req.StartTime, req.EndTime)
	if err != nil {
		return pcmwav.Buffer{}, false, fmt.Errorf("VAD preprocessing: %w", err)
	}
	if changed {
		return vadBuf, true, nil
	}

	in := audioengine.AudioInput{Path: req.AudioPath}
	validation, err := c.AudioEngine.Validate(ctx, in)
	if err != nil {
		return pcmwav.Buffer{}, false, err
	}
	if !validation.OK {
		return pcmwav.Buffer{}, false, fmt.Errorf("invalid audio input: %s", validation.Reason)
	}

	decoded, err := c.AudioEngine.Decode(ctx, in)
	if err != nil {
		return pcmwav.Buffer{}, false, err
	}
	defer c.AudioEngine.Cleanup()

	target := audioengine.DefaultTargetFormat()
	converted, err := c.AudioEngine.ConvertToTargetFormat(ctx, decoded, target)
	if err != nil {
		return pcmwav.Buffer{}, false, err
	}
	if req.StartTime != nil || req.EndTime != nil {
		start, end := 0.0, converted.Duration()
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		converted = pcmwav.Buffer{Samples: converted.Slice(start, end), SampleRate: converted.SampleRate}
	}
	return converted, false, nil
}

// planChunks selects the planner variant by the VAD's reported fallback
// mode (spec.md §4.5 "chooses planner variant: VAD-based vs. fallback
// WebAudio-based by availability") and produces the chunk sequence.
func (c *Controller) planChunks(buf pcmwav.Buffer, cfg model.Config) ([]chunkplan.Chunk, chunkplan.Strategy, error) {
	estimatedSizeMB := float64(len(buf.Samples)*2) / (1024 * 1024)
	strat := chunkplan.DecideStrategy(buf.Duration(), estimatedSizeMB, cfg)

	var planner *chunkplan.Planner
	if c.Oracle != nil && c.VAD.GetFallbackMode() == vad.ModeServerVAD {
		planner = chunkplan.NewPlanner(chunkplan.WithOracle(c.Oracle))
	} else {
		planner = chunkplan.NewPlanner()
	}

	chunks, err := planner.Plan(buf, strat, cfg)
	return chunks, strat, err
}
