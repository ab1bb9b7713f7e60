package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-transcript/internal/config"
	"github.com/alnah/go-transcript/internal/controller"
	"github.com/alnah/go-transcript/internal/dispatch"
	"github.com/alnah/go-transcript/internal/lang"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/resource"
	"github.com/alnah/go-transcript/internal/template"
)

// supportedFormats lists audio formats accepted by OpenAI's transcription API.
// Source: https://platform.openai.com/docs/guides/speech-to-text
var supportedFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// clampParallel constrains a concurrency override to a sane range; zero or
// negative means "use the model's own default" (no override applied).
func clampParallel(n int) int {
	const maxRecommendedParallel = 10
	if n <= 0 {
		return 0
	}
	if n > maxRecommendedParallel {
		return maxRecommendedParallel
	}
	return n
}

// deriveOutputPath converts an audio file path to a markdown output path.
// Example: "session.ogg" -> "session.md"
func deriveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".md"
}

// parseModelID validates a CLI-supplied model id against the known enum
// (spec.md §6 "Unknown model ids fail with a descriptive error listing
// known ids").
func parseModelID(s string) (model.ID, error) {
	if s == "" {
		return model.Whisper, nil
	}
	for _, id := range model.All() {
		if string(id) == s {
			return id, nil
		}
	}
	known := make([]string, 0, len(model.All()))
	for _, id := range model.All() {
		known = append(known, string(id))
	}
	return "", fmt.Errorf("unknown model %q (known models: %s)", s, strings.Join(known, ", "))
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		output     string
		modelFlag  string
		tmpl       string
		parallel   int
		language   string
		outputLang string
		prompt     string
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Long: `Transcribe an audio file through the chunk planner, model dispatch,
merger, and cleaning pipeline, optionally restructuring the result with a
template afterwards.

Supported formats: ogg, mp3, wav, m4a, flac, mp4, mpeg, mpga, webm`,
		Example: `  transcript transcribe session.ogg -o notes.md -t brainstorm
  transcript transcribe meeting.ogg --model gpt-4o-transcribe
  transcript transcribe lecture.ogg -l en --timestamps
  transcript transcribe session.ogg  # Raw transcript, no restructuring`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], transcribeOptions{
				output:     output,
				modelFlag:  modelFlag,
				template:   tmpl,
				parallel:   parallel,
				language:   language,
				outputLang: outputLang,
				prompt:     prompt,
				timestamps: timestamps,
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.md)")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", string(model.Whisper), "Transcription model: whisper, whisper-ts, gpt-4o-transcribe, gpt-4o-mini-transcribe")
	cmd.Flags().StringVarP(&tmpl, "template", "t", "", "Restructure template: brainstorm, meeting, lecture, notes")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Override max concurrent API requests (model default if unset)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Audio language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().StringVar(&outputLang, "output-lang", "", "Output language for restructured text (requires --template)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Optional transcription prompt/vocabulary hint")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "Emit [M:SS → M:SS] timed segments")

	return cmd
}

type transcribeOptions struct {
	output     string
	modelFlag  string
	template   string
	parallel   int
	language   string
	outputLang string
	prompt     string
	timestamps bool
}

// runTranscribe executes the transcription pipeline.
// Validation order: file exists -> format -> model -> template -> language -> API key
func runTranscribe(cmd *cobra.Command, env *Env, inputPath string, opts transcribeOptions) error {
	resourceID, ctx := resource.Default().Register(cmd.Context())
	defer func() {
		for _, cleanupErr := range resource.Default().Release(resourceID) {
			fmt.Fprintf(env.Stderr, "Warning: %v\n", cleanupErr)
		}
	}()

	if err := requireExistingFile(inputPath); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(inputPath))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}

	modelID, err := parseModelID(opts.modelFlag)
	if err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}
	output := config.ResolveOutputPath(opts.output, cfg.OutputDir, deriveOutputPath(filepath.Base(inputPath)))

	var tmpl template.Name
	if opts.template != "" {
		tmpl, err = template.ParseName(opts.template)
		if err != nil {
			return err
		}
	}

	language, err := lang.Parse(opts.language)
	if err != nil {
		return err
	}
	outputLang, err := lang.Parse(opts.outputLang)
	if err != nil {
		return err
	}
	if opts.outputLang != "" && opts.template == "" {
		return fmt.Errorf("--output-lang requires --template (raw transcripts use the audio's language)")
	}

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	if n := clampParallel(opts.parallel); n > 0 {
		modelCfg, err := env.ModelRegistry.Config(modelID)
		if err != nil {
			return err
		}
		modelCfg.MaxConcurrentChunks = n
		env.ModelRegistry.Override(modelID, modelCfg)
	}

	ffmpegPath, err := env.FFmpegResolver.Resolve(ctx)
	if err != nil {
		return err
	}
	env.FFmpegResolver.CheckVersion(ctx, ffmpegPath)

	progress := make(chan dispatch.ProgressEvent, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			fmt.Fprintf(env.Stderr, "Transcribing... chunk %d/%d (%.0f%%)\n", ev.CurrentChunk, ev.TotalChunks, ev.Percentage)
		}
	}()

	ctrl := controller.New(env.AudioEngine, env.RemoteClientFactory.NewClient(apiKey),
		controller.WithVAD(env.VADPreprocessor),
		controller.WithProgress(progress),
	)
	ctrl.Registry = env.ModelRegistry

	fmt.Fprintln(env.Stderr, "Transcribing...")
	result, err := ctrl.Run(ctx, controller.Request{
		AudioPath:  inputPath,
		ModelID:    modelID,
		Language:   language.String(),
		Prompt:     opts.prompt,
		Timestamps: opts.timestamps,
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Stderr, "Transcription complete")
	for _, issue := range result.Issues {
		fmt.Fprintf(env.Stderr, "Warning: %s\n", issue)
	}

	finalOutput := result.Text
	if !tmpl.IsZero() && strings.TrimSpace(result.Text) != "" {
		fmt.Fprintf(env.Stderr, "Restructuring with template '%s'...\n", tmpl)

		effectiveOutputLang := outputLang
		if effectiveOutputLang.IsZero() {
			effectiveOutputLang = language
		}

		finalOutput, err = restructureContent(ctx, env, result.Text, RestructureOptions{
			Template:   tmpl,
			OutputLang: effectiveOutputLang,
			OnProgress: defaultProgressCallback(env.Stderr),
		})
		if err != nil {
			return err
		}
	}

	if err := writeFileAtomic(output, finalOutput); err != nil {
		if errors.Is(err, ErrOutputExists) {
			return err
		}
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}

// requireExistingFile checks that path exists and is readable.
func requireExistingFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	return nil
}
