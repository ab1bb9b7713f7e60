package cli

import (
	"context"
	"fmt"

	"github.com/alnah/go-transcript/internal/lang"
	"github.com/alnah/go-transcript/internal/restructure"
	"github.com/alnah/go-transcript/internal/template"
)

// RestructureOptions configures transcript restructuring. Restructuring
// always goes through OpenAI (spec.md's transcription pipeline has no
// multi-provider concept; this is a supplemented post-step carried from the
// teacher, kept single-provider to match the one API key already required
// for transcription).
type RestructureOptions struct {
	// Template (required): validated template name
	Template template.Name
	// Output language (optional): zero value = English (template's native language)
	OutputLang lang.Language
	// Optional progress callback for long transcripts
	OnProgress func(phase string, current, total int)
}

// restructureContent transforms content using a template and LLM.
// Template must be validated before calling this function.
func restructureContent(ctx context.Context, env *Env, content string, opts RestructureOptions) (string, error) {
	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return "", fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	var mrOpts []restructure.MapReduceOption
	if opts.OnProgress != nil {
		mrOpts = append(mrOpts, restructure.WithMapReduceProgress(opts.OnProgress))
	}

	mr := env.RestructurerFactory.NewMapReducer(apiKey, mrOpts...)

	result, _, err := mr.Restructure(ctx, content, opts.Template, opts.OutputLang)
	return result, err
}
