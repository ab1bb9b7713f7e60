// Package clean implements the model-aware cleaning pipeline (spec.md §4.4):
// a sequence of Cleaners, each a pure function of (text, language, context),
// that strips hallucinated filler, prompt-contamination leakage, and
// end-of-transcript repetition loops from a merged transcript. Grounded on
// the teacher's restructure.mapReduce staged-pipeline shape, generalized
// from chat-completion restructuring to text-mutation cleaners.
package clean

import (
	"fmt"
	"strings"

	"github.com/alnah/go-transcript/internal/model"
)

// Context carries per-request data a cleaner may need beyond the text
// itself (spec.md §4.4 "clean(text, language, context)").
type Context struct {
	Language       string
	OriginalLength int
	AudioDuration  float64 // seconds; zero if unknown
}

// Metadata is the per-invocation report every cleaner returns alongside its
// cleaned text (spec.md §3 "CleaningResult.metadata").
type Metadata struct {
	OriginalLength  int
	CleanedLength   int
	ReductionRatio  float64
	PatternsMatched []string
}

// Result is one cleaner's output (spec.md §3 "CleaningResult").
type Result struct {
	CleanedText           string
	Issues                []string
	HasSignificantChanges bool
	Metadata              Metadata
}

// Cleaner is the uniform contract every pipeline stage implements.
type Cleaner interface {
	Name() string
	Clean(text string, ctx Context) Result
}

// PipelineResult is the whole pipeline's output (spec.md §3 "PipelineResult").
type PipelineResult struct {
	FinalText string
	Stages    []Result
	Metadata  Metadata
}

// Pipeline runs an ordered Cleaner sequence, threading text through and
// enforcing model-specific safety ceilings (spec.md §4.4 "The pipeline
// runner").
type Pipeline struct {
	Cleaners []Cleaner
	Strategy model.CleaningStrategy
}

// NewPipeline constructs a Pipeline for strategy's cleaner sequence.
func NewPipeline(strategy model.CleaningStrategy, cleaners ...Cleaner) *Pipeline {
	return &Pipeline{Cleaners: cleaners, Strategy: strategy}
}

// criticalPatterns name the issue substrings that trip stopOnCriticalIssue
// (spec.md §4.4 "excessive text removal, extreme text reduction, encoding
// issues, unicode replacement characters").
var criticalPatterns = []string{
	"excessive text removal",
	"extreme text reduction",
	"encoding issue",
	"replacement character",
}

// Run executes every cleaner in order. A cleaner that panics is recovered:
// the prior text is preserved, an issue is recorded, and the pipeline
// continues (spec.md §4.4 "Catches per-cleaner exceptions").
func (p *Pipeline) Run(text string, ctx Context) PipelineResult {
	originalLength := len([]rune(text))
	ctx.OriginalLength = originalLength

	current := text
	var stages []Result

	for _, cleaner := range p.Cleaners {
		stage := p.runOne(cleaner, current, ctx)
		stages = append(stages, stage)

		if reductionRatio(originalLength, len([]rune(stage.CleanedText))) > p.Strategy.MaxReductionRatio {
			// Reject a stage that alone blew the overall budget: keep the
			// pre-stage text, but still record the attempt.
			stages[len(stages)-1].CleanedText = current
			continue
		}

		current = stage.CleanedText

		if p.Strategy.StopOnCriticalIssue && hasCriticalIssue(stage.Issues) {
			break
		}
	}

	finalLen := len([]rune(current))
	return PipelineResult{
		FinalText: current,
		Stages:    stages,
		Metadata: Metadata{
			OriginalLength: originalLength,
			CleanedLength:  finalLen,
			ReductionRatio: reductionRatio(originalLength, finalLen),
		},
	}
}

func (p *Pipeline) runOne(cleaner Cleaner, text string, ctx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				CleanedText: text,
				Issues:      []string{fmt.Sprintf("%s: panic: %v", cleaner.Name(), r)},
				Metadata: Metadata{
					OriginalLength: len([]rune(text)),
					CleanedLength:  len([]rune(text)),
				},
			}
		}
	}()
	return cleaner.Clean(text, ctx)
}

func hasCriticalIssue(issues []string) bool {
	for _, issue := range issues {
		for _, pattern := range criticalPatterns {
			if strings.Contains(strings.ToLower(issue), pattern) {
				return true
			}
		}
	}
	return false
}

func reductionRatio(originalLen, newLen int) float64 {
	if originalLen == 0 {
		return 0
	}
	return float64(originalLen-newLen) / float64(originalLen)
}

func makeMetadata(original, cleaned string, patterns []string) Metadata {
	return Metadata{
		OriginalLength:  len([]rune(original)),
		CleanedLength:   len([]rune(cleaned)),
		ReductionRatio:  reductionRatio(len([]rune(original)), len([]rune(cleaned))),
		PatternsMatched: patterns,
	}
}
