package clean

import "github.com/alnah/go-transcript/internal/model"

// NewPipelineForModel assembles the pre-wired cleaner sequence for a model's
// cleaning strategy (spec.md §4.4 "Pre-assembled pipelines"):
//
//	Whisper:  BaseHallucination -> TimestampsTailRepeat (if segmented) -> TailRepeat -> JapaneseValidator
//	GPT:      PromptContamination -> BaseHallucination -> JapaneseValidator
//	Standard: BaseHallucination -> JapaneseValidator
//
// withTimestamps controls whether the Whisper pipeline's segmented tail
// cleaner runs ahead of the plain-text tail cleaner.
func NewPipelineForModel(strategy model.CleaningStrategy, withTimestamps bool) *Pipeline {
	switch strategy.PipelineType {
	case model.PipelineGPT:
		return NewPipeline(strategy,
			NewPromptContaminationCleaner(strategy),
			NewBaseHallucinationCleaner(strategy),
			NewJapaneseTextValidator(strategy.ValidationThresholds),
		)
	case model.PipelineWhisper:
		cleaners := []Cleaner{NewBaseHallucinationCleaner(strategy)}
		if withTimestamps {
			cleaners = append(cleaners, NewTimestampsTailRepeatCleaner(strategy.TailRepeat))
		}
		cleaners = append(cleaners,
			NewTailRepeatCleaner(strategy.TailRepeat),
			NewJapaneseTextValidator(strategy.ValidationThresholds),
		)
		return NewPipeline(strategy, cleaners...)
	default:
		return NewPipeline(strategy,
			NewBaseHallucinationCleaner(strategy),
			NewJapaneseTextValidator(strategy.ValidationThresholds),
		)
	}
}

// ShouldFallback reports whether a pipeline's outcome trips spec.md §7
// "PipelineFallbackTrigger": the cleaned text kept less than
// MinExpectedContentRatio of the original, or it is shorter than
// MinFinalTextLength while the source audio lasted at least
// MinAudioDurationSeconds. An empty original never trips it. It only
// reports; the controller then keeps the merged, uncleaned text.
func ShouldFallback(result PipelineResult, cfg model.PipelineFallback, audioDuration float64) bool {
	if result.Metadata.OriginalLength == 0 {
		return false
	}
	contentRatio := 1 - result.Metadata.ReductionRatio
	if contentRatio < cfg.MinExpectedContentRatio {
		return true
	}
	if result.Metadata.CleanedLength < cfg.MinFinalTextLength && audioDuration >= cfg.MinAudioDurationSeconds {
		return true
	}
	return false
}
