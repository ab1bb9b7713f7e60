package model

// PipelineType selects which pre-assembled cleaner sequence a model uses
// (spec.md §4.4).
type PipelineType string

const (
	PipelineWhisper  PipelineType = "whisper"
	PipelineGPT      PipelineType = "gpt4o"
	PipelineStandard PipelineType = "standard"
)

// SafetyThresholds bounds how much any single cleaning stage is allowed to
// shrink the text before the pipeline treats it as a bug rather than a fix.
type SafetyThresholds struct {
	SingleCleanerMaxReduction     float64
	SinglePatternMaxReduction     float64
	RepetitionPatternMaxReduction float64
	PhrasePatternMaxReduction     float64
	EmergencyFallbackThreshold    float64
	WarningThreshold              float64
	MaxPatternsBeforeWarning      int
	MaxCleaningIterations         int
	IterationReductionLimit       float64
}

// DefaultSafetyThresholds returns the thresholds named by spec.md §4.4.1/§4.4.2
// defaults.
func DefaultSafetyThresholds() SafetyThresholds {
	return SafetyThresholds{
		SingleCleanerMaxReduction:     0.5,
		SinglePatternMaxReduction:     0.2,
		RepetitionPatternMaxReduction: 1.0,
		PhrasePatternMaxReduction:     0.2,
		EmergencyFallbackThreshold:    0.6,
		WarningThreshold:              0.3,
		MaxPatternsBeforeWarning:      5,
		MaxCleaningIterations:         3,
		IterationReductionLimit:       0.4,
	}
}

// RepetitionThreshold is a {min,max,threshold} medium-length phrase repeat
// range: match `(.{min,max}?)\1{threshold-1,}`.
type RepetitionThreshold struct {
	Min       int
	Max       int
	Threshold int
}

// EnumerationDetection configures comma-separated list-repeat collapsing.
type EnumerationDetection struct {
	Enabled        bool
	MinRepeatCount int
}

// SentenceCollapsing configures consecutive-similar-sentence collapsing.
type SentenceCollapsing struct {
	SimilarityThreshold float64
	MinLength           int
	SentenceRepetition  int
}

// ParagraphRepeatGuard configures the fingerprint-based paragraph dedup.
type ParagraphRepeatGuard struct {
	HeadChars int
}

// ShortCharRepeat configures 1-4 kana-word repetition reduction.
type ShortCharRepeat struct {
	KeepRatio               float64
	BaseThreshold           int
	DynamicThresholdDivisor int
	LengthFactor            float64
	EssentialParticles      map[string]bool
	CommonExpressions       map[string]bool
}

// TailRepeatConfig configures TailRepeatCleaner/TimestampsTailRepeatCleaner.
type TailRepeatConfig struct {
	MaxTailParagraphs   int
	MaxTailBlocks       int
	MaxUnit             int
	SimilarityThreshold float64
	MinRepeatCount      int
}

// PipelineFallback holds the PipelineFallbackTrigger thresholds (spec.md
// §7) checked by clean.ShouldFallback. When the trigger fires, the
// controller uses the merged, uncleaned text; the pipeline is not re-run
// with other settings.
type PipelineFallback struct {
	MinExpectedContentRatio float64
	MinFinalTextLength      int
	MinAudioDurationSeconds float64
}

// ValidationThresholds bounds JapaneseTextValidator's non-mutating checks.
type ValidationThresholds struct {
	MinLength              int
	ExpectedCharsPerSecond float64
	CharsPerSecondTolerance float64
}

// HallucinationPatterns groups per-language compiled-at-load regex strings.
type HallucinationPatterns struct {
	Japanese []string
	English  []string
	Chinese  []string
	Korean   []string
}

// ContaminationPatternGroup is one priority tier of prompt-tag patterns
// (spec.md §4.4.2 "Priority groups").
type ContaminationPatternGroup struct {
	Name     string
	Patterns []string
}

// CleaningStrategy is the immutable, per-model cleaning configuration
// (spec.md §3 "ModelCleaningStrategy").
type CleaningStrategy struct {
	ModelID               ID
	PipelineType           PipelineType
	MaxReductionRatio      float64
	Safety                 SafetyThresholds
	HallucinationPatterns  HallucinationPatterns
	RepetitionThresholds   []RepetitionThreshold
	Enumeration            EnumerationDetection
	SentenceCollapsing     SentenceCollapsing
	ParagraphRepeat        ParagraphRepeatGuard
	ShortCharRepeat        ShortCharRepeat
	TailRepeat             TailRepeatConfig
	ValidationThresholds   ValidationThresholds
	ContaminationPatterns  []ContaminationPatternGroup
	LeadingInstructionSnippets []string
	ContextPatterns        []string
	AggressiveContamination bool
	PipelineFallback       PipelineFallback
	StopOnCriticalIssue    bool
}

// defaultCleaningStrategies mirrors defaultConfigs: one CleaningStrategy per
// model id, assembled at process start.
var defaultCleaningStrategies = map[ID]CleaningStrategy{
	Whisper:   whisperCleaningStrategy(Whisper),
	WhisperTS: whisperCleaningStrategy(WhisperTS),
	GPT4o:     gptCleaningStrategy(GPT4o),
	GPT4oMini: gptCleaningStrategy(GPT4oMini),
}

func commonHallucinationPatterns() HallucinationPatterns {
	return HallucinationPatterns{
		Japanese: []string{
			`(ご視聴[、]?ありがとうございました[。、]?\s*){2,}`,
			`(ご清聴[、]?ありがとうございました[。、]?\s*){2,}`,
			`(ありがとうございます[。、]?\s*){8,}`,
			`(チャンネル登録[をお願いします]*[。、]?\s*){2,}`,
			`^\s*[♪♫\[\(（【][^)\]）】]*(音楽|拍手|笑|BGM)[^)\]）】]*[♪♫\]\)）】]\s*$`,
		},
		English: []string{
			`(thanks? for watching[!.]?\s*){2,}`,
			`(thank you for watching[!.]?\s*){2,}`,
			`(please (like and )?subscribe[!.]?\s*){2,}`,
			`(?i)^\s*\[(music|applause|laughter|silence|inaudible)\]\s*$`,
		},
		Chinese: []string{
			`(感谢观看[。！]?\s*){2,}`,
			`(请订阅[我的频道]*[。！]?\s*){2,}`,
		},
		Korean: []string{
			`(시청해주셔서 감사합니다[.!]?\s*){2,}`,
			`(구독과 좋아요 부탁드립니다[.!]?\s*){2,}`,
		},
	}
}

func commonContaminationGroups() []ContaminationPatternGroup {
	return []ContaminationPatternGroup{
		{
			Name: "completeXmlTags",
			Patterns: []string{
				`(?s)<前回終了箇所>.*?</前回終了箇所>`,
				`(?s)<context>.*?</context>`,
				`(?s)<previous_context>.*?</previous_context>`,
				`(?s)<system>.*?</system>`,
				`(?s)<instructions>.*?</instructions>`,
			},
		},
		{
			Name: "sentenceBoundedTags",
			Patterns: []string{
				`<[A-Za-z_]+>[^<>\n]{0,200}</[A-Za-z_]+>[。.!?]?`,
			},
		},
		{
			Name: "lineBoundedTags",
			Patterns: []string{
				`(?m)^<[A-Za-z_][^>]*>.*$`,
			},
		},
		{
			Name: "standaloneTags",
			Patterns: []string{
				`</?[A-Za-z_][^>]*>`,
			},
		},
	}
}

func commonRepetitionThresholds() []RepetitionThreshold {
	return []RepetitionThreshold{
		{Min: 1, Max: 4, Threshold: 4},
		{Min: 5, Max: 15, Threshold: 3},
		{Min: 16, Max: 40, Threshold: 3},
	}
}

func whisperCleaningStrategy(id ID) CleaningStrategy {
	pt := PipelineWhisper
	if id == WhisperTS {
		pt = PipelineWhisper
	}
	return CleaningStrategy{
		ModelID:               id,
		PipelineType:          pt,
		MaxReductionRatio:     0.5,
		Safety:                DefaultSafetyThresholds(),
		HallucinationPatterns: commonHallucinationPatterns(),
		RepetitionThresholds:  commonRepetitionThresholds(),
		Enumeration:           EnumerationDetection{Enabled: true, MinRepeatCount: 3},
		SentenceCollapsing: SentenceCollapsing{
			SimilarityThreshold: 0.8,
			MinLength:           6,
			SentenceRepetition:  2,
		},
		ParagraphRepeat: ParagraphRepeatGuard{HeadChars: 15},
		ShortCharRepeat: ShortCharRepeat{
			KeepRatio:               0.34,
			BaseThreshold:           6,
			DynamicThresholdDivisor: 200,
			LengthFactor:            0.5,
			EssentialParticles: map[string]bool{
				"は": true, "が": true, "を": true, "に": true, "で": true,
				"と": true, "も": true, "の": true, "ね": true, "よ": true,
			},
			CommonExpressions: map[string]bool{
				"そう": true, "はい": true, "うん": true, "えっと": true,
			},
		},
		TailRepeat: TailRepeatConfig{
			MaxTailParagraphs:   10,
			MaxTailBlocks:       10,
			MaxUnit:             3,
			SimilarityThreshold: 0.85,
			MinRepeatCount:      3,
		},
		ValidationThresholds: ValidationThresholds{
			MinLength:               2,
			ExpectedCharsPerSecond:  5.0,
			CharsPerSecondTolerance: 3.0,
		},
		PipelineFallback: PipelineFallback{
			MinExpectedContentRatio: 0.3,
			MinFinalTextLength:      10,
			MinAudioDurationSeconds: 5,
		},
		StopOnCriticalIssue: true,
	}
}

func gptCleaningStrategy(id ID) CleaningStrategy {
	return CleaningStrategy{
		ModelID:               id,
		PipelineType:          PipelineGPT,
		MaxReductionRatio:     0.5,
		Safety:                DefaultSafetyThresholds(),
		HallucinationPatterns: commonHallucinationPatterns(),
		RepetitionThresholds:  commonRepetitionThresholds(),
		Enumeration:           EnumerationDetection{Enabled: true, MinRepeatCount: 3},
		SentenceCollapsing: SentenceCollapsing{
			SimilarityThreshold: 0.8,
			MinLength:           6,
			SentenceRepetition:  2,
		},
		ParagraphRepeat: ParagraphRepeatGuard{HeadChars: 15},
		ShortCharRepeat: ShortCharRepeat{
			KeepRatio:               0.34,
			BaseThreshold:           6,
			DynamicThresholdDivisor: 200,
			LengthFactor:            0.5,
			EssentialParticles: map[string]bool{
				"は": true, "が": true, "を": true, "に": true, "で": true,
				"と": true, "も": true, "の": true, "ね": true, "よ": true,
			},
			CommonExpressions: map[string]bool{
				"そう": true, "はい": true, "うん": true, "えっと": true,
			},
		},
		TailRepeat: TailRepeatConfig{
			MaxTailParagraphs:   10,
			MaxTailBlocks:       10,
			MaxUnit:             3,
			SimilarityThreshold: 0.85,
			MinRepeatCount:      3,
		},
		ValidationThresholds: ValidationThresholds{
			MinLength:               2,
			ExpectedCharsPerSecond:  5.0,
			CharsPerSecondTolerance: 3.0,
		},
		ContaminationPatterns: commonContaminationGroups(),
		LeadingInstructionSnippets: []string{
			"Context: previous transcription continues below.",
			"前回終了箇所からの続きです。",
			"Continue transcribing the following audio.",
		},
		ContextPatterns: []string{
			`(?s)^Context:\s*"[^"]*"\s*`,
			`(?m)^前回終了箇所[:：].*$`,
		},
		AggressiveContamination: false,
		PipelineFallback: PipelineFallback{
			MinExpectedContentRatio: 0.3,
			MinFinalTextLength:      10,
			MinAudioDurationSeconds: 5,
		},
		StopOnCriticalIssue: true,
	}
}
