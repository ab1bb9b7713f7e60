// Package model holds the per-model configuration surface: chunking limits,
// merge-matching thresholds, and cleaning-pipeline safety ceilings, cached
// process-wide and addressed by a small closed enum of model ids.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ID identifies a supported remote transcription model. The dispatcher and
// cleaning pipeline are selected per ID (spec.md §9 "tagged-variant strategy
// and pipeline factories keyed by enum").
type ID string

const (
	Whisper     ID = "whisper"
	WhisperTS   ID = "whisper-ts" // whisper with timestamp-aware merging
	GPT4o       ID = "gpt-4o-transcribe"
	GPT4oMini   ID = "gpt-4o-mini-transcribe"
)

// All enumerates every known model id, sorted for deterministic error
// messages.
func All() []ID {
	ids := []ID{Whisper, WhisperTS, GPT4o, GPT4oMini}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (id ID) String() string { return string(id) }

// IsSequential reports whether this model uses the sequential-context
// dispatch strategy (GPT-class) rather than the parallel-batch strategy
// (Whisper-class).
func (id ID) IsSequential() bool {
	return id == GPT4o || id == GPT4oMini
}

// IsTimestamped reports whether this model's merge path should run in
// timestamp-aware mode (segments carried through).
func (id ID) IsTimestamped() bool {
	return id == WhisperTS
}

// VADChunkingConfig controls chunk-boundary selection and overlap.
type VADChunkingConfig struct {
	OverlapDurationSeconds float64
	Variance               float64
	MinSilenceForSplit     float64
	ForceSplitAfterExtra   float64
	MinChunkSize           float64
	OptimizeBoundaries     bool
}

// DuplicateRemovalConfig controls the whole-text duplicate scanner.
type DuplicateRemovalConfig struct {
	Enabled                   bool
	MinDuplicateLength        int
	DuplicateSimilarityThresh float64
	ScanRadius                int
}

// OverlapDetectionConfig controls the merger's n-gram sliding-window layer.
type OverlapDetectionConfig struct {
	MinOverlapLength    int
	MaxOverlapLength    int
	SearchRangeInNext   int
	CandidateStepSize   int
	SimilarityThreshold float64
	MatchSkipRatio      float64
}

// MergingConfig groups every merge-related tunable for a model.
type MergingConfig struct {
	MinMatchLength        int
	FuzzyMatchSimilarity  float64
	NGramSize             int
	DuplicateRemoval      DuplicateRemovalConfig
	OverlapDetection      OverlapDetectionConfig
	DuplicateWindowSeconds float64
	OverlapThreshold       float64
	Separator              string
}

// Pricing is informational metadata carried alongside a model's config.
type Pricing struct {
	PerMinuteUSD float64
}

// Config is the immutable, per-model configuration (spec.md §3 "ModelConfig").
type Config struct {
	ID                     ID
	ChunkDurationSeconds   float64
	MaxFileSizeMB          float64
	MaxDurationSeconds     float64
	MaxConcurrentChunks    int
	RateLimitDelayMs       int
	ContextWindowSize      int
	RemoteTimeout          time.Duration
	VADChunking            VADChunkingConfig
	Merging                MergingConfig
	Pricing                Pricing
}

// defaultConfigs is the source of truth for every known model's Config,
// compiled once at process start and served through Registry.
var defaultConfigs = map[ID]Config{
	Whisper: {
		ID:                   Whisper,
		ChunkDurationSeconds: 600,
		MaxFileSizeMB:        25,
		MaxDurationSeconds:   1400,
		MaxConcurrentChunks:  2,
		RateLimitDelayMs:     500,
		ContextWindowSize:    0,
		RemoteTimeout:        60 * time.Second,
		VADChunking: VADChunkingConfig{
			OverlapDurationSeconds: 2,
			Variance:               5,
			MinSilenceForSplit:     0.5,
			ForceSplitAfterExtra:   120,
			MinChunkSize:           0.1,
			OptimizeBoundaries:     true,
		},
		Merging: MergingConfig{
			MinMatchLength:       20,
			FuzzyMatchSimilarity: 0.8,
			NGramSize:            3,
			DuplicateRemoval: DuplicateRemovalConfig{
				Enabled:                   true,
				MinDuplicateLength:        30,
				DuplicateSimilarityThresh: 0.85,
				ScanRadius:                1000,
			},
			OverlapDetection: OverlapDetectionConfig{
				MinOverlapLength:    20,
				MaxOverlapLength:    200,
				SearchRangeInNext:   300,
				CandidateStepSize:   10,
				SimilarityThreshold: 0.75,
				MatchSkipRatio:      0.5,
			},
			DuplicateWindowSeconds: 2,
			OverlapThreshold:       0.5,
			Separator:              "\n\n",
		},
		Pricing: Pricing{PerMinuteUSD: 0.006},
	},
	WhisperTS: {
		ID:                   WhisperTS,
		ChunkDurationSeconds: 600,
		MaxFileSizeMB:        25,
		MaxDurationSeconds:   1400,
		MaxConcurrentChunks:  2,
		RateLimitDelayMs:     500,
		ContextWindowSize:    0,
		RemoteTimeout:        60 * time.Second,
		VADChunking: VADChunkingConfig{
			OverlapDurationSeconds: 2,
			Variance:               5,
			MinSilenceForSplit:     0.5,
			ForceSplitAfterExtra:   120,
			MinChunkSize:           0.1,
			OptimizeBoundaries:     true,
		},
		Merging: MergingConfig{
			MinMatchLength:       20,
			FuzzyMatchSimilarity: 0.8,
			NGramSize:            3,
			DuplicateRemoval: DuplicateRemovalConfig{
				Enabled:                   true,
				MinDuplicateLength:        30,
				DuplicateSimilarityThresh: 0.85,
				ScanRadius:                1000,
			},
			OverlapDetection: OverlapDetectionConfig{
				MinOverlapLength:    20,
				MaxOverlapLength:    200,
				SearchRangeInNext:   300,
				CandidateStepSize:   10,
				SimilarityThreshold: 0.75,
				MatchSkipRatio:      0.5,
			},
			DuplicateWindowSeconds: 2,
			OverlapThreshold:       0.5,
			Separator:              "\n\n",
		},
		Pricing: Pricing{PerMinuteUSD: 0.006},
	},
	GPT4o: {
		ID:                   GPT4o,
		ChunkDurationSeconds: 300,
		MaxFileSizeMB:        25,
		MaxDurationSeconds:   1400,
		MaxConcurrentChunks:  1,
		RateLimitDelayMs:     0,
		ContextWindowSize:    200,
		RemoteTimeout:        90 * time.Second,
		VADChunking: VADChunkingConfig{
			OverlapDurationSeconds: 5,
			Variance:               5,
			MinSilenceForSplit:     0.5,
			ForceSplitAfterExtra:   90,
			MinChunkSize:           0.1,
			OptimizeBoundaries:     true,
		},
		Merging: MergingConfig{
			MinMatchLength:       15,
			FuzzyMatchSimilarity: 0.75,
			NGramSize:            3,
			DuplicateRemoval: DuplicateRemovalConfig{
				Enabled:                   true,
				MinDuplicateLength:        25,
				DuplicateSimilarityThresh: 0.8,
				ScanRadius:                1000,
			},
			OverlapDetection: OverlapDetectionConfig{
				MinOverlapLength:    15,
				MaxOverlapLength:    150,
				SearchRangeInNext:   250,
				CandidateStepSize:   8,
				SimilarityThreshold: 0.7,
				MatchSkipRatio:      0.5,
			},
			DuplicateWindowSeconds: 2,
			OverlapThreshold:       0.5,
			Separator:              "\n\n",
		},
		Pricing: Pricing{PerMinuteUSD: 0.006},
	},
	GPT4oMini: {
		ID:                   GPT4oMini,
		ChunkDurationSeconds: 300,
		MaxFileSizeMB:        25,
		MaxDurationSeconds:   1400,
		MaxConcurrentChunks:  1,
		RateLimitDelayMs:     0,
		ContextWindowSize:    200,
		RemoteTimeout:        90 * time.Second,
		VADChunking: VADChunkingConfig{
			OverlapDurationSeconds: 5,
			Variance:               5,
			MinSilenceForSplit:     0.5,
			ForceSplitAfterExtra:   90,
			MinChunkSize:           0.1,
			OptimizeBoundaries:     true,
		},
		Merging: MergingConfig{
			MinMatchLength:       15,
			FuzzyMatchSimilarity: 0.75,
			NGramSize:            3,
			DuplicateRemoval: DuplicateRemovalConfig{
				Enabled:                   true,
				MinDuplicateLength:        25,
				DuplicateSimilarityThresh: 0.8,
				ScanRadius:                1000,
			},
			OverlapDetection: OverlapDetectionConfig{
				MinOverlapLength:    15,
				MaxOverlapLength:    150,
				SearchRangeInNext:   250,
				CandidateStepSize:   8,
				SimilarityThreshold: 0.7,
				MatchSkipRatio:      0.5,
			},
			DuplicateWindowSeconds: 2,
			OverlapThreshold:       0.5,
			Separator:              "\n\n",
		},
		Pricing: Pricing{PerMinuteUSD: 0.003},
	},
}

// unknownModelError is returned by Registry.Config/Strategy for an id not in
// All().
type unknownModelError struct{ id ID }

func (e unknownModelError) Error() string {
	names := make([]string, 0, len(All()))
	for _, id := range All() {
		names = append(names, string(id))
	}
	return fmt.Sprintf("unknown model id %q: known ids are [%s]", e.id, strings.Join(names, ", "))
}

// ValidateRegexes compiles every regex string embedded in a ModelCleaningStrategy
// so startup fails fast (spec.md §9 "validate on startup that every pattern
// compiles") rather than at first use deep inside the cleaning pipeline.
func ValidateRegexes(patterns ...string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid cleaning pattern %q: %w", p, err)
		}
	}
	return nil
}
