package clean

import (
	"strings"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/similarity"
)

// TailRepeatCleaner detects an end-of-transcript loop: the last N paragraphs
// collapsing into a handful of near-identical short blocks, the hallmark of
// a model stuck re-transcribing silence (spec.md §4.4.3). It only inspects
// the tail window, never the rest of the transcript.
type TailRepeatCleaner struct {
	cfg model.TailRepeatConfig
}

var _ Cleaner = (*TailRepeatCleaner)(nil)

func NewTailRepeatCleaner(cfg model.TailRepeatConfig) *TailRepeatCleaner {
	return &TailRepeatCleaner{cfg: cfg}
}

func (c *TailRepeatCleaner) Name() string { return "TailRepeatCleaner" }

func (c *TailRepeatCleaner) Clean(text string, ctx Context) Result {
	original := text
	paragraphs := strings.Split(text, "\n\n")

	tailStart := len(paragraphs) - c.cfg.MaxTailParagraphs
	if tailStart < 0 {
		tailStart = 0
	}
	tail := paragraphs[tailStart:]

	if trimmed, removed := collapseTailBlocks(tail, c.cfg); removed {
		final := append(append([]string{}, paragraphs[:tailStart]...), trimmed...)
		cleaned := strings.Join(final, "\n\n")
		return Result{
			CleanedText:           cleaned,
			HasSignificantChanges: true,
			Metadata:              makeMetadata(original, cleaned, []string{"tailRepeat"}),
		}
	}

	// Paragraph-level found nothing; retry at sentence level (spec.md
	// §4.4.3 "If paragraph-level finds nothing, fall back to sentence-level").
	if cleaned, ok := collapseSentenceTailFallback(original, c.cfg); ok {
		return Result{
			CleanedText:           cleaned,
			HasSignificantChanges: true,
			Metadata:              makeMetadata(original, cleaned, []string{"tailRepeat:sentence"}),
		}
	}

	return Result{
		CleanedText:           original,
		HasSignificantChanges: false,
		Metadata:              makeMetadata(original, original, nil),
	}
}

// collapseSentenceTailFallback re-runs tail-repeat detection over the
// sentence-split text instead of paragraphs, for transcripts where the
// repeat loop is finer-grained than a full paragraph.
func collapseSentenceTailFallback(text string, cfg model.TailRepeatConfig) (string, bool) {
	sentences := splitSentences(text)
	tailStart := len(sentences) - cfg.MaxTailParagraphs
	if tailStart < 0 {
		tailStart = 0
	}
	tail := sentences[tailStart:]

	trimmed, removed := collapseTailBlocks(tail, cfg)
	if !removed {
		return text, false
	}

	final := append(append([]string{}, sentences[:tailStart]...), trimmed...)
	return strings.Join(final, ""), true
}

// collapseTailBlocks groups the tail paragraphs into blocks of up to
// cfg.MaxUnit paragraphs and drops trailing blocks once one repeats at
// least cfg.MinRepeatCount times under the similarity threshold.
func collapseTailBlocks(tail []string, cfg model.TailRepeatConfig) ([]string, bool) {
	if len(tail) == 0 {
		return tail, false
	}

	maxUnit := cfg.MaxUnit
	if maxUnit <= 0 {
		maxUnit = 3
	}

	for unit := 1; unit <= maxUnit; unit++ {
		blocks := groupBy(tail, unit)
		if len(blocks) < cfg.MinRepeatCount {
			continue
		}
		maxBlocks := cfg.MaxTailBlocks
		if maxBlocks <= 0 || maxBlocks > len(blocks) {
			maxBlocks = len(blocks)
		}
		blocks = blocks[len(blocks)-maxBlocks:]

		last := blocks[len(blocks)-1]
		repeat := 1
		for i := len(blocks) - 2; i >= 0; i-- {
			if blockSimilar(blocks[i], last, cfg.SimilarityThreshold) {
				repeat++
			} else {
				break
			}
		}
		if repeat >= cfg.MinRepeatCount {
			keepBlocks := len(blocks) - repeat + 1
			var kept []string
			for _, b := range blocks[:keepBlocks] {
				kept = append(kept, b...)
			}
			return kept, true
		}
	}
	return tail, false
}

func groupBy(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func blockSimilar(a, b []string, threshold float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		na := similarity.Normalize(a[i])
		nb := similarity.Normalize(b[i])
		if similarity.CharInclusionSimilarity(na, nb) < threshold {
			return false
		}
	}
	return true
}

// TimestampsTailRepeatCleaner applies the same tail-loop detection to
// segment-aware (timestamped) transcripts, operating on segment text units
// instead of paragraph splits (spec.md §4.4.3 "segmented variant").
type TimestampsTailRepeatCleaner struct {
	cfg model.TailRepeatConfig
}

var _ Cleaner = (*TimestampsTailRepeatCleaner)(nil)

func NewTimestampsTailRepeatCleaner(cfg model.TailRepeatConfig) *TimestampsTailRepeatCleaner {
	return &TimestampsTailRepeatCleaner{cfg: cfg}
}

func (c *TimestampsTailRepeatCleaner) Name() string { return "TimestampsTailRepeatCleaner" }

func (c *TimestampsTailRepeatCleaner) Clean(text string, ctx Context) Result {
	original := text
	lines := splitTimestampLines(text)
	if len(lines) == 0 {
		return Result{CleanedText: original, Metadata: makeMetadata(original, original, nil)}
	}

	tailStart := len(lines) - c.cfg.MaxTailParagraphs
	if tailStart < 0 {
		tailStart = 0
	}
	tail := lines[tailStart:]

	if trimmed, removed := collapseTailBlocks(tail, c.cfg); removed {
		final := append(append([]string{}, lines[:tailStart]...), trimmed...)
		cleaned := strings.Join(final, "\n")
		return Result{
			CleanedText:           cleaned,
			HasSignificantChanges: true,
			Metadata:              makeMetadata(original, cleaned, []string{"timestampsTailRepeat"}),
		}
	}

	// Line-level found nothing; retry at sentence level (spec.md §4.4.3
	// "If paragraph-level finds nothing, fall back to sentence-level").
	if cleaned, ok := collapseSentenceTailFallback(original, c.cfg); ok {
		return Result{
			CleanedText:           cleaned,
			HasSignificantChanges: true,
			Metadata:              makeMetadata(original, cleaned, []string{"timestampsTailRepeat:sentence"}),
		}
	}

	return Result{CleanedText: original, Metadata: makeMetadata(original, original, nil)}
}

func splitTimestampLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
