// Package merge implements the overlap-aware merger (spec.md §4.3): it joins
// per-chunk TranscriptionResults into one transcript, trimming the
// duplicated speech each chunk's overlap window introduces, with an optional
// timestamp-aware segment path and whole-text duplicate scrub. It is
// grounded on internal/similarity's n-gram/LCS kernel and the teacher's
// format.Duration for the timestamped rendering.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alnah/go-transcript/internal/format"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
)

// Result is the merger's output (spec.md §4.3/§4.5).
type Result struct {
	Text     string
	Segments []remote.Segment
	Partial  bool
	Err      error
}

// Merge orders results by start time, trims inter-chunk overlap, optionally
// runs the timestamp-aware segment path, and when the run is partial,
// prepends the localized partial-result header/summary and appends a
// failure-report appendix (spec.md §4.2.3, §4.3 "Failure-report appendix").
func Merge(results []remote.TranscriptionResult, cfg model.MergingConfig, partial bool, timestampedOutput bool) Result {
	valid, failed := partitionResults(results)
	if len(valid) == 0 && len(failed) == 0 {
		return Result{}
	}
	if len(valid) == 0 {
		text := prependPartialSummary(failureReport(failed), 0, len(failed))
		return Result{Text: text, Partial: true}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].StartTime < valid[j].StartTime })

	allTimestamped := allHaveSegments(valid)

	var text string
	var segments []remote.Segment
	if allTimestamped {
		segments = mergeSegments(valid, cfg)
		if timestampedOutput {
			text = renderTimestamped(segments)
		} else {
			text = renderPlain(segments)
		}
	} else {
		text = mergePlainText(valid, cfg)
	}

	if cfg.DuplicateRemoval.Enabled {
		text = removeWholeTextDuplicates(text, cfg.DuplicateRemoval)
	}

	if partial || len(failed) > 0 {
		text = prependPartialSummary(text, len(valid), len(valid)+len(failed))
		text = appendFailureReport(text, failed)
	}

	return Result{Text: text, Segments: segments, Partial: partial}
}

func partitionResults(results []remote.TranscriptionResult) (valid, failed []remote.TranscriptionResult) {
	for _, r := range results {
		if r.Success {
			valid = append(valid, r)
		} else {
			failed = append(failed, r)
		}
	}
	return valid, failed
}

func allHaveSegments(results []remote.TranscriptionResult) bool {
	for _, r := range results {
		if len(r.Segments) == 0 {
			return false
		}
	}
	return true
}

// mergePlainText joins chunk texts in order, trimming each successive
// chunk's leading overlap against the accumulated tail (spec.md §4.3
// "Overlap removal between consecutive results").
func mergePlainText(valid []remote.TranscriptionResult, cfg model.MergingConfig) string {
	if len(valid) == 0 {
		return ""
	}
	acc := strings.TrimSpace(valid[0].Text)
	for i := 1; i < len(valid); i++ {
		prev := valid[i-1]
		cur := valid[i]
		overlapDuration := overlapSeconds(prev, cur)
		trimmed, connector := trimOverlap(acc, cur.Text, cfg, overlapDuration)
		sep := cfg.Separator
		if sep == "" {
			sep = "\n\n"
		}
		if trimmed == "" {
			continue
		}
		if connector != "" {
			acc = acc + connector + trimmed
		} else if overlapMatched(acc, cur.Text, trimmed) {
			acc = acc + trimmed
		} else {
			acc = acc + sep + trimmed
		}
	}
	return acc
}

func overlapSeconds(prev, cur remote.TranscriptionResult) float64 {
	o := min(prev.EndTime, cur.EndTime) - max(prev.StartTime, cur.StartTime)
	if o < 0 {
		return 0
	}
	return o
}

// overlapMatched reports whether trimOverlap actually found and removed a
// match (as opposed to returning the text untouched because nothing
// matched), so the caller can skip inserting the paragraph separator.
func overlapMatched(acc, original, trimmed string) bool {
	return trimmed != original
}

// partialResultHeader is the localized string spec.md §4.2.3/§4.5 prepends
// to a partial merge, followed by the "processed/total" chunk summary.
const partialResultHeader = "[partial result]"

// prependPartialSummary prepends the localized partial-result header and
// processed/total summary to text, separated from it by a double newline
// (spec.md §4.5 "Partial-result header").
func prependPartialSummary(text string, processed, total int) string {
	return fmt.Sprintf("%s %d/%d\n\n%s", partialResultHeader, processed, total, text)
}

// failureReport renders the text for a run where every chunk failed.
func failureReport(failed []remote.TranscriptionResult) string {
	var b strings.Builder
	b.WriteString("[transcription failed for all chunks]\n")
	for _, f := range failed {
		fmt.Fprintf(&b, "- chunk %d (%s-%s): %v\n", f.ChunkID, format.Duration(secondsToDuration(f.StartTime)), format.Duration(secondsToDuration(f.EndTime)), f.Err)
	}
	return b.String()
}

// appendFailureReport appends a localized section listing every failed
// chunk's time range and error (spec.md §4.3 "Failure-report appendix").
func appendFailureReport(text string, failed []remote.TranscriptionResult) string {
	if len(failed) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n[failed chunks]\n")
	for _, f := range failed {
		fmt.Fprintf(&b, "- chunk %d (%s-%s): %v\n", f.ChunkID, format.Duration(secondsToDuration(f.StartTime)), format.Duration(secondsToDuration(f.EndTime)), f.Err)
	}
	return b.String()
}

