package merge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
)

// mergeSegments collects every chunk's segments, sorts by start, and
// deduplicates consecutive/overlapping spans (spec.md §4.3
// "Timestamp-aware mode").
func mergeSegments(valid []remote.TranscriptionResult, cfg model.MergingConfig) []remote.Segment {
	var all []remote.Segment
	for _, r := range valid {
		all = append(all, r.Segments...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	dupWindow := cfg.DuplicateWindowSeconds
	if dupWindow <= 0 {
		dupWindow = 2
	}
	overlapThreshold := cfg.OverlapThreshold
	if overlapThreshold <= 0 {
		overlapThreshold = 0.5
	}

	var out []remote.Segment
	for _, seg := range all {
		if len(out) == 0 {
			out = append(out, seg)
			continue
		}
		prev := &out[len(out)-1]

		if prev.Text == seg.Text && seg.Start-prev.Start <= dupWindow {
			continue
		}

		if seg.Start < prev.End {
			dur := seg.End - seg.Start
			var ratio float64
			if dur > 0 {
				ratio = (prev.End - seg.Start) / dur
			}
			if ratio < overlapThreshold {
				out = append(out, seg)
				continue
			}
			prev.End = seg.End
			prev.Text = strings.TrimSpace(prev.Text + " " + seg.Text)
			continue
		}

		out = append(out, seg)
	}
	return out
}

// renderPlain joins segment texts with the default paragraph separator.
func renderPlain(segments []remote.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, strings.TrimSpace(s.Text))
	}
	return strings.Join(parts, "\n\n")
}

// renderTimestamped formats one "[M:SS → M:SS] text" line per segment,
// sanitizing line endings and collapsing intra-segment whitespace (spec.md
// §6 "Timestamp output format": minutes not zero-padded, seconds zero-padded
// to two digits, arrow is U+2192).
func renderTimestamped(segments []remote.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		text := sanitizeLineEndings(s.Text)
		text = collapseWhitespace(text)
		fmt.Fprintf(&b, "[%s → %s] %s\n",
			formatTimestamp(s.Start),
			formatTimestamp(s.End),
			text,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatTimestamp renders seconds as "M:SS" (minutes unpadded, seconds
// zero-padded), matching the teacher's format.Duration shape minus its
// zero-padded-minutes habit, which spec.md's timestamp output explicitly
// rejects.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func sanitizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
