package merge

import (
	"sort"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/similarity"
)

// removeWholeTextDuplicates scans the fully merged text for repeated spans
// using an n-gram position index (spec.md §4.3 "Whole-text duplicate
// removal (post-merge)"): for each position, look up candidate repeat
// positions more than ScanRadius runes away, extend the match while the
// runes are equal, accept it when the normalized n-gram similarity of the
// two spans meets the threshold, and drop accepted duplicate ranges in
// reverse order so earlier removals don't invalidate later offsets.
func removeWholeTextDuplicates(text string, cfg model.DuplicateRemovalConfig) string {
	runes := []rune(text)
	if len(runes) < cfg.MinDuplicateLength*2 {
		return text
	}

	n := similarity.OptimalNGramSize(len(runes))
	idx := similarity.BuildNGramIndex(text, n)

	type span struct{ start, end int }
	var removals []span

	for i := 0; i+cfg.MinDuplicateLength <= len(runes); i++ {
		candidates := idx.CandidatePositions(i, cfg.ScanRadius)
		for _, j := range candidates {
			if j <= i {
				continue
			}
			matchLen := extendMatch(runes, i, j, cfg.MinDuplicateLength)
			if matchLen < cfg.MinDuplicateLength {
				continue
			}
			a := string(runes[i : i+matchLen])
			b := string(runes[j : j+matchLen])
			if similarity.NGramSimilarity(similarity.Normalize(a), similarity.Normalize(b), n) >= cfg.DuplicateSimilarityThresh {
				removals = append(removals, span{start: j, end: j + matchLen})
			}
		}
	}

	if len(removals) == 0 {
		return text
	}

	removals = mergeOverlappingSpans(removals)
	sort.Slice(removals, func(a, b int) bool { return removals[a].start > removals[b].start })

	for _, r := range removals {
		if r.start < 0 || r.end > len(runes) || r.start >= r.end {
			continue
		}
		runes = append(runes[:r.start], runes[r.end:]...)
	}
	return string(runes)
}

// extendMatch grows a candidate duplicate match starting at (i, j) while the
// runes agree, bounded by the shorter of the two remaining spans.
func extendMatch(runes []rune, i, j, minLen int) int {
	maxLen := len(runes) - j
	if len(runes)-i < maxLen {
		maxLen = len(runes) - i
	}
	n := 0
	for n < maxLen && runes[i+n] == runes[j+n] {
		n++
	}
	return n
}

func mergeOverlappingSpans(spans []struct{ start, end int }) []struct{ start, end int } {
	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	var out []struct{ start, end int }
	for _, s := range spans {
		if len(out) > 0 && s.start <= out[len(out)-1].end {
			if s.end > out[len(out)-1].end {
				out[len(out)-1].end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}
