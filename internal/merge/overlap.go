package merge

import (
	"strings"
	"unicode"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/similarity"
)

// trimOverlap removes the portion of cur that duplicates the tail of acc,
// trying four progressively looser strategies in order (spec.md §4.3
// "Overlap removal between consecutive results"). It returns the trimmed
// text and the connector to join it with (empty string when the caller
// should fall back to the paragraph separator).
func trimOverlap(acc, cur string, cfg model.MergingConfig, overlapDuration float64) (string, string) {
	tailWindow := maxInt(500, cfg.OverlapDetection.MaxOverlapLength)
	headWindow := maxInt(500, cfg.OverlapDetection.SearchRangeInNext)
	tail := lastRunes(acc, tailWindow)
	head := firstRunes(cur, headWindow)

	minMatch := maxInt(20, cfg.MinMatchLength)

	// Layer 1: exact LCS on raw text.
	if trimmed, ok := exactLCSTrim(tail, head, cur, minMatch); ok {
		return trimmed, connectorFor(acc, trimmed)
	}

	// Layer 2: normalized-exact LCS with index-map translation back to the
	// original current text.
	if trimmed, ok := normalizedLCSTrim(tail, head, cur, minMatch); ok {
		return trimmed, connectorFor(acc, trimmed)
	}

	// Layer 3: soft-threshold retry with a shorter minimum but the same
	// positional bounds, to catch short prompt-faithful overlaps.
	softMin := maxInt(10, minMatch/2)
	if softMin < minMatch {
		if trimmed, ok := exactLCSTrim(tail, head, cur, softMin); ok {
			return trimmed, connectorFor(acc, trimmed)
		}
		if trimmed, ok := normalizedLCSTrim(tail, head, cur, softMin); ok {
			return trimmed, connectorFor(acc, trimmed)
		}
	}

	// Layer 4: n-gram sliding window.
	if trimmed, ok := ngramSlideTrim(acc, cur, cfg); ok {
		return trimmed, connectorFor(acc, trimmed)
	}

	// Layer 5: no match.
	return cur, ""
}

func exactLCSTrim(tail, head, cur string, minMatch int) (string, bool) {
	tailRuneLen := len([]rune(tail))
	maxLeadingGap := maxInt(60, len([]rune(head))/4)
	maxTrailingGap := maxInt(200, int(float64(tailRuneLen)*0.8))

	m := similarity.LongestCommonSubstring(tail, head, minMatch, maxLeadingGap, maxTrailingGap)
	if !m.Found() {
		return "", false
	}
	return afterMatchInCurrent(cur, head, m.HeadEnd), true
}

func normalizedLCSTrim(tail, head, cur string, minMatch int) (string, bool) {
	normTail := similarity.Normalize(tail)
	normHead := similarity.Normalize(head)
	headMap := similarity.BuildNormalizedIndexMap(head)

	maxLeadingGap := maxInt(60, len([]rune(normHead))/4)
	maxTrailingGap := maxInt(200, int(float64(len([]rune(normTail)))*0.8))

	m := similarity.LongestCommonSubstring(normTail, normHead, minMatch, maxLeadingGap, maxTrailingGap)
	if !m.Found() {
		return "", false
	}

	normByteOffset := runeIndexToByteOffset(normHead, m.HeadEnd)
	origByteOffset := headMap.OrigOffsetAt(normByteOffset)
	if origByteOffset < 0 || origByteOffset > len(head) {
		return "", false
	}

	// Advance past any skippable (whitespace/punctuation) runs immediately
	// following the match in the original current text.
	rest := cur[minIntClamp(origByteOffset, len(cur)):]
	rest = skipLeadingSkippable(rest)
	return strings.TrimSpace(rest), true
}

// afterMatchInCurrent trims cur to whatever follows the matched span in
// head, translating the head-relative match end (a rune offset within head)
// into a cur-relative byte offset. head is always a literal byte prefix of
// cur, so the two share offsets over that prefix.
func afterMatchInCurrent(cur, head string, headEndRuneIdx int) string {
	byteOffset := runeIndexToByteOffset(head, headEndRuneIdx)
	if byteOffset > len(cur) {
		byteOffset = len(cur)
	}
	return strings.TrimSpace(cur[byteOffset:])
}

func runeIndexToByteOffset(s string, runeIdx int) int {
	if runeIdx <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runeIdx {
			return i
		}
		n++
	}
	return len(s)
}

func skipLeadingSkippable(s string) string {
	for i, r := range s {
		if !similarity.IsSkippableRune(r) {
			return s[i:]
		}
	}
	return ""
}

func minIntClamp(v, max int) int {
	if v > max {
		return max
	}
	if v < 0 {
		return 0
	}
	return v
}

// ngramSlideTrim implements spec.md §4.3 layer 4: slide a shrinking
// candidate window from the tail of acc across the head of cur, scoring
// with normalized n-gram similarity, and trim past the last accepted match.
func ngramSlideTrim(acc, cur string, cfg model.MergingConfig) (string, bool) {
	od := cfg.OverlapDetection
	accRunes := []rune(acc)
	curRunes := []rune(cur)
	searchRange := minInt(od.SearchRangeInNext, len(curRunes))
	if searchRange <= 0 {
		return "", false
	}

	n := 3
	if od.MaxOverlapLength > 60 {
		n = 5
	}

	var lastMatchEnd int = -1
	for candidateLen := od.MaxOverlapLength; candidateLen >= od.MinOverlapLength; candidateLen -= maxInt(1, od.CandidateStepSize) {
		if candidateLen <= 0 || candidateLen > len(accRunes) {
			continue
		}
		candidate := string(accRunes[len(accRunes)-candidateLen:])

		normCandidate := similarity.Normalize(candidate)
		step := maxInt(1, int(float64(candidateLen)*od.MatchSkipRatio))
		for start := 0; start+candidateLen <= searchRange; start += step {
			window := string(curRunes[start : start+candidateLen])
			sim := similarity.NGramSimilarity(normCandidate, similarity.Normalize(window), n)
			if sim >= od.SimilarityThreshold {
				end := start + candidateLen
				if end > lastMatchEnd {
					lastMatchEnd = end
				}
			}
		}
		if lastMatchEnd >= 0 {
			break
		}
	}

	if lastMatchEnd < 0 {
		return "", false
	}
	return strings.TrimSpace(string(curRunes[lastMatchEnd:])), true
}

// connectorFor picks the join string spec.md §4.3 "Connector" names: empty
// when acc already ends in whitespace, a single space between ASCII-word
// boundaries, otherwise empty.
func connectorFor(acc, trimmed string) string {
	if trimmed == "" {
		return ""
	}
	accRunes := []rune(acc)
	if len(accRunes) == 0 {
		return ""
	}
	if unicode.IsSpace(accRunes[len(accRunes)-1]) {
		return ""
	}
	trimmedRunes := []rune(trimmed)
	if isASCIIWordChar(accRunes[len(accRunes)-1]) && isASCIIWordChar(trimmedRunes[0]) {
		return " "
	}
	return ""
}

func isASCIIWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
