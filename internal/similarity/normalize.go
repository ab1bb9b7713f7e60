// Package similarity implements the text-similarity kernel shared by the
// overlap merger and the cleaning pipeline: Unicode normalization, n-gram
// indexing, normalized n-gram similarity, and longest-common-substring
// search under positional constraints.
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds a string for fuzzy comparison: NFKC, lowercase,
// katakana→hiragana, and stripping of whitespace/punctuation/format-control
// characters. Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(s string) string {
	folded := norm.NFKC.String(s)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if isSkippable(r) {
			continue
		}
		b.WriteRune(foldKana(r))
	}
	return b.String()
}

// isSkippable reports whether r should be dropped during normalization:
// whitespace, punctuation, symbols, and Unicode format-control characters.
func isSkippable(r rune) bool {
	return unicode.IsSpace(r) ||
		unicode.IsPunct(r) ||
		unicode.Is(unicode.Cf, r) ||
		(unicode.IsSymbol(r) && r != '%')
}

// foldKana maps a full-width katakana rune to its hiragana equivalent.
// Katakana U+30A1-U+30F6 maps to hiragana U+3041-U+30F6-0x60 (offset 0x60),
// the standard Unicode block-parallel offset. Runes outside that range, and
// the handful of katakana-only punctuation/extension marks, are returned
// unchanged.
func foldKana(r rune) rune {
	if r >= 0x30A1 && r <= 0x30F6 {
		return r - 0x60
	}
	return r
}

// NormalizedIndexMap tracks how offsets in a normalized string map back to
// offsets in the original string it was derived from, so that matches found
// on normalized text can be translated back to original-text positions.
type NormalizedIndexMap struct {
	Normalized string
	// OrigOffsets[i] is the byte offset in the original string of the rune
	// that produced Normalized's rune starting at byte offset i.
	OrigOffsets []int
	// OrigLen is the length in bytes of the original string.
	OrigLen int
}

// BuildNormalizedIndexMap normalizes s and records, for each rune retained in
// the output, the byte offset of the source rune in s. This lets a match
// found in the normalized stream be translated back to the original string.
func BuildNormalizedIndexMap(s string) NormalizedIndexMap {
	folded := norm.NFKC.String(s)
	folded = strings.ToLower(folded)

	// NFKC can change byte lengths relative to s, so we normalize rune by rune
	// over the original string's rune boundaries to keep a stable offset
	// mapping; this sacrifices some of NFKC's cross-rune composition but NFKC
	// composition/decomposition of already-precomposed Latin/CJK text in
	// practice operates rune-locally for the hallucination patterns this
	// kernel targets.
	var b strings.Builder
	var offsets []int
	for i, r := range s {
		nr := unicode.ToLower(r)
		if isSkippable(nr) {
			continue
		}
		b.WriteRune(foldKana(nr))
		offsets = append(offsets, i)
	}

	return NormalizedIndexMap{
		Normalized:  b.String(),
		OrigOffsets: offsets,
		OrigLen:     len(s),
	}
}

// OrigOffsetAt returns the original-string byte offset corresponding to byte
// offset normIdx in the normalized string. If normIdx is at or past the end
// of the normalized string, OrigLen is returned.
func (m NormalizedIndexMap) OrigOffsetAt(normIdx int) int {
	// Translate a byte offset in m.Normalized to an index into OrigOffsets by
	// counting runes, since OrigOffsets is indexed per retained rune, not per
	// byte.
	if normIdx <= 0 {
		if len(m.OrigOffsets) == 0 {
			return m.OrigLen
		}
		return m.OrigOffsets[0]
	}
	runeIdx := 0
	for i := range m.Normalized {
		if i >= normIdx {
			break
		}
		runeIdx++
	}
	if runeIdx >= len(m.OrigOffsets) {
		return m.OrigLen
	}
	return m.OrigOffsets[runeIdx]
}

// IsSkippableRune reports whether r is whitespace, punctuation, or a
// format-control character — the class of characters a match can skip past
// in the original text after trimming a normalized-match boundary.
func IsSkippableRune(r rune) bool {
	return isSkippable(r)
}
