package clean

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/alnah/go-transcript/internal/model"
)

// JapaneseTextValidator never mutates text; it only records issues so the
// pipeline caller can decide whether to fall back to a safer re-run
// (spec.md §4.4.4, §7 "PipelineFallbackTrigger"). Applies regardless of
// ctx.Language since the checks it runs (length, repetition, bracket
// balance, replacement characters) are language-agnostic except where
// noted.
type JapaneseTextValidator struct {
	cfg model.ValidationThresholds
}

var _ Cleaner = (*JapaneseTextValidator)(nil)

func NewJapaneseTextValidator(cfg model.ValidationThresholds) *JapaneseTextValidator {
	return &JapaneseTextValidator{cfg: cfg}
}

func (c *JapaneseTextValidator) Name() string { return "JapaneseTextValidator" }

var (
	incompleteParticleRe = regexp.MustCompile(`[はがをにでともへ]$`)
	mergedWordRe         = regexp.MustCompile(`[ぁ-んァ-ヶ一-龠]{20,}`)
	sentenceEndingRe     = regexp.MustCompile(`[。.!?！？」』]\s*$`)
)

func (c *JapaneseTextValidator) Clean(text string, ctx Context) Result {
	var issues []string
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)

	if len(runes) < c.cfg.MinLength {
		issues = append(issues, "text shorter than minimum expected length")
	}

	if incompleteParticleRe.MatchString(trimmed) {
		issues = append(issues, "text ends on a dangling particle")
	}

	if mergedWordRe.MatchString(trimmed) {
		issues = append(issues, "suspiciously long unbroken word run (possible merged segmentation)")
	}

	if ctx.AudioDuration > 0 {
		tolerance := c.cfg.CharsPerSecondTolerance
		if tolerance <= 0 {
			tolerance = 3.0
		}
		actual := float64(len(runes)) / ctx.AudioDuration
		if actual < (c.cfg.ExpectedCharsPerSecond-tolerance) || actual > (c.cfg.ExpectedCharsPerSecond+tolerance) {
			issues = append(issues, "character rate inconsistent with audio duration")
		}
	}

	if maxRuneRepeat(runes) > 20 {
		issues = append(issues, "excessive single-character repetition")
	}

	if len(runes) > 0 && !sentenceEndingRe.MatchString(trimmed) {
		issues = append(issues, "missing expected sentence ending")
	}

	if !bracketsBalanced(trimmed) {
		issues = append(issues, "unbalanced brackets")
	}

	if mix := scriptMixRatio(runes); mix > 0 && mix < 0.05 {
		issues = append(issues, "unexpectedly low script diversity")
	}

	if strings.ContainsRune(trimmed, '�') {
		issues = append(issues, "replacement character present (possible encoding issue)")
	}

	return Result{
		CleanedText:           text,
		Issues:                issues,
		HasSignificantChanges: false,
		Metadata:              makeMetadata(text, text, nil),
	}
}

func maxRuneRepeat(runes []rune) int {
	if len(runes) == 0 {
		return 0
	}
	max := 1
	cur := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			cur++
			if cur > max {
				max = cur
			}
		} else {
			cur = 1
		}
	}
	return max
}

var bracketPairs = map[rune]rune{
	'(': ')', '[': ']', '{': '}',
	'（': '）', '「': '」', '『': '』', '【': '】',
}

func bracketsBalanced(s string) bool {
	var stack []rune
	closers := make(map[rune]rune, len(bracketPairs))
	for open, close := range bracketPairs {
		closers[close] = open
	}
	for _, r := range s {
		if _, isOpen := bracketPairs[r]; isOpen {
			stack = append(stack, r)
			continue
		}
		if open, isClose := closers[r]; isClose {
			if len(stack) == 0 || stack[len(stack)-1] != open {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// scriptMixRatio reports the fraction of letter runes that are not CJK,
// used to flag transcripts that degenerate into a single repeated script.
func scriptMixRatio(runes []rune) float64 {
	var letters, nonCJK int
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.Is(unicode.Han, r) && !unicode.Is(unicode.Hiragana, r) && !unicode.Is(unicode.Katakana, r) {
			nonCJK++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(nonCJK) / float64(letters)
}
