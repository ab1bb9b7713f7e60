package clean

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/similarity"
)

// audioVisualMetaRe strips unconditional meta brackets like "[music]",
// "(applause)" regardless of language (spec.md §4.4.1 "audio/visual meta
// brackets (unconditional)").
var audioVisualMetaRe = regexp.MustCompile(`(?i)[\[(（【]\s*(music|applause|laughter|silence|inaudible|音楽|拍手|笑|bgm)\s*[\])）】]`)

// BaseHallucinationCleaner removes known hallucinated filler phrases (outro
// cards, subscribe nags, meta brackets) and collapses several classes of
// degenerate repetition, iterating until the text stabilizes (spec.md
// §4.4.1). It is grounded on the teacher's restructure pipeline's
// "apply, measure, repeat" shape and internal/similarity's char-inclusion
// and n-gram kernels.
type BaseHallucinationCleaner struct {
	strategy model.CleaningStrategy
}

var _ Cleaner = (*BaseHallucinationCleaner)(nil)

func NewBaseHallucinationCleaner(strategy model.CleaningStrategy) *BaseHallucinationCleaner {
	return &BaseHallucinationCleaner{strategy: strategy}
}

func (c *BaseHallucinationCleaner) Name() string { return "BaseHallucinationCleaner" }

func (c *BaseHallucinationCleaner) Clean(text string, ctx Context) Result {
	original := text
	current := audioVisualMetaRe.ReplaceAllString(text, "")

	var matched []string
	var issues []string

	patterns := languagePatterns(c.strategy.HallucinationPatterns, ctx.Language)
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			issues = append(issues, fmt.Sprintf("invalid hallucination pattern %q: %v", p, err))
			continue
		}
		before := current
		isRepetition := strings.Contains(p, "{") && strings.Contains(p, ",}")
		maxReduction := c.strategy.Safety.PhrasePatternMaxReduction
		if isRepetition {
			maxReduction = c.strategy.Safety.RepetitionPatternMaxReduction
		}
		candidate := re.ReplaceAllString(current, "")
		if reductionRatio(len([]rune(before)), len([]rune(candidate))) > maxReduction {
			continue
		}
		if candidate != before {
			matched = append(matched, p)
			current = candidate
		}
	}

	for iter := 0; iter < maxIterations(c.strategy.Safety.MaxCleaningIterations); iter++ {
		before := current
		current = collapseMediumRepetitions(current, c.strategy.RepetitionThresholds)
		current = collapseShortCharRepeats(current, c.strategy.ShortCharRepeat)
		current = collapseEnumerations(current, c.strategy.Enumeration)
		current = collapseSimilarSentences(current, c.strategy.SentenceCollapsing)
		current = dropRepeatedParagraphs(current, c.strategy.ParagraphRepeat)

		if current == before {
			break
		}
		if reductionRatio(len([]rune(before)), len([]rune(current))) > c.strategy.Safety.IterationReductionLimit {
			current = before
			issues = append(issues, "iteration reduction limit exceeded; reverted")
			break
		}
	}

	reduction := reductionRatio(len([]rune(original)), len([]rune(current)))
	if reduction > c.strategy.Safety.SingleCleanerMaxReduction {
		issues = append(issues, "excessive text removal by BaseHallucinationCleaner")
		current = original
	}
	if len(matched) > c.strategy.Safety.MaxPatternsBeforeWarning {
		issues = append(issues, fmt.Sprintf("warning: %d hallucination patterns matched", len(matched)))
	}

	return Result{
		CleanedText:           current,
		Issues:                issues,
		HasSignificantChanges: current != original,
		Metadata:              makeMetadata(original, current, matched),
	}
}

func maxIterations(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

// languagePatterns selects the hallucination pattern set for ctx.Language;
// "auto" (or empty) unions Japanese+English+Chinese with Japanese first
// (spec.md §4.4.1 "language auto unions JP+EN+ZH with JP precedence").
func languagePatterns(hp model.HallucinationPatterns, language string) []string {
	switch strings.ToLower(language) {
	case "ja", "japanese":
		return hp.Japanese
	case "en", "english":
		return hp.English
	case "zh", "chinese":
		return hp.Chinese
	case "ko", "korean":
		return hp.Korean
	default:
		var all []string
		all = append(all, hp.Japanese...)
		all = append(all, hp.English...)
		all = append(all, hp.Chinese...)
		return all
	}
}

// collapseMediumRepetitions applies spec.md §4.4.1's
// `/(.{min,max}?)\1{threshold-1,}/g` pattern per configured range, keeping
// one copy of the repeated unit.
func collapseMediumRepetitions(text string, thresholds []model.RepetitionThreshold) string {
	for _, th := range thresholds {
		text = collapseRepeatedUnit(text, th.Min, th.Max, th.Threshold)
	}
	return text
}

// collapseRepeatedUnit finds runs where a substring of length in [min,max]
// repeats at least threshold times consecutively, and keeps a single copy.
// Go's regexp (RE2) has no backreferences, so this is a direct manual
// analogue of the teacher's JS-regex-based cleaners.
func collapseRepeatedUnit(text string, minLen, maxLen, threshold int) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	var b []rune
	i := 0
	for i < len(runes) {
		collapsedHere := false
		for unitLen := minLen; unitLen <= maxLen && i+unitLen <= len(runes); unitLen++ {
			unit := runes[i : i+unitLen]
			count := 1
			j := i + unitLen
			for j+unitLen <= len(runes) && runesEqual(runes[j:j+unitLen], unit) {
				count++
				j += unitLen
			}
			if count >= threshold {
				b = append(b, unit...)
				i = j
				collapsedHere = true
				break
			}
		}
		if !collapsedHere {
			b = append(b, runes[i])
			i++
		}
	}
	return string(b)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// collapseShortCharRepeats reduces repeated 1-4 rune "words" (spec.md
// §4.4.1 "Short-character repetition"). A run of an essential particle is
// always kept in full; any other run at or above the threshold, common
// expressions included, is cut to KeepRatio of its length (at least one
// copy). There is no whitelist mode setting.
func collapseShortCharRepeats(text string, cfg model.ShortCharRepeat) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	threshold := cfg.BaseThreshold
	if cfg.DynamicThresholdDivisor > 0 {
		threshold += int(float64(len([]rune(text))/cfg.DynamicThresholdDivisor) * cfg.LengthFactor)
	}
	if threshold <= 0 {
		threshold = 6
	}

	var out []string
	i := 0
	for i < len(words) {
		w := words[i]
		runeLen := len([]rune(w))
		if runeLen < 1 || runeLen > 4 {
			out = append(out, w)
			i++
			continue
		}

		count := 1
		j := i + 1
		for j < len(words) && words[j] == w {
			count++
			j++
		}

		if count < threshold {
			out = append(out, words[i:j]...)
			i = j
			continue
		}

		if cfg.EssentialParticles[w] {
			out = append(out, words[i:j]...) // always kept in full
			i = j
			continue
		}

		keep := count
		if cfg.CommonExpressions[w] {
			keep = minInt(count, keepCount(count, cfg.KeepRatio))
		} else {
			keep = keepCount(count, cfg.KeepRatio)
		}
		if keep < 1 {
			keep = 1
		}
		for k := 0; k < keep; k++ {
			out = append(out, w)
		}
		i = j
	}
	return strings.Join(out, " ")
}

func keepCount(count int, ratio float64) int {
	if ratio <= 0 {
		ratio = 0.34
	}
	n := int(float64(count) * ratio)
	if n < 1 {
		n = 1
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// collapseEnumerations detects a comma-separated list pattern (2+ elements)
// repeating at least MinRepeatCount times, under NFKC-normalized equality,
// and emits one cycle (spec.md §4.4.1 "Enumeration collapsing").
func collapseEnumerations(text string, cfg model.EnumerationDetection) string {
	if !cfg.Enabled {
		return text
	}
	parts := strings.Split(text, ",")
	if len(parts) < cfg.MinRepeatCount*2 {
		return text
	}

	for cycleLen := 2; cycleLen*2 <= len(parts); cycleLen++ {
		cycle := normalizeParts(parts[:cycleLen])
		repeats := 1
		for i := cycleLen; i+cycleLen <= len(parts); i += cycleLen {
			if !equalParts(normalizeParts(parts[i:i+cycleLen]), cycle) {
				break
			}
			repeats++
		}
		if repeats >= cfg.MinRepeatCount {
			kept := strings.Join(parts[:cycleLen], ",")
			rest := strings.Join(parts[repeats*cycleLen:], ",")
			if rest != "" {
				return kept + "," + rest
			}
			return kept
		}
	}
	return text
}

func normalizeParts(parts []string) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = similarity.Normalize(p)
	}
	return out
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// collapseSimilarSentences splits on sentence-end punctuation and collapses
// runs of near-identical consecutive sentences beyond SentenceRepetition
// copies (spec.md §4.4.1 "Sentence collapsing").
func collapseSimilarSentences(text string, cfg model.SentenceCollapsing) string {
	sentences := splitSentences(text)
	if len(sentences) < 2 {
		return text
	}

	var out []string
	i := 0
	for i < len(sentences) {
		s := sentences[i]
		if len([]rune(s)) < cfg.MinLength {
			out = append(out, s)
			i++
			continue
		}
		run := []string{s}
		j := i + 1
		for j < len(sentences) && len([]rune(sentences[j])) >= cfg.MinLength &&
			similarity.CharInclusionSimilarity(similarity.Normalize(s), similarity.Normalize(sentences[j])) >= cfg.SimilarityThreshold {
			run = append(run, sentences[j])
			j++
		}
		if len(run) > cfg.SentenceRepetition {
			out = append(out, run[0])
		} else {
			out = append(out, run...)
		}
		i = j
	}
	return strings.Join(out, "")
}

var sentenceSplitRe = regexp.MustCompile(`([^。.!?！？\n]*[。.!?！？\n]+)`)

func splitSentences(text string) []string {
	matches := sentenceSplitRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}
	consumed := strings.Join(matches, "")
	if len(consumed) < len(text) {
		matches = append(matches, text[len(consumed):])
	}
	return matches
}

// dropRepeatedParagraphs fingerprints the first HeadChars of each sentence
// (lowercased, whitespace-stripped) and drops sentences whose fingerprint
// already appeared (spec.md §4.4.1 "Paragraph repeat guard"). Per
// SPEC_FULL.md's open-question decision, punctuation is also stripped from
// the fingerprint so repeats differing only in trailing punctuation still
// collapse.
func dropRepeatedParagraphs(text string, cfg model.ParagraphRepeatGuard) string {
	headChars := cfg.HeadChars
	if headChars <= 0 {
		headChars = 15
	}
	sentences := splitSentences(text)
	seen := make(map[string]bool, len(sentences))
	var out []string
	for _, s := range sentences {
		fp := fingerprint(s, headChars)
		if fp == "" {
			out = append(out, s)
			continue
		}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, s)
	}
	return strings.Join(out, "")
}

func fingerprint(s string, headChars int) string {
	norm := similarity.Normalize(s)
	runes := []rune(norm)
	if len(runes) == 0 {
		return ""
	}
	if len(runes) > headChars {
		runes = runes[:headChars]
	}
	return string(runes)
}
