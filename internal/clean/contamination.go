package clean

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alnah/go-transcript/internal/model"
)

// PromptContaminationCleaner strips leakage of the continuation prompt back
// into a GPT-class model's own transcription output: complete XML-ish tags,
// leading instruction snippets, and "Context: ..." style patterns (spec.md
// §4.4.2). Only relevant to sequential-context models; the pipeline
// assembler omits it for Whisper-class strategies.
type PromptContaminationCleaner struct {
	strategy model.CleaningStrategy
}

var _ Cleaner = (*PromptContaminationCleaner)(nil)

func NewPromptContaminationCleaner(strategy model.CleaningStrategy) *PromptContaminationCleaner {
	return &PromptContaminationCleaner{strategy: strategy}
}

func (c *PromptContaminationCleaner) Name() string { return "PromptContaminationCleaner" }

// truncatedPromptLengths are the prefix lengths spec.md §4.4.2's aggressive
// mode checks for a prompt cut off mid-response (e.g. a continuation
// prompt that got truncated by the model's own output token limit).
var truncatedPromptLengths = []int{10, 15, 20, 30}

func (c *PromptContaminationCleaner) Clean(text string, ctx Context) Result {
	original := text
	current := text
	var matched []string
	var issues []string

	// Priority-tiered XML tag groups: complete tags first, then
	// progressively looser matches (spec.md §4.4.2 "Priority groups").
	// Any single pattern whose own reduction exceeds singlePatternMaxReduction
	// is skipped rather than applied.
	for _, group := range c.strategy.ContaminationPatterns {
		for _, p := range group.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				issues = append(issues, "invalid contamination pattern: "+p)
				continue
			}
			candidate := re.ReplaceAllString(current, "")
			if candidate == current {
				continue
			}
			if reductionRatio(len([]rune(current)), len([]rune(candidate))) > c.strategy.Safety.SinglePatternMaxReduction {
				issues = append(issues, fmt.Sprintf("skipped %s pattern %q: exceeds singlePatternMaxReduction", group.Name, p))
				continue
			}
			current = candidate
			matched = append(matched, group.Name+":"+p)
		}
	}

	for _, snippet := range c.strategy.LeadingInstructionSnippets {
		if strings.HasPrefix(strings.TrimSpace(current), snippet) {
			current = strings.TrimPrefix(strings.TrimSpace(current), snippet)
			matched = append(matched, "leadingInstruction:"+snippet)
		}
	}

	for _, p := range c.strategy.ContextPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			issues = append(issues, "invalid context pattern: "+p)
			continue
		}
		if re.MatchString(current) {
			current = re.ReplaceAllString(current, "")
			matched = append(matched, "context:"+p)
		}
	}

	if c.strategy.AggressiveContamination {
		for _, snippet := range c.strategy.LeadingInstructionSnippets {
			if snippet == "" {
				continue
			}
			// Embedded prompts anywhere, not just at text start.
			if strings.Contains(current, snippet) {
				current = strings.ReplaceAll(current, snippet, "")
				matched = append(matched, "embeddedPrompt:"+snippet)
			}
			current, matched = stripTruncatedPromptPrefix(current, snippet, matched)
		}
	}

	// Deduplicate paragraphs unconditionally (spec.md §4.4.2 "Deduplicates
	// paragraphs ... after all removals").
	current = dedupParagraphs(current)
	current = collapseBlankLines(current)
	current = strings.TrimSpace(current)

	reduction := reductionRatio(len([]rune(original)), len([]rune(current)))
	if reduction > c.strategy.Safety.WarningThreshold {
		issues = append(issues, fmt.Sprintf("warning: contamination cleaner reduced text by %.0f%%", reduction*100))
	}
	if reduction > c.strategy.Safety.EmergencyFallbackThreshold {
		issues = append(issues, "extreme text reduction; reverted to pre-cleaner text")
		current = original
	}

	return Result{
		CleanedText:           current,
		Issues:                issues,
		HasSignificantChanges: current != original,
		Metadata:              makeMetadata(original, current, matched),
	}
}

// stripTruncatedPromptPrefix checks, for each length in truncatedPromptLengths,
// whether text starts with exactly that many runes of snippet — catching a
// continuation prompt truncated mid-word by the model's output limit — and
// strips the match if so (spec.md §4.4.2 "truncated-prompt heuristics").
func stripTruncatedPromptPrefix(text, snippet string, matched []string) (string, []string) {
	snippetRunes := []rune(snippet)
	trimmed := strings.TrimSpace(text)
	for _, n := range truncatedPromptLengths {
		if n <= 0 || n > len(snippetRunes) {
			continue
		}
		prefix := string(snippetRunes[:n])
		if strings.HasPrefix(trimmed, prefix) {
			trimmed = strings.TrimPrefix(trimmed, prefix)
			matched = append(matched, fmt.Sprintf("truncatedPrompt:%d:%s", n, prefix))
			return trimmed, matched
		}
	}
	return text, matched
}

// dedupParagraphs drops exact-duplicate paragraphs, by trimmed content
// equality, after all other removals (spec.md §4.4.2).
func dedupParagraphs(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	seen := make(map[string]bool, len(paragraphs))
	var out []string
	for _, p := range paragraphs {
		key := strings.TrimSpace(p)
		if key == "" {
			out = append(out, p)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return strings.Join(out, "\n\n")
}

// blankLineRunRe matches 3 or more consecutive newlines (spec.md §4.4.2
// "collapses 3+ newlines to 2").
var blankLineRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(text string) string {
	return blankLineRunRe.ReplaceAllString(text, "\n\n")
}
