package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-transcript/internal/config"
	"github.com/alnah/go-transcript/internal/lang"
	"github.com/alnah/go-transcript/internal/template"
)

// StructureCmd creates the structure command (restructure an existing transcript).
// The env parameter provides injectable dependencies for testing.
func StructureCmd(env *Env) *cobra.Command {
	var (
		output     string
		tmpl       string
		outputLang string
	)

	cmd := &cobra.Command{
		Use:   "structure <transcript-file>",
		Short: "Restructure an existing transcript",
		Long: `Restructure an existing transcript file using a template.

This command takes a raw transcript (typically generated without --template)
and restructures it into organized markdown using an LLM.`,
		Example: `  transcript structure meeting_raw.md -t meeting -o meeting.md
  transcript structure notes.md -t brainstorm
  transcript structure lecture.md -t lecture -T fr  # Translate to French`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStructure(cmd, env, args[0], output, tmpl, outputLang)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>_structured.md)")
	cmd.Flags().StringVarP(&tmpl, "template", "t", "", "Restructure template: brainstorm, meeting, lecture, notes (required)")
	cmd.Flags().StringVarP(&outputLang, "translate", "T", "", "Translate output to language (ISO 639-1 code, e.g., en, fr)")

	// Error is ignored: MarkFlagRequired only fails if flag doesn't exist,
	// which is a programming error caught at development time.
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

// deriveStructuredOutputPath converts an input path to a structured output path.
// Example: "meeting.md" -> "meeting_structured.md"
func deriveStructuredOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	// Remove _raw suffix if present to avoid meeting_raw_structured.md
	base = strings.TrimSuffix(base, "_raw")
	return base + "_structured" + ext
}

// runStructure executes the structure command.
func runStructure(cmd *cobra.Command, env *Env, inputPath, output, tmplName, outputLangCode string) error {
	ctx := cmd.Context()

	// 1. File exists
	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	// 2. Load config for output-dir
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	// 3. Resolve output path (derive default from input basename only)
	defaultOutput := deriveStructuredOutputPath(filepath.Base(inputPath))
	output = config.ResolveOutputPath(output, cfg.OutputDir, defaultOutput)

	// 4. Template validation
	tmpl, err := template.ParseName(tmplName)
	if err != nil {
		return err
	}

	// 5. Language validation
	outputLang, err := lang.Parse(outputLangCode)
	if err != nil {
		return err
	}

	// === READ INPUT ===

	fmt.Fprintf(env.Stderr, "Reading %s...\n", inputPath)

	// #nosec G304 -- inputPath is user-provided, validated above
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	transcript := string(content)
	if strings.TrimSpace(transcript) == "" {
		return fmt.Errorf("input file is empty: %s", inputPath)
	}

	// === RESTRUCTURE ===

	fmt.Fprintf(env.Stderr, "Restructuring with template '%s'...\n", tmpl)

	result, err := restructureContent(ctx, env, transcript, RestructureOptions{
		Template:   tmpl,
		OutputLang: outputLang,
		OnProgress: defaultProgressCallback(env.Stderr),
	})
	if err != nil {
		return err
	}

	// === WRITE OUTPUT ===

	if err := writeFileAtomic(output, result); err != nil {
		if errors.Is(err, ErrOutputExists) {
			return err
		}
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}
