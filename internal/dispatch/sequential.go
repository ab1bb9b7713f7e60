package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/alnah/go-transcript/internal/chunkplan"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
)

// maxSequentialChunkBytes is the per-chunk payload ceiling (spec.md §4.2.2
// "Per-chunk size guard: if chunk payload > 25 MB").
const maxSequentialChunkBytes = 25 * 1024 * 1024

// maxContextChars is the tail-of-previous-chunk window used to build
// previousContext (spec.md §4.2.2).
const maxContextChars = 200

// sentenceBoundary matches the characters spec.md §4.2.2 names as valid cut
// points for deriving previousContext: 。.!?！？ or a newline.
var sentenceBoundary = regexp.MustCompile(`[。.!?！？\n]`)

// SequentialContextStrategy dispatches chunks one at a time, threading a
// short tail-context from each chunk's output into the next chunk's request,
// for GPT-class models that benefit from cross-chunk continuity (spec.md
// §4.2.2). It shares the teacher's restructure.mapReduce shape of
// "one request informed by the previous response" but drives the remote
// transcription client instead of a chat-completion restructurer.
type SequentialContextStrategy struct {
	client remote.Transcriber
}

var _ Strategy = (*SequentialContextStrategy)(nil)

func NewSequentialContextStrategy(client remote.Transcriber) *SequentialContextStrategy {
	return &SequentialContextStrategy{client: client}
}

func (s *SequentialContextStrategy) Dispatch(ctx context.Context, chunks []chunkplan.Chunk, cfg model.Config, opts remote.Options, progress chan<- ProgressEvent) Outcome {
	total := len(chunks)
	var results []remote.TranscriptionResult
	var cancelled bool
	var runErr error
	var previousContext string

	modelOpts := remote.ModelOptions{Model: string(cfg.ID)}

	for i, chunk := range chunks {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		emit(progress, ProgressEvent{
			CurrentChunk: i + 1,
			TotalChunks:  total,
			Percentage:   float64(i) / float64(total) * 90,
			Operation:    "transcribing",
			Cancellable:  true,
		})

		if len(chunk.WAV) > maxSequentialChunkBytes {
			results = append(results, remote.TranscriptionResult{
				ChunkID:   chunk.ID,
				Text:      failurePlaceholder(chunk.ID, errChunkTooLarge),
				StartTime: chunk.StartTime,
				EndTime:   chunk.EndTime,
				Success:   false,
				Err:       errChunkTooLarge,
			})
			continue
		}

		chunkModelOpts := modelOpts
		chunkModelOpts.ContinuationPrompt = previousContext

		res, err := s.client.Transcribe(ctx, chunk.WAV, chunk.ID, chunk.StartTime, chunk.EndTime, opts, chunkModelOpts)
		if err != nil && isCancellation(err) {
			cancelled = true
			break
		}
		if err != nil {
			runErr = err
			res = remote.TranscriptionResult{
				ChunkID:   chunk.ID,
				Text:      failurePlaceholder(chunk.ID, err),
				StartTime: chunk.StartTime,
				EndTime:   chunk.EndTime,
				Success:   false,
				Err:       err,
			}
		} else {
			previousContext = deriveContext(res.Text)
		}
		results = append(results, res)
	}

	successCount := countSuccess(results)
	partial := cancelled || successCount < total

	if len(results) == 0 {
		if cancelled {
			return Outcome{Partial: true}
		}
		return Outcome{Err: runErr}
	}
	return Outcome{Results: results, Partial: partial}
}

// deriveContext takes up to maxContextChars from the tail of text, cut on a
// sentence boundary when one exists in that window, else the literal tail
// (spec.md §4.2.2).
func deriveContext(text string) string {
	runes := []rune(text)
	if len(runes) <= maxContextChars {
		return text
	}
	tail := string(runes[len(runes)-maxContextChars:])

	locs := sentenceBoundary.FindAllStringIndex(tail, -1)
	if len(locs) == 0 {
		return tail
	}
	// Prefer the content after the last boundary that still leaves a whole
	// sentence; fall back to literal tail if the boundary is at the very end.
	last := locs[len(locs)-1]
	if last[1] < len(tail) {
		return strings.TrimSpace(tail[last[1]:])
	}
	if len(locs) > 1 {
		prev := locs[len(locs)-2]
		return strings.TrimSpace(tail[prev[1]:])
	}
	return tail
}

var errChunkTooLarge = errChunkTooLargeErr{}

type errChunkTooLargeErr struct{}

func (errChunkTooLargeErr) Error() string { return "chunk payload exceeds 25MB limit" }
