// Package dispatch runs a chunk sequence through a remote transcription
// collaborator under a model-specific concurrency policy (spec.md §4.2),
// adapting the teacher's transcribe.TranscribeAll batch-join shape into two
// strategy variants sharing one partial-result contract.
package dispatch

import (
	"context"
	"fmt"

	"github.com/alnah/go-transcript/internal/chunkplan"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
)

// ProgressEvent reports dispatch progress to whatever consumer the caller
// wires in (spec.md §9 "Progress callbacks → replace with a channel/stream").
type ProgressEvent struct {
	CurrentChunk int
	TotalChunks  int
	Percentage   float64
	Operation    string
	Cancellable  bool
}

// Outcome is the strategy's raw output before merging: the per-chunk results
// in chunk order (the merger still sorts them by startTime) plus whether the
// run is partial.
type Outcome struct {
	Results []remote.TranscriptionResult
	Partial bool
	// Err is set when zero results were produced and the run was not
	// cancelled (spec.md §4.2.3 "re-raise the original error").
	Err error
}

// Strategy is the shared contract both dispatch variants implement.
type Strategy interface {
	Dispatch(ctx context.Context, chunks []chunkplan.Chunk, cfg model.Config, opts remote.Options, progress chan<- ProgressEvent) Outcome
}

// NewStrategy selects the dispatch variant for a model id (spec.md §9
// "tagged-variant strategy ... keyed by enum").
func NewStrategy(id model.ID, client remote.Transcriber) Strategy {
	if id.IsSequential() {
		return NewSequentialContextStrategy(client)
	}
	return NewParallelBatchStrategy(client)
}

// failurePlaceholder is the human-readable text substituted for a chunk that
// could not be transcribed (spec.md §4.2 "a human-readable error placeholder
// text (localized), not an exception").
func failurePlaceholder(chunkID int, err error) string {
	return fmt.Sprintf("[chunk %d failed: %v]", chunkID, err)
}

func isCancellation(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded
}
