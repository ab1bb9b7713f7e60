package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alnah/go-transcript/internal/chunkplan"
	"github.com/alnah/go-transcript/internal/model"
	"github.com/alnah/go-transcript/internal/remote"
)

// ParallelBatchStrategy dispatches fixed-size batches of chunks concurrently,
// for Whisper-class models that have no cross-chunk context dependency
// (spec.md §4.2.1). It is grounded on the teacher's transcribe.TranscribeAll,
// generalized from a single flat errgroup+semaphore fan-out into batches
// separated by a cancellation-aware rate-limit sleep.
type ParallelBatchStrategy struct {
	client remote.Transcriber
}

var _ Strategy = (*ParallelBatchStrategy)(nil)

func NewParallelBatchStrategy(client remote.Transcriber) *ParallelBatchStrategy {
	return &ParallelBatchStrategy{client: client}
}

func (s *ParallelBatchStrategy) Dispatch(ctx context.Context, chunks []chunkplan.Chunk, cfg model.Config, opts remote.Options, progress chan<- ProgressEvent) Outcome {
	maxConcurrency := cfg.MaxConcurrentChunks
	if maxConcurrency < 1 {
		maxConcurrency = 2
	}

	modelOpts := remote.ModelOptions{Model: string(cfg.ID), WantTimestamps: cfg.ID.IsTimestamped()}

	results := make([]remote.TranscriptionResult, len(chunks))
	var cancelled bool
	var runErr error
	limiter := newBatchLimiter(cfg.RateLimitDelayMs)

	total := len(chunks)
	for batchStart := 0; batchStart < total; batchStart += maxConcurrency {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		batchEnd := min(batchStart+maxConcurrency, total)
		emit(progress, ProgressEvent{
			CurrentChunk: batchStart + 1,
			TotalChunks:  total,
			Percentage:   float64(batchStart) / float64(total) * 90,
			Operation:    "transcribing",
			Cancellable:  true,
		})

		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			i := i
			chunk := chunks[i]
			g.Go(func() error {
				res, err := s.client.Transcribe(gctx, chunk.WAV, chunk.ID, chunk.StartTime, chunk.EndTime, opts, modelOpts)
				if err != nil && isCancellation(err) {
					return err
				}
				if err != nil {
					res = remote.TranscriptionResult{
						ChunkID:   chunk.ID,
						Text:      failurePlaceholder(chunk.ID, err),
						StartTime: chunk.StartTime,
						EndTime:   chunk.EndTime,
						Success:   false,
						Err:       err,
					}
				}
				results[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if isCancellation(err) {
				cancelled = true
				break
			}
			// Batch-wide non-cancellation error: fill this batch with
			// failure placeholders and continue (spec.md §4.2.1).
			for i := batchStart; i < batchEnd; i++ {
				if results[i].ChunkID == 0 && results[i].Text == "" {
					results[i] = remote.TranscriptionResult{
						ChunkID:   chunks[i].ID,
						Text:      failurePlaceholder(chunks[i].ID, err),
						StartTime: chunks[i].StartTime,
						EndTime:   chunks[i].EndTime,
						Success:   false,
						Err:       err,
					}
				}
			}
			runErr = err
		}

		if batchEnd < total && limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				cancelled = true
				break
			}
		}
	}

	collected := collectNonEmpty(results)
	successCount := countSuccess(collected)
	partial := cancelled || successCount < total

	if len(collected) == 0 {
		if cancelled {
			return Outcome{Partial: true}
		}
		return Outcome{Err: runErr}
	}

	return Outcome{Results: collected, Partial: partial}
}

func emit(progress chan<- ProgressEvent, ev ProgressEvent) {
	if progress == nil {
		return
	}
	select {
	case progress <- ev:
	default:
	}
}

// newBatchLimiter builds a rate.Limiter that allows one event every
// delayMs, used to space inter-batch dispatch in a cancellation-aware way
// (spec.md §5 "All sleeps are cancellation-aware"). Returns nil when no
// delay is configured, so the caller can skip waiting entirely.
func newBatchLimiter(delayMs int) *rate.Limiter {
	if delayMs <= 0 {
		return nil
	}
	interval := time.Duration(delayMs) * time.Millisecond
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow() // consume the initial burst token so the first Wait actually waits
	return lim
}

func collectNonEmpty(results []remote.TranscriptionResult) []remote.TranscriptionResult {
	out := make([]remote.TranscriptionResult, 0, len(results))
	for _, r := range results {
		if r.Text != "" || r.Success {
			out = append(out, r)
		}
	}
	return out
}

func countSuccess(results []remote.TranscriptionResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
