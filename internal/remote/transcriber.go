// Package remote implements the "remote speech-to-text client" external
// collaborator (spec.md §6) against the OpenAI transcription API, adapting
// the teacher's retry/classification logic in internal/transcribe to the
// sashabaranov/go-openai SDK instead of a hand-rolled multipart upload.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-transcript/internal/apierr"
	"github.com/alnah/go-transcript/internal/obs"
)

// Segment is one timed span of a transcription result (spec.md §3
// "TranscriptionResult.segments").
type Segment struct {
	Text  string
	Start float64
	End   float64
}

// TranscriptionResult is the normalized per-chunk output (spec.md §3).
type TranscriptionResult struct {
	ChunkID    int
	Text       string
	StartTime  float64
	EndTime    float64
	Success    bool
	Err        error
	Segments   []Segment
	Confidence float64
	Language   string
}

// Options carries request-shaping parameters independent of the model
// (spec.md §6 "TranscriptionOptions").
type Options struct {
	Language string
	Prompt   string
}

// ModelOptions carries per-model request shaping (e.g. whether to ask for
// segment timestamps).
type ModelOptions struct {
	Model              string
	WantTimestamps     bool
	ContinuationPrompt string
}

// Transcriber is the remote collaborator interface the dispatch strategies
// depend on; OpenAIClient is the production default.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, chunkID int, startTime, endTime float64, opts Options, modelOpts ModelOptions) (TranscriptionResult, error)
	TestConnection(ctx context.Context) bool
}

var _ Transcriber = (*OpenAIClient)(nil)

// OpenAIClient transcribes audio chunks via the OpenAI REST API.
type OpenAIClient struct {
	client     *openai.Client
	apiKey     string
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// ClientOption configures an OpenAIClient.
type ClientOption func(*OpenAIClient)

// WithRetry overrides the default retry/backoff parameters.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) ClientOption {
	return func(c *OpenAIClient) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithBaseURL points the client at a proxy or test double instead of the
// production OpenAI endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *OpenAIClient) { c.baseURL = baseURL }
}

// NewOpenAIClient constructs a Transcriber bound to apiKey.
func NewOpenAIClient(apiKey string, opts ...ClientOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		maxRetries: 5,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL != "" {
		cfg := openai.DefaultConfig(c.apiKey)
		cfg.BaseURL = c.baseURL
		c.client = openai.NewClientWithConfig(cfg)
	} else {
		c.client = openai.NewClient(c.apiKey)
	}
	return c
}

// Transcribe sends one chunk to the OpenAI transcription endpoint, retrying
// transient failures with exponential backoff, and re-offsets any returned
// segment timestamps by startTime (spec.md §6 "outputs ... re-offset by
// chunk.startTime").
func (c *OpenAIClient) Transcribe(ctx context.Context, wav []byte, chunkID int, startTime, endTime float64, opts Options, modelOpts ModelOptions) (TranscriptionResult, error) {
	cfg := apierr.RetryConfig{MaxRetries: c.maxRetries, BaseDelay: c.baseDelay, MaxDelay: c.maxDelay}

	callStart := time.Now()
	defer func() {
		obs.DispatchLatency.WithLabelValues(modelOpts.Model).Observe(time.Since(callStart).Seconds())
	}()

	resp, err := apierr.RetryWithBackoff(ctx, cfg, func() (openai.AudioResponse, error) {
		resp, err := c.transcribeOnce(ctx, wav, opts, modelOpts)
		if err != nil {
			return openai.AudioResponse{}, classify(err)
		}
		return resp, nil
	}, isRetryable)

	if err != nil {
		return TranscriptionResult{
			ChunkID:   chunkID,
			StartTime: startTime,
			EndTime:   endTime,
			Success:   false,
			Err:       err,
		}, err
	}

	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{
			Text:  strings.TrimSpace(s.Text),
			Start: s.Start + startTime,
			End:   s.End + startTime,
		})
	}

	return TranscriptionResult{
		ChunkID:   chunkID,
		Text:      resp.Text,
		StartTime: startTime,
		EndTime:   endTime,
		Success:   true,
		Segments:  segments,
		Language:  resp.Language,
	}, nil
}

func (c *OpenAIClient) transcribeOnce(ctx context.Context, wav []byte, opts Options, modelOpts ModelOptions) (openai.AudioResponse, error) {
	format := openai.AudioResponseFormatJSON
	if modelOpts.WantTimestamps {
		format = openai.AudioResponseFormatVerboseJSON
	}

	prompt := opts.Prompt
	if modelOpts.ContinuationPrompt != "" {
		prompt = modelOpts.ContinuationPrompt
	}

	req := openai.AudioRequest{
		Model:    modelOpts.Model,
		Reader:   bytes.NewReader(wav),
		FileName: "chunk.wav",
		Prompt:   prompt,
		Language: opts.Language,
		Format:   format,
	}
	return c.client.CreateTranscription(ctx, req)
}

// TestConnection issues a lightweight request to verify the API key and
// network path are usable (spec.md §6 "testConnection()→boolean").
func (c *OpenAIClient) TestConnection(ctx context.Context) bool {
	_, err := c.client.ListModels(ctx)
	return err == nil
}

// classify maps an OpenAI SDK error into an apierr sentinel, mirroring the
// teacher's classifyError for the raw-HTTP client.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
		default:
			if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
			}
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("request error: %w", apierr.ErrTimeout)
	}
	return err
}

func isRetryable(err error) bool {
	return errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrTimeout)
}
