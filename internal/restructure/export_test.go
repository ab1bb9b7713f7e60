package restructure

// Exports for testing. These allow black-box tests to inject dependencies
// without modifying the public API.

// Function exports for unit testing internal logic.
var (
	ClassifyRestructureError    = classifyRestructureError
	IsRetryableRestructureError = isRetryableRestructureError

	SplitTranscript = splitTranscript
	BuildMapPrompt  = buildMapPrompt
	EstimateTokens  = estimateTokens
)
