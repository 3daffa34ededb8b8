package session

import "time"

// Config holds the per-session conversation settings.
type Config struct {
	// APIKey is the Messages API credential.
	APIKey string

	// Model is the model identifier sent with every request.
	Model string

	// MaxTokens caps the response length per send.
	MaxTokens int

	// SystemPrompt is attached to every request.
	SystemPrompt string

	// Endpoint overrides the production API endpoint when non-empty.
	Endpoint string

	// RetryDelay is the wait before resending after a rate limit when the
	// server supplies no delay. Zero means the client default.
	RetryDelay time.Duration
}
