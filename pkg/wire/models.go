package wire

// ModelInfo describes one entry of the static model catalog.
type ModelInfo struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	ContextWindow   int    `json:"context_window"`
	MaxOutputTokens int    `json:"max_output_tokens"`
}

// AvailableModels returns the models the engine knows how to drive.
func AvailableModels() []ModelInfo {
	return []ModelInfo{
		{ID: "claude-sonnet-4-20250514", DisplayName: "Claude Sonnet 4", ContextWindow: 200000, MaxOutputTokens: 16000},
		{ID: "claude-opus-4-20250514", DisplayName: "Claude Opus 4", ContextWindow: 200000, MaxOutputTokens: 32000},
		{ID: "claude-haiku-3-5-20241022", DisplayName: "Claude 3.5 Haiku", ContextWindow: 200000, MaxOutputTokens: 8192},
	}
}

// DefaultModel returns the catalog's first entry, used when no model was
// configured.
func DefaultModel() string {
	return AvailableModels()[0].ID
}
