package wire

// MessagesRequest is the body of one streaming request to the Messages API.
type MessagesRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Stream    bool             `json:"stream"`
	Messages  []Message        `json:"messages"`
	System    []SystemBlock    `json:"system,omitempty"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

// SystemBlock is one element of a structured system prompt.
type SystemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// CacheControl marks a block as a server-side prompt-cache breakpoint.
// The only supported type is "ephemeral".
type CacheControl struct {
	Type string `json:"type"`
}

// ToolDefinition declares one tool the model may invoke.
type ToolDefinition struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	CacheControl *CacheControl  `json:"cache_control,omitempty"`
}

// NewMessagesRequest assembles a streaming request. The system prompt is
// sent as a structured one-element block array and, like the last tool
// definition, carries an ephemeral cache_control marker so the server can
// cache the stable prompt prefix across requests.
func NewMessagesRequest(model string, messages []Message, tools []ToolDefinition, systemPrompt string, maxTokens int) MessagesRequest {
	req := MessagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Stream:    true,
		Messages:  messages,
	}

	if systemPrompt != "" {
		req.System = []SystemBlock{{
			Type:         BlockTypeText,
			Text:         systemPrompt,
			CacheControl: &CacheControl{Type: "ephemeral"},
		}}
	}

	if len(tools) > 0 {
		// Copy before mutating so the caller's definitions stay untouched.
		req.Tools = make([]ToolDefinition, len(tools))
		copy(req.Tools, tools)
		req.Tools[len(req.Tools)-1].CacheControl = &CacheControl{Type: "ephemeral"}
	}

	return req
}
