// Package wire provides the conversation turn model and its two JSON
// serializations: the Anthropic Messages API shape sent over the wire, and
// the persisted shape stored in per-document history files.
package wire

import "time"

// Role identifies what kind of conversation event a Turn records.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolUse    Role = "tool_use"
	RoleToolResult Role = "tool_result"
)

// Turn is one logical conversation event. The history stores each event (a
// user message, an assistant reply, each distinct tool call, each distinct
// tool result) as its own turn; several turns may collapse into a single
// wire message when the conversation is re-sent.
//
// The JSON tags define the persisted format. Optional fields default to
// empty/false when absent, so any valid persisted turn round-trips exactly.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	// Model records which model produced an assistant turn.
	Model string `json:"model,omitempty"`

	// ToolID correlates a tool_use turn with its tool_result turn.
	ToolID string `json:"tool_id,omitempty"`

	// ToolName and ToolInput are set only on tool_use turns.
	ToolName  string         `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// IsError is set only on tool_result turns.
	IsError bool `json:"is_error,omitempty"`
}

// NewUserTurn creates a user turn with the given text.
func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, Timestamp: time.Now().UTC()}
}

// NewAssistantTurn creates an assistant turn attributed to a model.
func NewAssistantTurn(text, model string) Turn {
	return Turn{Role: RoleAssistant, Text: text, Model: model, Timestamp: time.Now().UTC()}
}

// NewToolUseTurn creates a tool_use turn for one tool invocation.
func NewToolUseTurn(id, name string, input map[string]any) Turn {
	return Turn{
		Role:      RoleToolUse,
		ToolID:    id,
		ToolName:  name,
		ToolInput: input,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolResultTurn creates a tool_result turn answering a tool_use turn.
func NewToolResultTurn(id, content string, isError bool) Turn {
	return Turn{
		Role:      RoleToolResult,
		ToolID:    id,
		Text:      content,
		IsError:   isError,
		Timestamp: time.Now().UTC(),
	}
}

// ToWire converts the turn into its wire message. User and assistant turns
// carry plain string content. A tool_use turn becomes an assistant message
// whose content is a one-element tool_use block array; a tool_result turn
// becomes a user message with a one-element tool_result block array.
func (t Turn) ToWire() Message {
	switch t.Role {
	case RoleToolUse:
		// The protocol requires an input object on every tool_use block,
		// even when the tool takes no arguments.
		input := t.ToolInput
		if input == nil {
			input = map[string]any{}
		}
		return Message{
			Role: "assistant",
			Content: []ContentBlock{{
				Type:  BlockTypeToolUse,
				ID:    t.ToolID,
				Name:  t.ToolName,
				Input: input,
			}},
		}
	case RoleToolResult:
		return Message{
			Role: "user",
			Content: []ContentBlock{{
				Type:      BlockTypeToolResult,
				ToolUseID: t.ToolID,
				Content:   t.Text,
				IsError:   t.IsError,
			}},
		}
	case RoleAssistant:
		return Message{Role: "assistant", Content: t.Text}
	default:
		return Message{Role: "user", Content: t.Text}
	}
}
