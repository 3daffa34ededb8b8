package stream

import "github.com/papercomputeco/scribe/pkg/wire"

// Event types recognized on the stream. Anything else is ignored.
const (
	EventMessageStart      = "message_start"
	EventContentBlockStart = "content_block_start"
	EventContentBlockDelta = "content_block_delta"
	EventContentBlockStop  = "content_block_stop"
	EventMessageDelta      = "message_delta"
	EventMessageStop       = "message_stop"
	EventError             = "error"
)

// Delta types carried by content_block_delta events.
const (
	deltaTypeText      = "text_delta"
	deltaTypeInputJSON = "input_json_delta"
)

// Message is the response message assembled over one logical send. It
// starts as the metadata embedded in message_start and gains content,
// stop information and usage as the stream progresses.
type Message struct {
	ID           string              `json:"id"`
	Type         string              `json:"type"`
	Role         string              `json:"role"`
	Model        string              `json:"model"`
	Content      []wire.ContentBlock `json:"content"`
	StopReason   string              `json:"stop_reason,omitempty"`
	StopSequence string              `json:"stop_sequence,omitempty"`
	Usage        map[string]any      `json:"usage,omitempty"`
}

// messageStartEvent embeds the initial message object.
type messageStartEvent struct {
	Message Message `json:"message"`
}

// contentBlockStartEvent announces a new content block.
type contentBlockStartEvent struct {
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

// contentBlockDeltaEvent carries one incremental update to the open block.
type contentBlockDeltaEvent struct {
	Index int `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

// messageDeltaEvent carries message-level metadata updates. Usage sits
// beside the delta, not inside it.
type messageDeltaEvent struct {
	Delta struct {
		StopReason   *string `json:"stop_reason"`
		StopSequence *string `json:"stop_sequence"`
	} `json:"delta"`
	Usage map[string]any `json:"usage"`
}

// errorEvent embeds a server-reported stream error.
type errorEvent struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
