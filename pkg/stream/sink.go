// Package stream turns decoded server-sent event frames into structured
// content: running assistant text, tool invocations with incrementally
// streamed JSON input, and the final assembled response message.
package stream

// Sink receives engine notifications, one method per notification kind.
// Methods are invoked sequentially, in the order the underlying events were
// decoded; exactly one MessageComplete call ends each successful send.
type Sink interface {
	// StreamStarted fires when a request has been accepted and the
	// response stream is about to be consumed. A rate-limit retry fires
	// it again for the fresh attempt.
	StreamStarted()

	// ContentDelta carries one incremental chunk of assistant text.
	ContentDelta(text string)

	// ToolUseStarted fires when the model opens a tool_use block.
	ToolUseStarted(id, name string)

	// ToolUseInputDelta carries one incremental chunk of the open tool's
	// input JSON, tagged with that tool's id.
	ToolUseInputDelta(id, partialJSON string)

	// ToolUseComplete fires when a tool_use block closes, carrying the
	// fully parsed input object.
	ToolUseComplete(id, name string, input map[string]any)

	// MessageComplete delivers the assembled response message after the
	// transport finished. This is the authoritative end of a send.
	MessageComplete(message Message)

	// RateLimitWaiting reports that a rate-limited request will be
	// retried after the given number of seconds.
	RateLimitWaiting(seconds int)

	// ErrorOccurred reports a failed send or a server-sent error event.
	ErrorOccurred(message string)
}
