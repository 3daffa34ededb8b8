package stream

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/sse"
	"github.com/papercomputeco/scribe/pkg/wire"
)

// blockKind tracks which kind of content block is currently open.
type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockToolUse
)

// Accumulator is the per-send state machine that consumes decoded frames
// and incrementally builds the response message. State belongs to exactly
// one logical send; Reset starts the next one (including retries of the
// same request).
type Accumulator struct {
	sink   Sink
	logger *zap.Logger

	meta   Message
	blocks []wire.ContentBlock
	open   blockKind

	text     strings.Builder
	toolID   string
	toolName string
	toolJSON strings.Builder
}

// NewAccumulator creates an accumulator emitting to the given sink.
func NewAccumulator(sink Sink, logger *zap.Logger) *Accumulator {
	return &Accumulator{sink: sink, logger: logger}
}

// Reset discards all per-send state so the accumulator can serve a fresh
// attempt.
func (a *Accumulator) Reset() {
	a.meta = Message{}
	a.blocks = nil
	a.open = blockNone
	a.text.Reset()
	a.toolID = ""
	a.toolName = ""
	a.toolJSON.Reset()
}

// HandleFrame dispatches one decoded frame. Payloads that do not decode as
// JSON objects are dropped without failing the stream; one bad frame must
// not invalidate an otherwise good response.
func (a *Accumulator) HandleFrame(frame sse.Frame) {
	switch frame.Event {
	case EventMessageStart:
		var ev messageStartEvent
		if !a.decode(frame, &ev) {
			return
		}
		a.meta = ev.Message

	case EventContentBlockStart:
		var ev contentBlockStartEvent
		if !a.decode(frame, &ev) {
			return
		}
		a.handleBlockStart(ev)

	case EventContentBlockDelta:
		var ev contentBlockDeltaEvent
		if !a.decode(frame, &ev) {
			return
		}
		a.handleBlockDelta(ev)

	case EventContentBlockStop:
		a.handleBlockStop()

	case EventMessageDelta:
		var ev messageDeltaEvent
		if !a.decode(frame, &ev) {
			return
		}
		if ev.Delta.StopReason != nil {
			a.meta.StopReason = *ev.Delta.StopReason
		}
		if ev.Delta.StopSequence != nil {
			a.meta.StopSequence = *ev.Delta.StopSequence
		}
		if ev.Usage != nil {
			a.meta.Usage = ev.Usage
		}

	case EventMessageStop:
		// Completion is driven by transport end (Finish), not by this
		// event, so bytes still in flight are not lost.

	case EventError:
		var ev errorEvent
		if !a.decode(frame, &ev) {
			return
		}
		a.sink.ErrorOccurred(ev.Error.Message)

	default:
		a.logger.Debug("ignoring unknown event type", zap.String("event", frame.Event))
	}
}

// Finish attaches the finalized blocks as the message content and emits the
// single message-complete notification for this send.
func (a *Accumulator) Finish() Message {
	a.meta.Content = a.blocks
	msg := a.meta
	a.sink.MessageComplete(msg)
	return msg
}

func (a *Accumulator) handleBlockStart(ev contentBlockStartEvent) {
	switch ev.ContentBlock.Type {
	case wire.BlockTypeText:
		a.text.Reset()
		a.open = blockText

	case wire.BlockTypeToolUse:
		a.toolID = ev.ContentBlock.ID
		a.toolName = ev.ContentBlock.Name
		a.toolJSON.Reset()
		a.open = blockToolUse

		a.logger.Debug("tool use started",
			zap.String("tool", a.toolName),
			zap.String("id", a.toolID),
		)
		a.sink.ToolUseStarted(a.toolID, a.toolName)

	default:
		a.logger.Debug("ignoring unknown content block type",
			zap.String("type", ev.ContentBlock.Type),
		)
		a.open = blockNone
	}
}

func (a *Accumulator) handleBlockDelta(ev contentBlockDeltaEvent) {
	switch ev.Delta.Type {
	case deltaTypeText:
		// A text delta outside an open text block is not expected;
		// ignore it rather than corrupting the open tool input.
		if a.open != blockText {
			return
		}
		a.text.WriteString(ev.Delta.Text)
		a.sink.ContentDelta(ev.Delta.Text)

	case deltaTypeInputJSON:
		if a.open != blockToolUse {
			return
		}
		a.toolJSON.WriteString(ev.Delta.PartialJSON)
		a.sink.ToolUseInputDelta(a.toolID, ev.Delta.PartialJSON)
	}
}

func (a *Accumulator) handleBlockStop() {
	switch a.open {
	case blockToolUse:
		// A malformed tool argument must not abort the whole response:
		// fall back to an empty input object and let the failure surface
		// when the tool executes.
		input := map[string]any{}
		if raw := a.toolJSON.String(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				a.logger.Warn("failed to parse tool input JSON",
					zap.String("tool", a.toolName),
					zap.Error(err),
				)
				input = map[string]any{}
			}
		}

		a.blocks = append(a.blocks, wire.ToolUseBlock(a.toolID, a.toolName, input))

		a.logger.Debug("tool use complete",
			zap.String("tool", a.toolName),
			zap.String("id", a.toolID),
		)
		a.sink.ToolUseComplete(a.toolID, a.toolName, input)

		a.toolID = ""
		a.toolName = ""
		a.toolJSON.Reset()

	case blockText:
		if a.text.Len() > 0 {
			a.blocks = append(a.blocks, wire.TextBlock(a.text.String()))
			a.text.Reset()
		}
	}

	a.open = blockNone
}

// decode unmarshals a frame payload, reporting whether it was usable.
func (a *Accumulator) decode(frame sse.Frame, v any) bool {
	if err := json.Unmarshal(frame.Data, v); err != nil {
		a.logger.Debug("discarding undecodable frame payload",
			zap.String("event", frame.Event),
			zap.Error(err),
		)
		return false
	}
	return true
}
