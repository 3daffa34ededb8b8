// Package session drives full conversation cycles against the Messages
// API: build the wire message array from history, stream the response,
// execute the tools the model requested, and loop until a response carries
// no tool calls.
package session

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/client"
	"github.com/papercomputeco/scribe/pkg/history"
	"github.com/papercomputeco/scribe/pkg/stream"
	"github.com/papercomputeco/scribe/pkg/tool"
	"github.com/papercomputeco/scribe/pkg/wire"
)

// ToolResultListener is implemented by listeners that also want the
// outcome of each executed tool.
type ToolResultListener interface {
	ToolResultReady(id, name, content string, isError bool)
}

// CycleListener is implemented by listeners that want to know when a
// conversation cycle has finished and the history was saved. Errors end a
// cycle through ErrorOccurred instead.
type CycleListener interface {
	CycleComplete()
}

// Session owns one conversation: a history, a tool executor, and a client.
// All stream notifications are forwarded to the listener in decode order;
// the session's own bookkeeping happens on the same goroutine that
// delivers them, so the tool-execution re-send loop is sequential by
// construction.
type Session struct {
	history  *history.History
	tools    tool.Executor
	client   *client.Client
	listener stream.Sink
	logger   *zap.Logger

	mu     sync.Mutex
	config Config
}

// New creates a Session delivering notifications to listener.
func New(config Config, hist *history.History, tools tool.Executor, listener stream.Sink, logger *zap.Logger) *Session {
	s := &Session{
		history:  hist,
		tools:    tools,
		listener: listener,
		logger:   logger,
		config:   config,
	}
	s.client = client.New(client.Config{
		APIKey:     config.APIKey,
		Endpoint:   config.Endpoint,
		RetryDelay: config.RetryDelay,
	}, &clientSink{session: s}, logger)
	return s
}

// History returns the session's conversation history.
func (s *Session) History() *history.History {
	return s.history
}

// Streaming reports whether a send is outstanding.
func (s *Session) Streaming() bool {
	return s.client.InFlight()
}

// UpdateConfig applies new conversation settings. The API key takes
// effect on the next send.
func (s *Session) UpdateConfig(config Config) {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
	s.client.SetAPIKey(config.APIKey)
}

// Send appends the user's text as a turn and starts a conversation cycle.
// Configuration problems and an outstanding send are reported
// synchronously, before the history is touched.
func (s *Session) Send(text string) error {
	if !s.client.IsConfigured() {
		return client.ErrNotConfigured
	}
	if s.client.InFlight() {
		return client.ErrRequestInProgress
	}

	s.history.Append(wire.NewUserTurn(text))
	return s.cycle()
}

// Cancel aborts the in-flight cycle. The history keeps exactly the turns
// it had before the cancelled send.
func (s *Session) Cancel() {
	s.client.Cancel()
}

// cycle sends the current history with the current tool definitions.
func (s *Session) cycle() error {
	s.mu.Lock()
	config := s.config
	s.mu.Unlock()

	var defs []wire.ToolDefinition
	if s.tools != nil {
		defs = s.tools.Definitions()
	}

	return s.client.Send(config.Model, s.history.WireMessages(), defs, config.SystemPrompt, config.MaxTokens)
}

// handleComplete reacts to a finished message: record the assistant's
// turns, execute any requested tools, and either loop or save. Tool calls
// are taken from the completed message's content, so a non-terminal error
// event earlier in the stream cannot make them disappear.
func (s *Session) handleComplete(message stream.Message) {
	s.mu.Lock()
	config := s.config
	s.mu.Unlock()

	var text strings.Builder
	var pending []wire.ContentBlock
	for _, block := range message.Content {
		switch block.Type {
		case wire.BlockTypeText:
			text.WriteString(block.Text)
		case wire.BlockTypeToolUse:
			pending = append(pending, block)
		}
	}
	if text.Len() > 0 {
		s.history.Append(wire.NewAssistantTurn(text.String(), config.Model))
	}

	if len(pending) == 0 {
		s.history.Save()
		s.logger.Debug("cycle complete", zap.Int("turns", s.history.Len()))
		if l, ok := s.listener.(CycleListener); ok {
			l.CycleComplete()
		}
		return
	}

	for _, p := range pending {
		s.history.Append(wire.NewToolUseTurn(p.ID, p.Name, toolInput(p)))
	}

	for _, p := range pending {
		result := s.tools.Execute(p.Name, toolInput(p))
		s.logger.Debug("tool executed",
			zap.String("tool", p.Name),
			zap.Bool("is_error", result.IsError),
		)
		s.history.Append(wire.NewToolResultTurn(p.ID, result.Content, result.IsError))

		if l, ok := s.listener.(ToolResultListener); ok {
			l.ToolResultReady(p.ID, p.Name, result.Content, result.IsError)
		}
	}

	// Continue the conversation with the tool results.
	if err := s.cycle(); err != nil {
		s.listener.ErrorOccurred(err.Error())
	}
}

// toolInput returns a tool_use block's input as the map the executor takes.
func toolInput(block wire.ContentBlock) map[string]any {
	if input, ok := block.Input.(map[string]any); ok && input != nil {
		return input
	}
	return map[string]any{}
}

// clientSink receives the client's stream notifications, forwards them to
// the listener, and drives the session's tool loop.
type clientSink struct {
	session *Session
}

func (c *clientSink) StreamStarted() {
	c.session.listener.StreamStarted()
}

func (c *clientSink) ContentDelta(text string) {
	c.session.listener.ContentDelta(text)
}

func (c *clientSink) ToolUseStarted(id, name string) {
	c.session.listener.ToolUseStarted(id, name)
}

func (c *clientSink) ToolUseInputDelta(id, partialJSON string) {
	c.session.listener.ToolUseInputDelta(id, partialJSON)
}

func (c *clientSink) ToolUseComplete(id, name string, input map[string]any) {
	c.session.listener.ToolUseComplete(id, name, input)
}

func (c *clientSink) MessageComplete(message stream.Message) {
	c.session.listener.MessageComplete(message)
	c.session.handleComplete(message)
}

func (c *clientSink) RateLimitWaiting(seconds int) {
	c.session.listener.RateLimitWaiting(seconds)
}

func (c *clientSink) ErrorOccurred(message string) {
	c.session.listener.ErrorOccurred(message)
}
