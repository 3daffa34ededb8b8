package client

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/stream"
	"github.com/papercomputeco/scribe/pkg/wire"
)

// testSink records notifications and signals terminal ones.
type testSink struct {
	mu       sync.Mutex
	started  int
	deltas   []string
	waits    []int
	errors   []string
	messages []stream.Message

	terminal  chan struct{}
	deltaSeen chan struct{}
}

func newTestSink() *testSink {
	return &testSink{
		terminal:  make(chan struct{}, 8),
		deltaSeen: make(chan struct{}, 64),
	}
}

func (s *testSink) StreamStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
}

func (s *testSink) ContentDelta(text string) {
	s.mu.Lock()
	s.deltas = append(s.deltas, text)
	s.mu.Unlock()
	s.deltaSeen <- struct{}{}
}

func (s *testSink) ToolUseStarted(id, name string) {}

func (s *testSink) ToolUseInputDelta(id, partialJSON string) {}

func (s *testSink) ToolUseComplete(id, name string, input map[string]any) {}

func (s *testSink) MessageComplete(message stream.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, message)
	s.mu.Unlock()
	s.terminal <- struct{}{}
}

func (s *testSink) RateLimitWaiting(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, seconds)
}

func (s *testSink) ErrorOccurred(message string) {
	s.mu.Lock()
	s.errors = append(s.errors, message)
	s.mu.Unlock()
	s.terminal <- struct{}{}
}

func (s *testSink) waitTerminal(t *testing.T) {
	t.Helper()
	select {
	case <-s.terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a terminal notification")
	}
}

func (s *testSink) snapshot() (started int, deltas, errors []string, waits []int, messages []stream.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started,
		append([]string(nil), s.deltas...),
		append([]string(nil), s.errors...),
		append([]int(nil), s.waits...),
		append([]stream.Message(nil), s.messages...)
}

func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	w.(http.Flusher).Flush()
}

// writeTextResponse streams a minimal single-text-block assistant message.
func writeTextResponse(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/event-stream")
	writeEvent(w, "message_start",
		`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"test-model"}}`)
	writeEvent(w, "content_block_start",
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`)
	writeEvent(w, "content_block_delta",
		fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, text))
	writeEvent(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
	writeEvent(w, "message_delta",
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`)
	writeEvent(w, "message_stop", `{"type":"message_stop"}`)
}

func newTestClient(endpoint string, sink *testSink) *Client {
	return New(Config{
		APIKey:     "sk-test",
		Endpoint:   endpoint,
		RetryDelay: 10 * time.Millisecond,
	}, sink, zap.NewNop())
}

func userMessages(text string) []wire.Message {
	return []wire.Message{{Role: "user", Content: text}}
}

func TestSendStreamsTextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.Equal(t, "prompt-caching-2024-07-31", r.Header.Get("anthropic-beta"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeTextResponse(w, "Hello there")
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))
	sink.waitTerminal(t)

	started, deltas, errs, waits, messages := sink.snapshot()
	assert.Equal(t, 1, started)
	assert.Equal(t, []string{"Hello there"}, deltas)
	assert.Empty(t, errs)
	assert.Empty(t, waits)
	require.Len(t, messages, 1)
	assert.Equal(t, "end_turn", messages[0].StopReason)
	require.Len(t, messages[0].Content, 1)
	assert.Equal(t, "Hello there", messages[0].Content[0].Text)
	assert.False(t, c.InFlight())
}

func TestSendWithoutAPIKey(t *testing.T) {
	sink := newTestSink()
	c := New(Config{}, sink, zap.NewNop())

	err := c.Send("test-model", userMessages("hi"), nil, "", 1024)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSendWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeTextResponse(w, "late")
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))
	err := c.Send("test-model", userMessages("again"), nil, "", 1024)
	assert.ErrorIs(t, err, ErrRequestInProgress)

	close(release)
	sink.waitTerminal(t)
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	var requests int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		first := requests == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeTextResponse(w, "after retry")
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))
	sink.waitTerminal(t)

	_, deltas, errs, waits, messages := sink.snapshot()
	assert.Len(t, waits, 1)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"after retry"}, deltas)
	assert.Len(t, messages, 1)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, requests)
}

func TestRateLimitRetriesExhausted(t *testing.T) {
	var requests int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))
	sink.waitTerminal(t)

	_, _, errs, waits, messages := sink.snapshot()
	assert.Len(t, waits, 3)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Max retries exceeded")
	assert.Empty(t, messages)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, requests)
	assert.False(t, c.InFlight())
}

func TestStructuredErrorBodyTakesPrecedence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"max_tokens is required"}}`)
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))
	sink.waitTerminal(t)

	_, _, errs, _, _ := sink.snapshot()
	require.Len(t, errs, 1)
	assert.Equal(t, "invalid_request_error: max_tokens is required", errs[0])
}

func TestStatusTaxonomy(t *testing.T) {
	cases := map[int]string{
		400: "Bad request",
		401: "Invalid API key",
		403: "Access forbidden",
		404: "API endpoint not found",
		500: "server error",
		529: "overloaded",
		418: "HTTP error 418",
	}
	for status, fragment := range cases {
		assert.Contains(t, statusMessage(status), fragment)
	}
}

func TestRetryDelayHeader(t *testing.T) {
	c := newTestClient("http://example.invalid", newTestSink())

	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, 10*time.Millisecond, c.retryDelay(resp))

	resp.Header.Set("retry-after", "7")
	assert.Equal(t, 7*time.Second, c.retryDelay(resp))

	resp.Header.Set("retry-after", "soon")
	assert.Equal(t, 10*time.Millisecond, c.retryDelay(resp))

	resp.Header.Set("retry-after", "-2")
	assert.Equal(t, 10*time.Millisecond, c.retryDelay(resp))
}

func TestFinishAfterCancelSuppressesCompletion(t *testing.T) {
	c := newTestClient("http://example.invalid", newTestSink())

	s := &inflight{cancel: func() {}}
	c.mu.Lock()
	c.active = s
	c.mu.Unlock()

	// Cancel takes the slot first, so the send goroutine must not finalize.
	c.Cancel()
	assert.False(t, c.finish(s))

	c.mu.Lock()
	c.active = s
	c.mu.Unlock()
	assert.True(t, c.finish(s))
	assert.False(t, c.InFlight())
}

func TestCancelMidStream(t *testing.T) {
	blocked := make(chan struct{})
	var blockedOnce sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, "message_start",
			`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"test-model"}}`)
		writeEvent(w, "content_block_start",
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`)
		writeEvent(w, "content_block_delta",
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`)
		<-r.Context().Done()
		blockedOnce.Do(func() { close(blocked) })
	}))
	defer server.Close()

	sink := newTestSink()
	c := newTestClient(server.URL, sink)

	require.NoError(t, c.Send("test-model", userMessages("hi"), nil, "", 1024))

	select {
	case <-sink.deltaSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first delta")
	}

	c.Cancel()
	assert.False(t, c.InFlight())

	// Cancellation produces no terminal notification.
	select {
	case <-sink.terminal:
		t.Fatal("unexpected terminal notification after cancel")
	case <-time.After(100 * time.Millisecond):
	}

	// The engine stays usable for the next send.
	err := c.Send("test-model", userMessages("hi again"), nil, "", 1024)
	assert.NoError(t, err)
	c.Cancel()

	select {
	case <-blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("server handler never observed the aborted request")
	}
}
