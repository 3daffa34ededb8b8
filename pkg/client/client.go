// Package client implements the streaming HTTP transport for the Messages
// API: one POST per logical send, SSE response decoding, and bounded
// automatic retry on rate limiting.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/scribe/pkg/sse"
	"github.com/papercomputeco/scribe/pkg/stream"
	"github.com/papercomputeco/scribe/pkg/wire"
)

const (
	// DefaultEndpoint is the production Messages API endpoint.
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"

	// DefaultRetryDelay is the wait before resending after a 429 when the
	// response carries no usable retry-after header.
	DefaultRetryDelay = 30 * time.Second

	apiVersion   = "2023-06-01"
	betaFeatures = "prompt-caching-2024-07-31"

	// maxRetries bounds the number of scheduled resends per logical send.
	maxRetries = 3
)

// Config holds the transport settings.
type Config struct {
	// APIKey is the credential sent in the x-api-key header. Send fails
	// with ErrNotConfigured while it is empty.
	APIKey string

	// Endpoint overrides DefaultEndpoint when non-empty.
	Endpoint string

	// RetryDelay overrides DefaultRetryDelay when positive.
	RetryDelay time.Duration

	// UserAgent identifies the client to the server.
	UserAgent string
}

// inflight is the cancellation handle for one logical send.
type inflight struct {
	cancel context.CancelFunc
}

// Client drives one logical send at a time against the Messages API. All
// sink notifications for a send are emitted sequentially from the single
// goroutine that owns that send.
type Client struct {
	config      Config
	httpClient  *http.Client
	sink        stream.Sink
	accumulator *stream.Accumulator
	logger      *zap.Logger

	mu     sync.Mutex
	active *inflight
}

// New creates a Client emitting notifications into sink.
func New(config Config, sink stream.Sink, logger *zap.Logger) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.UserAgent == "" {
		config.UserAgent = "scribe"
	}

	return &Client{
		config:      config,
		sink:        sink,
		accumulator: stream.NewAccumulator(sink, logger),
		logger:      logger,
		httpClient: &http.Client{
			// Streaming responses can be slow, especially long tool-use
			// answers. Cancellation goes through the request context.
			Timeout: 5 * time.Minute,
		},
	}
}

// SetAPIKey replaces the credential used for subsequent sends.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.APIKey = key
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.APIKey != ""
}

// InFlight reports whether a logical send is currently outstanding.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Send starts one logical send: POST the request, decode the SSE stream
// into sink notifications, and retry automatically on rate limiting.
// Configuration problems and an already-outstanding send are reported
// synchronously; everything after that arrives through the sink. Send
// returns as soon as the send goroutine is started.
func (c *Client) Send(modelID string, messages []wire.Message, tools []wire.ToolDefinition, systemPrompt string, maxTokens int) error {
	c.mu.Lock()
	if c.config.APIKey == "" {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if c.active != nil {
		c.mu.Unlock()
		return ErrRequestInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &inflight{cancel: cancel}
	c.active = s
	c.mu.Unlock()

	request := wire.NewMessagesRequest(modelID, messages, tools, systemPrompt, maxTokens)

	go c.run(ctx, s, request)
	return nil
}

// Cancel aborts the in-flight send and any scheduled retry. It is a no-op
// when nothing is outstanding, and never produces an error notification.
func (c *Client) Cancel() {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()

	if s != nil {
		c.logger.Debug("send cancelled")
		s.cancel()
	}
}

// finish releases the in-flight slot if s still owns it and reports whether
// it did. It runs before the terminal sink notification so the sink may
// start the next send from its callback; a false return means Cancel got
// there first and no terminal notification should follow.
func (c *Client) finish(s *inflight) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != s {
		return false
	}
	c.active = nil
	return true
}

// run owns one logical send, retries included.
func (c *Client) run(ctx context.Context, s *inflight, request wire.MessagesRequest) {
	defer s.cancel()

	retries := 0
	for {
		done, retryAfter := c.attempt(ctx, s, request)
		if done {
			return
		}

		// Rate limited. Schedule a resend of the identical request unless
		// the retry budget is spent.
		if retries >= maxRetries {
			if c.finish(s) {
				c.sink.ErrorOccurred(statusMessage(http.StatusTooManyRequests))
			}
			return
		}
		retries++

		c.logger.Info("rate limited, scheduling retry",
			zap.Int("attempt", retries),
			zap.Duration("delay", retryAfter),
		)
		c.sink.RateLimitWaiting(int(retryAfter / time.Second))

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.finish(s)
			return
		case <-timer.C:
		}
	}
}

// attempt performs a single HTTP exchange. It returns done=true when the
// logical send reached a terminal state (success, error, or cancellation);
// done=false means a 429 and retryAfter carries the wait before resending.
func (c *Client) attempt(ctx context.Context, s *inflight, request wire.MessagesRequest) (done bool, retryAfter time.Duration) {
	body, err := json.Marshal(request)
	if err != nil {
		if c.finish(s) {
			c.sink.ErrorOccurred(fmt.Sprintf("failed to encode request: %v", err))
		}
		return true, 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		if c.finish(s) {
			c.sink.ErrorOccurred(fmt.Sprintf("failed to build request: %v", err))
		}
		return true, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("anthropic-beta", betaFeatures)
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is not an error.
			c.finish(s)
			return true, 0
		}
		if c.finish(s) {
			c.sink.ErrorOccurred("Network error - check your internet connection")
		}
		c.logger.Warn("request failed", zap.Error(err))
		return true, 0
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return false, c.retryDelay(resp)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		c.logger.Warn("request rejected",
			zap.Int("status", resp.StatusCode),
		)
		if c.finish(s) {
			c.sink.ErrorOccurred(errorMessage(resp.StatusCode, errBody))
		}
		return true, 0
	}

	c.stream(ctx, s, resp.Body)
	return true, 0
}

// stream decodes the SSE response body into sink notifications and
// finalizes the accumulated message on transport end.
func (c *Client) stream(ctx context.Context, s *inflight, body io.Reader) {
	c.accumulator.Reset()
	c.sink.StreamStarted()

	var parser sse.Parser
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, frame := range parser.Write(buf[:n]) {
				c.accumulator.HandleFrame(frame)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				c.finish(s)
				return
			}
			if c.finish(s) {
				c.sink.ErrorOccurred("Network error - check your internet connection")
			}
			c.logger.Warn("stream read failed", zap.Error(err))
			return
		}
	}

	for _, frame := range parser.Flush() {
		c.accumulator.HandleFrame(frame)
	}

	// A cancel that raced the final read wins: no completion is emitted for
	// a send the caller already gave up on.
	if !c.finish(s) {
		return
	}
	c.accumulator.Finish()
}

// retryDelay extracts the retry-after header, falling back to the
// configured default when the header is absent or not a positive integer.
func (c *Client) retryDelay(resp *http.Response) time.Duration {
	header := resp.Header.Get("retry-after")
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.config.RetryDelay
}
