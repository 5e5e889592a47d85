package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const replyPath = "/v2/bot/message/reply"

// maxMessagesPerReply is the platform limit on one reply call.
const maxMessagesPerReply = 5

// APIError reports a non-2xx response from the messaging API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line: api status %d: %s", e.StatusCode, e.Body)
}

// Client sends replies through the LINE Messaging API.
type Client struct {
	cfg        *Config
	httpClient *http.Client
}

// ClientOption configures optional client behaviour.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client (primarily for
// tests and recorded transports).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient constructs a client from the channel configuration.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("line: config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return c, nil
}

// ValidateSignature checks a webhook signature against the channel
// secret.
func (c *Client) ValidateSignature(signature string, body []byte) bool {
	return ValidateSignature(c.cfg.ChannelSecret, signature, body)
}

// Reply sends up to five text messages for a reply token, retrying
// transient failures with exponential backoff.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if replyToken == "" {
		return errors.New("line: reply token is required")
	}
	if len(texts) == 0 {
		return errors.New("line: at least one message is required")
	}
	if len(texts) > maxMessagesPerReply {
		texts = texts[:maxMessagesPerReply]
	}

	messages := make([]TextMessage, 0, len(texts))
	for _, text := range texts {
		messages = append(messages, NewTextMessage(text))
	}
	payload, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return fmt.Errorf("line: marshal reply: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			logx.WithContext(ctx).Slowf("line reply retry %d/%d after %v: %v",
				attempt, c.cfg.MaxRetries, backoff, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("line: reply failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIBase+replyPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("line: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.ChannelAccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line: send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Transport-level failures are worth one more try.
	return true
}
