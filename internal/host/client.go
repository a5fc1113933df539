package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lpetrova/mira/internal/reliability"
)

// Transcript is one finished utterance handed to the conversation host.
type Transcript struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"captured_at"`
}

// Client forwards transcripts to the conversation host over HTTP. A client
// with no URL is disabled and forwards nothing.
type Client struct {
	url         string
	token       string
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

func NewClient(url, token string) *Client {
	return &Client{
		url:   strings.TrimSpace(url),
		token: strings.TrimSpace(token),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: 3,
		backoffBase: 200 * time.Millisecond,
		backoffCap:  2 * time.Second,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Forward posts the transcript, retrying transient upstream failures.
func (c *Client) Forward(ctx context.Context, t Transcript) error {
	if !c.Enabled() {
		return nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reliability.ExponentialBackoff(attempt-1, c.backoffBase, c.backoffCap)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		res, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send transcript: %w", err)
			continue
		}
		io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
		res.Body.Close()

		if res.StatusCode >= 200 && res.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("host status %d", res.StatusCode)
		if !reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return lastErr
		}
	}
	return lastErr
}
