package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventExtractionCompleted = "extraction.completed"
	EventExtractionFailed    = "extraction.failed"
)

// SignatureHeader carries the HMAC-SHA256 of the body as "sha256=<hex>".
const SignatureHeader = "X-Menugrab-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Sender delivers events. The zero value is ready to use.
type Sender struct {
	Client *http.Client

	// Delays between attempts of DeliverAsync. The first entry is the wait
	// before the first attempt.
	Delays []time.Duration

	Logger *slog.Logger
}

var defaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches body under secret.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}

// Deliver posts event to url once. The body is signed when secret is set.
func (s *Sender) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Menugrab-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync delivers event in the background, retrying on failure.
// done, when non-nil, is closed once delivery succeeded or gave up.
func (s *Sender) DeliverAsync(url, secret string, event *Event, done chan<- error) {
	delays := s.Delays
	if delays == nil {
		delays = defaultDelays
	}
	logger := s.logger().With("url", url, "event", event.Type, "job_id", event.JobID)

	go func() {
		var err error
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = s.Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				logger.Info("webhook delivered", "attempt", attempt+1)
				break
			}
			logger.Warn("webhook delivery failed", "attempt", attempt+1, "error", err)
		}
		if err != nil {
			logger.Error("webhook delivery exhausted all retries")
		}
		if done != nil {
			done <- err
			close(done)
		}
	}()
}

func (s *Sender) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (s *Sender) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
