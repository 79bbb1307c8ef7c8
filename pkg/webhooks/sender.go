package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Header names set on every delivery.
const (
	HeaderEvent     = "X-Frontendmu-Event"
	HeaderDelivery  = "X-Frontendmu-Delivery"
	HeaderSignature = "X-Frontendmu-Signature"
)

// Endpoint is a webhook receiver.
type Endpoint struct {
	URL    string
	Secret string
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned non-2xx status: %d", e.Code)
}

// Retryable reports whether the receiver may accept the same delivery later.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Sender delivers webhooks.
type Sender struct {
	client *http.Client
	policy *RetryPolicy
	wait   func(ctx context.Context, d time.Duration) error
}

// NewSender creates a sender. A nil client gets a 10 second timeout; a nil
// policy means DefaultRetryConfig.
func NewSender(client *http.Client, policy *RetryPolicy) *Sender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if policy == nil {
		policy = NewRetryPolicy(DefaultRetryConfig())
	}
	return &Sender{client: client, policy: policy, wait: sleep}
}

// Send POSTs payload as JSON to ep, retrying per the policy. It returns the
// number of attempts made.
func (s *Sender) Send(ctx context.Context, ep Endpoint, event, deliveryID string, payload interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	attempts := 0
	for {
		attempts++
		err = s.post(ctx, ep, event, deliveryID, body)
		if err == nil {
			return attempts, nil
		}
		if !s.policy.ShouldRetry(attempts, err) {
			return attempts, err
		}
		if werr := s.wait(ctx, s.policy.NextRetryDelay(attempts)); werr != nil {
			return attempts, fmt.Errorf("%w (last error: %v)", werr, err)
		}
	}
}

func (s *Sender) post(ctx context.Context, ep Endpoint, event, deliveryID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderDelivery, deliveryID)
	if ep.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(body, ep.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Sign returns the signature header value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies the webhook signature
func VerifySignature(body []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
