package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"rewards/internal/interfaces"
	"rewards/internal/models"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
)

type WebhookConfig struct {
	URL        string
	Timeout    time.Duration
	RetryCount int
}

// WebhookSink posts events as JSON; consumers de-duplicate by order_id.
type WebhookSink struct {
	url    string
	client heimdall.Doer
}

func NewWebhookSink(cfg *WebhookConfig) *WebhookSink {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	retryCount := cfg.RetryCount
	if retryCount == 0 {
		retryCount = 3
	}

	backoff := heimdall.NewExponentialBackoff(100*time.Millisecond, 2*time.Second, 2, 50*time.Millisecond)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(timeout),
		httpclient.WithRetryCount(retryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &WebhookSink{url: cfg.URL, client: client}
}

func (s *WebhookSink) Send(ctx context.Context, event *models.NotificationEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.OrderID+":"+event.Type)

	res, err := s.client.Do(req)
	if res != nil {
		defer res.Body.Close()
		//nolint:errcheck
		io.Copy(io.Discard, res.Body)
	}
	if err != nil {
		return err
	}
	if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusRequestTimeout && res.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: responded %d", interfaces.ErrNotificationRejected, res.StatusCode)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("notification sink responded %d", res.StatusCode)
	}

	return nil
}

// LogSink is used when no sink is configured.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, event *models.NotificationEvent) error {
	log.Printf("notification %s user=%s seller=%s order=%s points=%d\n", event.Type, event.UserID, event.SellerID, event.OrderID, event.Points)
	return nil
}
