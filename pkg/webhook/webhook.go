// Package webhook delivers request-completion notifications to the caller's
// configured CallbackURL (spec §4.13), retrying transient failures with
// exponential backoff the same way pkg/providers.Retrying does for provider
// calls.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/version"
)

// Payload is the JSON body posted to CallbackURL.
type Payload struct {
	RequestID     string         `json:"request_id"`
	Status        string         `json:"status"`
	Verdict       models.Verdict `json:"verdict,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
	CorrelationID string         `json:"correlation_id"`
}

// Delivery posts completion notifications.
type Delivery struct {
	http       *http.Client
	maxRetries uint64
}

// New builds a Delivery.
func New(maxRetries uint64) *Delivery {
	return &Delivery{http: &http.Client{Timeout: 10 * time.Second}, maxRetries: maxRetries}
}

// Send posts payload to url with exponential backoff retries on transport
// errors and 5xx responses; a 4xx response is treated as permanent (the
// caller's endpoint is misconfigured, retrying won't help).
func (d *Delivery) Send(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(apperr.FatalInternal, err, "marshal webhook payload")
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", version.Full())

		resp, err := d.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return apperr.Newf(apperr.TransientExternal, "webhook endpoint returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(apperr.Newf(apperr.ClientBadRequest, "webhook endpoint returned %d", resp.StatusCode))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries), ctx)
	return backoff.Retry(op, bo)
}
