// Package payment talks to the external payment provider. The provider's
// only obligations are accepting an invoice request and later delivering a
// payment_succeeded event through the normal inbound path.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Invoice is the request body sent to the provider. Amount is in minor
// currency units.
type Invoice struct {
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// Webhook requests invoices by POSTing to a provider-supplied URL. The call
// is fire-and-forget: a 2xx only means the provider accepted the request.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook invoicer for the given provider URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// RequestInvoice asks the provider to bill the user.
func (w *Webhook) RequestInvoice(ctx context.Context, userID int64, title string, amount int64, description string) error {
	body, err := json.Marshal(Invoice{
		UserID:      userID,
		Title:       title,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("encoding invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting invoice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment provider returned %d", resp.StatusCode)
	}
	return nil
}
