package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestInvoice(t *testing.T) {
	var got Invoice
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding invoice: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL)
	err := wh.RequestInvoice(context.Background(), 42, "Peonies", 4500, "Delivery: 18:30")
	if err != nil {
		t.Fatalf("RequestInvoice: %v", err)
	}
	if got.UserID != 42 || got.Amount != 4500 || got.Title != "Peonies" {
		t.Errorf("unexpected invoice %+v", got)
	}
}

func TestRequestInvoiceProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL)
	if err := wh.RequestInvoice(context.Background(), 42, "Peonies", 4500, ""); err == nil {
		t.Error("expected error for provider failure")
	}
}
