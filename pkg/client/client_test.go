package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/larsfn/minterra/internal/api"
)

func TestClient_ExchangeToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != api.ExchangeTokenRoute {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","token":"ya29.minted","expires_in":3600}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	resp, err := c.ExchangeToken(context.Background(), "run-ABC123", "tfc-token")
	if err != nil {
		t.Fatalf("ExchangeToken() error: %v", err)
	}
	if resp.Status != "success" || resp.Token != "ya29.minted" || resp.ExpiresIn != 3600 {
		t.Errorf("response = %+v", resp)
	}
}

func TestClient_ExchangeTokenError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Correlation-ID", "corr-1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":"error","msg":"run is not planning or applying","token":null}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.ExchangeToken(context.Background(), "run-ABC123", "tfc-token")
	apiErr, ok := err.(APIError)
	if !ok {
		t.Fatalf("error type = %T, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "run is not planning or applying" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.CorrelationID != "corr-1" {
		t.Errorf("CorrelationID = %q", apiErr.CorrelationID)
	}
}
