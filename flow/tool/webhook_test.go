package tool

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookClient_Call(t *testing.T) {
	t.Run("success returns status and body", func(t *testing.T) {
		var gotMethod, gotAuth, gotHeader string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotAuth = r.Header.Get("Authorization")
			gotHeader = r.Header.Get("X-Source")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":42}`))
		}))
		defer srv.Close()

		client := NewWebhookClient(nil)
		res, err := client.Call(context.Background(), WebhookRequest{
			URL:     srv.URL,
			Method:  "post",
			Headers: map[string]string{"X-Source": "botflow"},
			Auth:    "Bearer token-1",
			Body:    `{"name":"Ada"}`,
		})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}

		if res.StatusCode != http.StatusCreated {
			t.Errorf("status = %d", res.StatusCode)
		}
		if res.Body != `{"id":42}` {
			t.Errorf("body = %q", res.Body)
		}
		if gotMethod != http.MethodPost {
			t.Errorf("method = %q, want POST", gotMethod)
		}
		if gotAuth != "Bearer token-1" {
			t.Errorf("auth header = %q", gotAuth)
		}
		if gotHeader != "botflow" {
			t.Errorf("custom header = %q", gotHeader)
		}
	})

	t.Run("method defaults to GET", func(t *testing.T) {
		var gotMethod string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
		}))
		defer srv.Close()

		if _, err := NewWebhookClient(nil).Call(context.Background(), WebhookRequest{URL: srv.URL}); err != nil {
			t.Fatal(err)
		}
		if gotMethod != http.MethodGet {
			t.Errorf("method = %q, want GET", gotMethod)
		}
	})

	t.Run("non-2xx is a WebhookError carrying the status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("gone"))
		}))
		defer srv.Close()

		res, err := NewWebhookClient(nil).Call(context.Background(), WebhookRequest{URL: srv.URL})
		var werr *WebhookError
		if !errors.As(err, &werr) {
			t.Fatalf("expected *WebhookError, got %v", err)
		}
		if werr.StatusCode != http.StatusNotFound || werr.Timeout {
			t.Errorf("error = %+v", werr)
		}
		// The body still comes back for diagnostics.
		if res.Body != "gone" {
			t.Errorf("body = %q", res.Body)
		}
	})

	t.Run("timeout is flagged", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		started := time.Now()
		_, err := NewWebhookClient(nil).Call(context.Background(), WebhookRequest{URL: srv.URL, Timeout: 1})

		var werr *WebhookError
		if !errors.As(err, &werr) || !werr.Timeout {
			t.Fatalf("expected timeout WebhookError, got %v", err)
		}
		if elapsed := time.Since(started); elapsed > 3*time.Second {
			t.Errorf("call took %v, budget was 1s", elapsed)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // refuse connections

		_, err := NewWebhookClient(nil).Call(context.Background(), WebhookRequest{URL: srv.URL})
		var werr *WebhookError
		if !errors.As(err, &werr) {
			t.Fatalf("expected *WebhookError, got %v", err)
		}
		if werr.Timeout || werr.StatusCode != 0 {
			t.Errorf("error = %+v", werr)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		if _, err := NewWebhookClient(nil).Call(context.Background(), WebhookRequest{}); err == nil {
			t.Fatal("expected error for empty URL")
		}
	})
}
