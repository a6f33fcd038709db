package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPostSinkAlert_SendsMessage(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter("xoxb-test", "#alerts")
	a.apiURL = ts.URL

	err := a.PostSinkAlert(context.Background(), "call-1", errors.New("sheets returned 503"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer xoxb-test" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody["channel"] != "#alerts" {
		t.Errorf("unexpected channel %v", gotBody["channel"])
	}
	text, _ := gotBody["text"].(string)
	if !strings.Contains(text, "call-1") || !strings.Contains(text, "503") {
		t.Errorf("fallback text missing context: %q", text)
	}
	if _, ok := gotBody["blocks"].([]any); !ok {
		t.Error("expected Block Kit blocks in payload")
	}
}

func TestPostSinkAlert_RateLimited(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter("xoxb-test", "#alerts")
	a.apiURL = ts.URL

	for i := 0; i < 5; i++ {
		if err := a.PostSinkAlert(context.Background(), "call-1", errors.New("boom")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 delivery within the rate window, got %d", calls)
	}

	// A stale lastSent lets the next alert through.
	a.mu.Lock()
	a.lastSent = time.Now().Add(-time.Minute)
	a.mu.Unlock()

	if err := a.PostSinkAlert(context.Background(), "call-2", errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 deliveries after window elapsed, got %d", calls)
	}
}

func TestPostSinkAlert_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter("xoxb-test", "#alerts")
	a.apiURL = ts.URL

	if err := a.PostSinkAlert(context.Background(), "call-1", errors.New("boom")); err == nil {
		t.Error("expected error for non-200 response")
	}
}
