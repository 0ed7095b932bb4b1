package qstash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDedup, gotRetries, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		gotRetries = r.Header.Get("Upstash-Retries")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "tok", Retries: 2})
	id, err := client.Publish(context.Background(), "https://shop.example/hooks/bookings", []byte(`{"a":1}`), WithDeduplicationID("s1:4"))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "msg_1" {
		t.Fatalf("message id = %q", id)
	}
	if gotPath != "/v2/publish/https://shop.example/hooks/bookings" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotDedup != "s1:4" || gotRetries != "2" {
		t.Fatalf("headers auth=%q dedup=%q retries=%q", gotAuth, gotDedup, gotRetries)
	}
	if gotBody != `{"a":1}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	_, err := client.Publish(context.Background(), "https://shop.example/hooks", nil)
	if err == nil || !strings.Contains(err.Error(), "invalid token") {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestNewClientValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewClient(Config{URL: "::bad", Token: "t"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
