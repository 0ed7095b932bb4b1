package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{BaseURL: "http://localhost"}); c != nil {
		t.Fatalf("expected nil client without api key")
	}
	if c := NewClient(Config{APIKey: "k", BaseURL: "http://localhost/", SiteName: "bike shop"}); c == nil {
		t.Fatalf("expected client")
	}
}

func TestNewChatModel(t *testing.T) {
	t.Parallel()

	maxTokens := 64
	cfg := &Config{
		BaseURL:            "http://localhost/v1/",
		APIKey:             "k",
		Model:              "openai/gpt-4o",
		MaxCompletionToken: &maxTokens,
	}
	m, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m == nil {
		t.Fatalf("expected chat model")
	}
}

func TestHeaderTransportSetsAttribution(t *testing.T) {
	t.Parallel()

	var referer, title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
	}))
	t.Cleanup(server.Close)

	cfg := Config{SiteURL: "https://bikes.example", SiteName: " Spokes "}
	client := &http.Client{Transport: &headerTransport{headers: cfg.attribution(), next: http.DefaultTransport}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	if referer != "https://bikes.example" || title != "Spokes" {
		t.Fatalf("headers referer=%q title=%q", referer, title)
	}
	if len((&Config{}).attribution()) != 0 {
		t.Fatalf("expected no attribution headers")
	}
}
