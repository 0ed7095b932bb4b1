package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func TestOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               " key ",
		Model:                "openai/gpt-3.5-turbo",
		Temperature:          0.5,
		MaxCompletionToken:   256,
		RouterModel:          "openai/gpt-4o",
		RouterTemperature:    0,
		ResponderTemperature: -1,
		ExtractorTemperature: 0.1,
	}

	router := cfg.OpenRouterFor(CapabilityRouter)
	if router.Model != "openai/gpt-4o" || router.Temperature != 0 {
		t.Fatalf("router = %s/%v", router.Model, router.Temperature)
	}
	if router.APIKey != "key" {
		t.Fatalf("api key not trimmed: %q", router.APIKey)
	}
	if router.MaxCompletionToken == nil || *router.MaxCompletionToken != 256 {
		t.Fatalf("max tokens = %v", router.MaxCompletionToken)
	}

	responder := cfg.OpenRouterFor(CapabilityResponder)
	if responder.Model != "openai/gpt-3.5-turbo" || responder.Temperature != 0.5 {
		t.Fatalf("responder = %s/%v", responder.Model, responder.Temperature)
	}

	extractor := cfg.OpenRouterFor(CapabilityExtractor)
	if extractor.Model != "openai/gpt-3.5-turbo" || extractor.Temperature != 0.1 {
		t.Fatalf("extractor = %s/%v", extractor.Model, extractor.Temperature)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing api key err = %v", err)
	}
	if err := (Config{APIKey: "k"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing model err = %v", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("valid config err = %v", err)
	}
}
