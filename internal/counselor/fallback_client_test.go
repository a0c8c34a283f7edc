package counselor

import (
	"context"
	"errors"
	"testing"

	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func TestFallbackLLMClient_PrimarySucceeds(t *testing.T) {
	primary := &stubLLM{resp: LLMResponse{Text: "primary"}}
	fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}

	got, err := NewFallbackLLMClient(primary, fallback, logging.Default()).Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "primary" {
		t.Fatalf("expected primary response, got %q", got.Text)
	}
	if len(fallback.requests) != 0 {
		t.Fatalf("fallback should not be called")
	}
}

func TestFallbackLLMClient_FallsBack(t *testing.T) {
	primary := &stubLLM{err: errors.New("gemini 503")}
	fallback := &stubLLM{resp: LLMResponse{Text: "fallback"}}

	got, err := NewFallbackLLMClient(primary, fallback, nil).Complete(context.Background(), LLMRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "fallback" {
		t.Fatalf("expected fallback response, got %q", got.Text)
	}
}

func TestFallbackLLMClient_NoFallbackReturnsPrimaryError(t *testing.T) {
	primaryErr := errors.New("gemini 503")
	primary := &stubLLM{err: primaryErr}

	_, err := NewFallbackLLMClient(primary, nil, logging.Default()).Complete(context.Background(), LLMRequest{})
	if !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestFallbackLLMClient_BothFail(t *testing.T) {
	fallbackErr := errors.New("bedrock throttled")
	primary := &stubLLM{err: errors.New("gemini 503")}
	fallback := &stubLLM{err: fallbackErr}

	_, err := NewFallbackLLMClient(primary, fallback, logging.Default()).Complete(context.Background(), LLMRequest{})
	if !errors.Is(err, fallbackErr) {
		t.Fatalf("expected fallback error, got %v", err)
	}
}
