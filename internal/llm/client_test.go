package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/lazypower/recall/internal/config"
)

func TestNewClientClaudeCLI(t *testing.T) {
	cfg := config.LLMConfig{Provider: "claude-cli"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cli, ok := client.(*ClaudeCLI)
	if !ok {
		t.Fatalf("expected *ClaudeCLI, got %T", client)
	}
	if cli.model != "haiku" {
		t.Errorf("model = %q, want haiku by default", cli.model)
	}
}

func TestNewClientAnthropic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", AnthropicKey: "test-key", Model: "claude-haiku-4-5-20251001"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, ok := client.(*Anthropic); !ok {
		t.Errorf("expected *Anthropic, got %T", client)
	}
}

func TestNewClientAnthropicMissingKey(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewClientOllama(t *testing.T) {
	cfg := config.LLMConfig{Provider: "ollama"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	o, ok := client.(*Ollama)
	if !ok {
		t.Fatalf("expected *Ollama, got %T", client)
	}
	if o.url != "http://localhost:11434" {
		t.Errorf("url = %q, want the local default", o.url)
	}
	if o.model != "llama3.2" {
		t.Errorf("model = %q, want llama3.2 by default", o.model)
	}
}

func TestNewClientUnknown(t *testing.T) {
	cfg := config.LLMConfig{Provider: "gpt"}
	_, err := NewClient(cfg)
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFilterEnv(t *testing.T) {
	env := []string{
		"HOME=/home/user",
		"CLAUDE_SESSION_ID=abc123",
		"CLAUDE_TRANSCRIPT=/tmp/t.jsonl",
		"PATH=/usr/bin",
	}
	filtered := filterEnv(env)
	if len(filtered) != 2 {
		t.Errorf("expected 2 vars, got %d: %v", len(filtered), filtered)
	}
	for _, e := range filtered {
		if e == "CLAUDE_SESSION_ID=abc123" || e == "CLAUDE_TRANSCRIPT=/tmp/t.jsonl" {
			t.Errorf("CLAUDE_ var not filtered: %s", e)
		}
	}
}

func TestConceptExtractionPrompt(t *testing.T) {
	prompt := ConceptExtractionPrompt("discussing sqlite wal mode tradeoffs")

	if !strings.Contains(prompt, "discussing sqlite wal mode tradeoffs") {
		t.Error("prompt should carry the input text")
	}
	if !strings.Contains(prompt, "JSON array") {
		t.Error("prompt should demand a JSON array")
	}
	if !strings.Contains(prompt, "[]") {
		t.Error("prompt should name the empty fallback")
	}
}

func TestMockClient(t *testing.T) {
	mock := &MockClient{
		Response: &Response{Content: "test response", Provider: "mock"},
	}

	resp, err := mock.Complete(context.Background(), "test prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "test response" {
		t.Errorf("content = %q, want %q", resp.Content, "test response")
	}
	if len(mock.Calls) != 1 {
		t.Errorf("expected 1 call, got %d", len(mock.Calls))
	}
	if mock.Calls[0] != "test prompt" {
		t.Errorf("call[0] = %q, want %q", mock.Calls[0], "test prompt")
	}
}
