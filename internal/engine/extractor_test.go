package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lazypower/recall/internal/llm"
)

func TestParseConceptResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "clean array",
			content: `["go", "sqlite", "wal mode"]`,
			want:    []string{"go", "sqlite", "wal mode"},
		},
		{
			name:    "markdown fenced",
			content: "```json\n[\"error handling\", \"goroutines\"]\n```",
			want:    []string{"error handling", "goroutines"},
		},
		{
			name:    "prose wrapped",
			content: `Here are the concepts: ["testing", "mocks"] hope that helps!`,
			want:    []string{"testing", "mocks"},
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    nil,
		},
		{
			name:    "no array",
			content: "I could not determine any concepts.",
			wantErr: true,
		},
		{
			name:    "malformed array",
			content: `["unterminated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConceptResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseConceptResponse(%q) succeeded, want error", tt.content)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseConceptResponse: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("concept[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLLMExtractor(t *testing.T) {
	mock := &llm.MockClient{
		Response: &llm.Response{Content: `["SQLite", "WAL Mode", "Go"]`, Provider: "mock"},
	}
	x := NewLLMExtractor(mock)

	concepts, err := x.Extract(context.Background(), "how do I enable WAL mode in sqlite from Go?")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"go", "sqlite", "wal mode"}
	if !reflect.DeepEqual(concepts, want) {
		t.Errorf("concepts = %v, want %v", concepts, want)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(mock.Calls))
	}
	if !strings.Contains(mock.Calls[0], "WAL mode in sqlite") {
		t.Error("prompt should contain the input text")
	}
}

func TestLLMExtractorCapsBeforeSorting(t *testing.T) {
	// The model lists concepts most-central first; the cap keeps that
	// prefix, then output is normalized to sorted order.
	mock := &llm.MockClient{
		Response: &llm.Response{
			Content:  `["apple","berry","cherry","date","elder","fig","grape","honey","iris","juniper"]`,
			Provider: "mock",
		},
	}
	x := NewLLMExtractor(mock)

	concepts, err := x.Extract(context.Background(), "fruit salad")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(concepts) != 8 {
		t.Fatalf("len = %d, want 8", len(concepts))
	}
	for _, c := range concepts {
		if c == "iris" || c == "juniper" {
			t.Errorf("concept %q should have been cut by the cap", c)
		}
	}
}

func TestLLMExtractorClientError(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("connection refused")}
	x := NewLLMExtractor(mock)

	_, err := x.Extract(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected error when client fails")
	}

	var provider *ProviderError
	if !errors.As(err, &provider) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if provider.Provider != "llm" {
		t.Errorf("provider = %q, want llm", provider.Provider)
	}
}

func TestLLMExtractorBadResponse(t *testing.T) {
	mock := &llm.MockClient{
		Response: &llm.Response{Content: "Sorry, I cannot help with that.", Provider: "claude-cli"},
	}
	x := NewLLMExtractor(mock)

	_, err := x.Extract(context.Background(), "some text")
	if err == nil {
		t.Fatal("expected error for unparseable response")
	}

	var provider *ProviderError
	if !errors.As(err, &provider) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if provider.Provider != "claude-cli" {
		t.Errorf("provider = %q, want claude-cli", provider.Provider)
	}
}

func TestKeywordExtractor(t *testing.T) {
	x := NewKeywordExtractor(0)

	concepts, err := x.Extract(context.Background(), "The database uses sqlite for the database index")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"database", "index", "sqlite", "uses"}
	if !reflect.DeepEqual(concepts, want) {
		t.Errorf("concepts = %v, want %v", concepts, want)
	}
}

func TestKeywordExtractorFiltersShortAndStopWords(t *testing.T) {
	x := NewKeywordExtractor(0)

	concepts, err := x.Extract(context.Background(), "is it ok to go")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(concepts) != 0 {
		t.Errorf("concepts = %v, want none", concepts)
	}
}

func TestKeywordExtractorCap(t *testing.T) {
	x := NewKeywordExtractor(2)

	concepts, err := x.Extract(context.Background(), "alpha alpha alpha beta beta gamma delta")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(concepts, want) {
		t.Errorf("concepts = %v, want %v", concepts, want)
	}
}

func TestKeywordExtractorTieBreaksOnFirstAppearance(t *testing.T) {
	x := NewKeywordExtractor(2)

	// All tokens appear once; the earliest two survive the cap.
	concepts, err := x.Extract(context.Background(), "zebra yak xylophone")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(concepts) != 2 {
		t.Fatalf("len = %d, want 2", len(concepts))
	}
	for _, c := range concepts {
		if c == "xylophone" {
			t.Error("xylophone appeared last and should have been cut")
		}
	}
}

func TestKeywordExtractorNormalizesCase(t *testing.T) {
	x := NewKeywordExtractor(0)

	concepts, err := x.Extract(context.Background(), "PostgreSQL POSTGRESQL postgresql")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"postgresql"}
	if !reflect.DeepEqual(concepts, want) {
		t.Errorf("concepts = %v, want %v", concepts, want)
	}
}
