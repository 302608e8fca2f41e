package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lazypower/recall/internal/llm"
)

// maxConcepts caps how many concepts one text contributes. More than
// this just dilutes the co-occurrence graph with noise edges.
const maxConcepts = 8

// ConceptExtractor produces the concept set for a piece of text.
type ConceptExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// LLMExtractor asks a language model for concepts.
type LLMExtractor struct {
	client llm.Client
}

// NewLLMExtractor creates an extractor backed by the given LLM client.
func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{client: client}
}

// Extract prompts the model and parses its JSON array reply. The cap is
// applied before normalization so the model's own ranking decides which
// concepts survive. Failures come back as ProviderError.
func (x *LLMExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	resp, err := x.client.Complete(ctx, llm.ConceptExtractionPrompt(text))
	if err != nil {
		return nil, &ProviderError{Provider: "llm", Err: err}
	}

	concepts, err := parseConceptResponse(resp.Content)
	if err != nil {
		return nil, &ProviderError{Provider: resp.Provider, Err: err}
	}

	if len(concepts) > maxConcepts {
		concepts = concepts[:maxConcepts]
	}
	return normalizeConcepts(concepts), nil
}

// parseConceptResponse extracts a JSON string array from the LLM
// response. The response might contain markdown code fences or other
// wrapper text.
func parseConceptResponse(content string) ([]string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	content = strings.TrimSpace(content)

	// Find the JSON array
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var concepts []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &concepts); err != nil {
		return nil, fmt.Errorf("unmarshal concepts: %w", err)
	}

	return concepts, nil
}

// stopWords are tokens too common to carry meaning as concepts.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "my": true, "your": true, "you": true, "can": true,
	"not": true, "what": true, "how": true, "when": true, "about": true,
}

// KeywordExtractor is a deterministic fallback: frequency-ranked tokens
// after stop-word filtering. It never fails and needs no network.
type KeywordExtractor struct {
	max int
}

// NewKeywordExtractor creates a keyword extractor. max <= 0 uses the
// standard concept cap.
func NewKeywordExtractor(max int) *KeywordExtractor {
	if max <= 0 {
		max = maxConcepts
	}
	return &KeywordExtractor{max: max}
}

// Extract returns the most frequent meaningful tokens in text.
func (x *KeywordExtractor) Extract(_ context.Context, text string) ([]string, error) {
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, tok := range tokenize(text) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		if _, ok := counts[tok]; !ok {
			order[tok] = i
		}
		counts[tok]++
	}

	keywords := make([]string, 0, len(counts))
	for tok := range counts {
		keywords = append(keywords, tok)
	}
	// Frequency first, then first appearance, so output is stable
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return order[keywords[i]] < order[keywords[j]]
	})

	if len(keywords) > x.max {
		keywords = keywords[:x.max]
	}
	return normalizeConcepts(keywords), nil
}
