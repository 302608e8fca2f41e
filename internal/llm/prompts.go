package llm

import "fmt"

// ConceptExtractionPrompt generates the prompt for extracting the key
// concepts of an interaction for the semantic memory index.
func ConceptExtractionPrompt(text string) string {
	return fmt.Sprintf(`You are a concept extraction system. Identify the key concepts in this exchange for a semantic memory index.

TEXT:
%s

A concept is a short noun phrase naming a topic, entity, technology, or idea the text is about
(e.g., "neural networks", "sqlite", "error handling").

Rules:
- 3 to 8 concepts, most central first
- Lowercase, 1-3 words each
- No duplicates, no generic filler ("question", "discussion", "help")
- Return ONLY a JSON array of strings, no other text

Return a JSON array:
["concept", "another concept"]

If the text has no meaningful concepts, return: []`, text)
}
