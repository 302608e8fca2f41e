package engine

import (
	"sort"
	"strings"
)

// Tier identifies which retention tier a record lives in. Records start
// short-term and move to long-term exactly once, via RunRetentionPass.
type Tier string

const (
	TierShortTerm Tier = "short-term"
	TierLongTerm  Tier = "long-term"
)

// InteractionRecord is one stored prompt/response exchange plus the
// metadata retrieval maintains. All timestamps are unix milliseconds.
type InteractionRecord struct {
	ID             string    `json:"id"`
	Seq            int64     `json:"seq"`
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response"`
	Embedding      []float64 `json:"embedding,omitempty"`
	Concepts       []string  `json:"concepts,omitempty"`
	CreatedAt      int64     `json:"created_at"`
	LastAccessedAt int64     `json:"last_accessed_at"`
	AccessCount    int       `json:"access_count"`
	DecayFactor    float64   `json:"decay_factor"`
	Tier           Tier      `json:"tier"`
}

// clone returns a deep copy; the embedding and concept slices are never
// shared with the original.
func (r *InteractionRecord) clone() InteractionRecord {
	out := *r
	if r.Embedding != nil {
		out.Embedding = append([]float64(nil), r.Embedding...)
	}
	if r.Concepts != nil {
		out.Concepts = append([]string(nil), r.Concepts...)
	}
	return out
}

func cloneRecords(recs []*InteractionRecord) []InteractionRecord {
	out := make([]InteractionRecord, len(recs))
	for i, r := range recs {
		out[i] = r.clone()
	}
	return out
}

// normalizeConcepts trims, lowercases, deduplicates, and sorts a concept
// list. Concepts are a set; sorting keeps snapshots and graph updates
// deterministic regardless of provider output order.
func normalizeConcepts(concepts []string) []string {
	if len(concepts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(concepts))
	var out []string
	for _, c := range concepts {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
