package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/engine"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 8
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	block, err := s.buildContext(ctx, query, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"context": block,
	})
}

// buildContext renders the memory markdown for prompt injection. With a
// query it runs a real retrieval, so the memories it surfaces are
// reinforced like any other access. Without one it lists the records the
// engine currently holds strongest and leaves their state alone.
func (s *Server) buildContext(ctx context.Context, query string, limit int) (string, error) {
	var b strings.Builder
	b.WriteString("<memory>\n## Recall — Conversation Memory\n")

	if query != "" {
		embedding, concepts, err := s.fillInputs(ctx, query, nil, nil)
		if err != nil {
			return "", err
		}
		results, err := s.engine.Retrieve(ctx, embedding, concepts, limit, 0)
		if err != nil {
			return "", err
		}
		if len(results) > 0 {
			b.WriteString(fmt.Sprintf("\n### Related to %q\n", clip(query, 80)))
			for _, res := range results {
				writeContextItem(&b, res.Record)
			}
		}
	} else {
		short, long := s.engine.Snapshot()
		records := append(long, short...)
		sort.Slice(records, func(i, j int) bool {
			return standingStrength(records[i]) > standingStrength(records[j])
		})
		if len(records) > limit {
			records = records[:limit]
		}
		if len(records) > 0 {
			b.WriteString("\n### Strongest Memories\n")
			for _, rec := range records {
				writeContextItem(&b, rec)
			}
		}
	}

	b.WriteString("</memory>")
	return b.String(), nil
}

func writeContextItem(b *strings.Builder, rec engine.InteractionRecord) {
	ts := time.UnixMilli(rec.CreatedAt).Format("2006-01-02")
	b.WriteString(fmt.Sprintf("- [%s, %s] %s\n", rec.Tier, ts, clip(rec.Prompt, 120)))
	if resp := clip(rec.Response, 200); resp != "" {
		b.WriteString(fmt.Sprintf("  %s\n", resp))
	}
}

// standingStrength ranks a record when no query is in play: reinforcement
// times diminishing access returns, the same durability signal the scorer
// uses. Similarity and activation have nothing to say without a query.
func standingStrength(rec engine.InteractionRecord) float64 {
	return rec.DecayFactor * math.Log(1+float64(rec.AccessCount))
}

// clip collapses whitespace and truncates s to at most n runes.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
