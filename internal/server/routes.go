package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// providerTimeout bounds the embed and extract calls made on behalf of
// a single request. The engine itself never blocks on providers.
const providerTimeout = 60 * time.Second

// fillInputs resolves the embedding and concepts for a piece of text,
// calling the providers only for whatever the request left out.
func (s *Server) fillInputs(ctx context.Context, text string, embedding []float64, concepts []string) ([]float64, []string, error) {
	if len(embedding) == 0 && s.embedder != nil && text != "" {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, nil, err
		}
		embedding = vec
	}
	if len(concepts) == 0 && s.extractor != nil && text != "" {
		found, err := s.extractor.Extract(ctx, text)
		if err != nil {
			return nil, nil, err
		}
		concepts = found
	}
	return embedding, concepts, nil
}

func (s *Server) handleAddInteraction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt    string    `json:"prompt"`
		Response  string    `json:"response"`
		Embedding []float64 `json:"embedding"`
		Concepts  []string  `json:"concepts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.Response) == "" {
		http.Error(w, `{"error":"prompt or response required"}`, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	text := strings.TrimSpace(req.Prompt + "\n" + req.Response)
	embedding, concepts, err := s.fillInputs(ctx, text, req.Embedding, req.Concepts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	id, err := s.engine.AddInteraction(ctx, req.Prompt, req.Response, embedding, concepts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	rec, _ := s.engine.Get(id)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":       id,
		"seq":      rec.Seq,
		"tier":     rec.Tier,
		"concepts": rec.Concepts,
		"dims":     len(rec.Embedding),
	})
}

func (s *Server) handleGetInteraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.engine.Get(id)
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	// Raw vectors are noise for API consumers; report the size instead.
	dims := len(rec.Embedding)
	rec.Embedding = nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"record": rec,
		"dims":   dims,
	})
}

type retrieveResultJSON struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Response    string   `json:"response"`
	Concepts    []string `json:"concepts,omitempty"`
	Tier        string   `json:"tier"`
	Score       float64  `json:"score"`
	Similarity  float64  `json:"similarity"`
	Activation  float64  `json:"activation"`
	AccessCount int      `json:"access_count"`
	DecayFactor float64  `json:"decay_factor"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string    `json:"query"`
		Embedding []float64 `json:"embedding"`
		Concepts  []string  `json:"concepts"`
		Limit     int       `json:"limit"`
		Threshold float64   `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	embedding, concepts, err := s.fillInputs(ctx, strings.TrimSpace(req.Query), req.Embedding, req.Concepts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	results, err := s.engine.Retrieve(ctx, embedding, concepts, req.Limit, req.Threshold)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := make([]retrieveResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, retrieveResultJSON{
			ID:          res.Record.ID,
			Prompt:      res.Record.Prompt,
			Response:    res.Record.Response,
			Concepts:    res.Record.Concepts,
			Tier:        string(res.Record.Tier),
			Score:       res.Score,
			Similarity:  res.Similarity,
			Activation:  res.Activation,
			AccessCount: res.Record.AccessCount,
			DecayFactor: res.Record.DecayFactor,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":   len(out),
		"results": out,
	})
}

func (s *Server) handleRetention(w http.ResponseWriter, r *http.Request) {
	promoted, err := s.engine.RunRetentionPass()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if promoted > 0 {
		log.Printf("retention: promoted %d records to long-term", promoted)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"promoted": promoted,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	short, long := s.engine.Snapshot()
	if err := s.db.SaveAll(short, long); err != nil {
		writeEngineError(w, err)
		return
	}
	log.Printf("snapshot: saved %d short-term, %d long-term", len(short), len(long))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"short":    len(short),
		"long":     len(long),
		"saved_at": time.Now().UnixMilli(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Stats()

	out := map[string]any{
		"short_term":     stats.ShortTerm,
		"long_term":      stats.LongTerm,
		"concepts":       stats.Concepts,
		"concept_edges":  stats.ConceptEdges,
		"embedding_dims": stats.EmbeddingDims,
	}
	if snap, err := s.db.LastSnapshot(); err == nil && snap != nil {
		out["last_snapshot"] = snap
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleConcepts(w http.ResponseWriter, r *http.Request) {
	concept := r.URL.Query().Get("c")
	if concept == "" {
		http.Error(w, `{"error":"c parameter required"}`, http.StatusBadRequest)
		return
	}

	neighbors := s.engine.ConceptNeighbors(concept)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"concept":   concept,
		"neighbors": neighbors,
		"count":     len(neighbors),
	})
}
