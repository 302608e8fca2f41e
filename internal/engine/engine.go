package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PersistenceBackend loads and saves the engine's full state. The engine
// never calls it on its own: hosts restore once at startup and save on
// whatever cadence they choose (see cli/serve.go).
type PersistenceBackend interface {
	LoadAll() (short, long []InteractionRecord, err error)
	SaveAll(short, long []InteractionRecord) error
}

// Engine is the in-memory semantic store. One mutex guards the tier
// lists, the concept graph, and every mutable record field; public
// methods take it internally and all records they return are copies.
// Embedding and concept extraction happen outside the engine, so no
// provider is ever awaited under the lock.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	dims  int   // embedding dimension; 0 until fixed by config or the first vector
	seq   int64 // next insertion sequence
	short []*InteractionRecord
	long  []*InteractionRecord
	byID  map[string]*InteractionRecord
	graph *ConceptGraph
}

// New creates an empty engine. Zero fields in cfg fall back to
// DefaultConfig values.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:   cfg,
		dims:  cfg.EmbeddingDims,
		seq:   1,
		byID:  make(map[string]*InteractionRecord),
		graph: NewConceptGraph(),
	}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// checkVector rejects embeddings containing NaN or infinite components.
func checkVector(vec []float64) error {
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidInputError{Reason: fmt.Sprintf("embedding component %d is not finite", i)}
		}
	}
	return nil
}

// AddInteraction stores a new interaction and returns its id. The record
// starts short-term with AccessCount 1 and DecayFactor 1.0, and its
// concept set strengthens the co-occurrence graph pairwise. Empty
// embeddings and empty concept sets are valid. Validation failures
// return InvalidInputError with the engine untouched.
func (e *Engine) AddInteraction(ctx context.Context, prompt, response string, embedding []float64, concepts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkVector(embedding); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(embedding) > 0 {
		if e.dims == 0 {
			e.dims = len(embedding)
		} else if len(embedding) != e.dims {
			return "", &InvalidInputError{Reason: fmt.Sprintf("embedding dimension %d, want %d", len(embedding), e.dims)}
		}
	}

	now := time.Now().UnixMilli()
	rec := &InteractionRecord{
		ID:             uuid.NewString(),
		Seq:            e.seq,
		Prompt:         prompt,
		Response:       response,
		Embedding:      append([]float64(nil), embedding...),
		Concepts:       normalizeConcepts(concepts),
		CreatedAt:      now,
		LastAccessedAt: now,
		AccessCount:    1,
		DecayFactor:    1.0,
		Tier:           TierShortTerm,
	}
	e.seq++

	e.short = append(e.short, rec)
	e.byID[rec.ID] = rec
	e.graph.AddCooccurrence(rec.Concepts)

	return rec.ID, nil
}

// Get returns a copy of one record by id. Lookups are not retrievals:
// they never touch access counts or decay factors.
func (e *Engine) Get(id string) (InteractionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.byID[id]
	if !ok {
		return InteractionRecord{}, false
	}
	return rec.clone(), true
}

// RetrievalResult pairs a retrieved record with its ranking breakdown.
// Record reflects the state after the retrieval's own reinforcement; the
// score fields hold the values the ranking used.
type RetrievalResult struct {
	Record     InteractionRecord `json:"record"`
	Score      float64           `json:"score"`
	Similarity float64           `json:"similarity"`
	Activation float64           `json:"activation"`
}

// Retrieve scores every record in both tiers against the query embedding
// and concepts, drops scores below threshold, and returns at most limit
// results ordered best-first. Ties go to the more recently accessed
// record, then to insertion order.
//
// Retrieval is the engine's only clock: each returned record is
// reinforced (AccessCount+1, LastAccessedAt set, DecayFactor scaled by
// RetrievalBoost) and every record not returned ages (DecayFactor scaled
// by AgingFactor). An empty result is valid and still ages the store;
// validation failures age nothing.
func (e *Engine) Retrieve(ctx context.Context, queryEmbedding []float64, queryConcepts []string, limit int, threshold float64) ([]RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("limit %d, want > 0", limit)}
	}
	if math.IsNaN(threshold) {
		return nil, &InvalidInputError{Reason: "threshold is NaN"}
	}
	if err := checkVector(queryEmbedding); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(queryEmbedding) > 0 && e.dims != 0 && len(queryEmbedding) != e.dims {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("query embedding dimension %d, want %d", len(queryEmbedding), e.dims)}
	}

	// One activation spread serves the whole pass.
	activation := e.graph.Spread(normalizeConcepts(queryConcepts), e.cfg.ActivationSteps, e.cfg.ActivationDecay)

	type candidate struct {
		rec        *InteractionRecord
		score      float64
		similarity float64
		activation float64
	}
	var candidates []candidate
	for _, tier := range [][]*InteractionRecord{e.short, e.long} {
		for _, rec := range tier {
			score, sim, act := relevance(e.cfg, rec, queryEmbedding, activation)
			if score < threshold {
				continue
			}
			candidates = append(candidates, candidate{rec, score, sim, act})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].rec.LastAccessedAt != candidates[j].rec.LastAccessedAt {
			return candidates[i].rec.LastAccessedAt > candidates[j].rec.LastAccessedAt
		}
		return candidates[i].rec.Seq < candidates[j].rec.Seq
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	now := time.Now().UnixMilli()
	selected := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		c.rec.AccessCount++
		c.rec.LastAccessedAt = now
		c.rec.DecayFactor *= e.cfg.RetrievalBoost
		selected[c.rec.ID] = true
	}
	for _, tier := range [][]*InteractionRecord{e.short, e.long} {
		for _, rec := range tier {
			if selected[rec.ID] {
				continue
			}
			rec.DecayFactor *= e.cfg.AgingFactor
		}
	}

	results := make([]RetrievalResult, len(candidates))
	for i, c := range candidates {
		results[i] = RetrievalResult{
			Record:     c.rec.clone(),
			Score:      c.score,
			Similarity: c.similarity,
			Activation: c.activation,
		}
	}
	return results, nil
}

// RunRetentionPass moves every short-term record whose AccessCount has
// exceeded the promotion threshold into long-term, preserving identity
// and relative order, and returns the number promoted. Calling it again
// without intervening retrievals promotes nothing. The engine never
// schedules the pass itself; hosts do.
func (e *Engine) RunRetentionPass() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.short {
		if rec.Tier != TierShortTerm {
			return 0, &ConsistencyError{Reason: fmt.Sprintf("record %s in short-term list has tier %q", rec.ID, rec.Tier)}
		}
	}

	kept := e.short[:0]
	promoted := 0
	for _, rec := range e.short {
		if rec.AccessCount > e.cfg.PromotionThreshold {
			rec.Tier = TierLongTerm
			e.long = append(e.long, rec)
			promoted++
			continue
		}
		kept = append(kept, rec)
	}
	e.short = kept
	return promoted, nil
}

// Snapshot returns deep copies of both tier lists in insertion order,
// ready to hand to a PersistenceBackend.
func (e *Engine) Snapshot() (short, long []InteractionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneRecords(e.short), cloneRecords(e.long)
}

// Restore replaces the engine's state with records loaded from a
// PersistenceBackend. Concept sets are re-normalized, the co-occurrence
// graph is rebuilt by replaying every record's concept set, and the
// insertion sequence resumes after the highest restored Seq. Duplicate
// ids, non-positive decay factors, tier/list mismatches, and conflicting
// embedding dimensions return a ConsistencyError with the engine
// unchanged.
func (e *Engine) Restore(short, long []InteractionRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	byID := make(map[string]*InteractionRecord, len(short)+len(long))
	graph := NewConceptGraph()
	dims := e.cfg.EmbeddingDims
	var maxSeq int64

	restoreTier := func(recs []InteractionRecord, tier Tier) ([]*InteractionRecord, error) {
		out := make([]*InteractionRecord, 0, len(recs))
		for i := range recs {
			rec := recs[i].clone()
			if rec.ID == "" {
				return nil, &ConsistencyError{Reason: "record with empty id"}
			}
			if byID[rec.ID] != nil {
				return nil, &ConsistencyError{Reason: "duplicate record id " + rec.ID}
			}
			if rec.Tier != tier {
				return nil, &ConsistencyError{Reason: fmt.Sprintf("record %s has tier %q in the %s list", rec.ID, rec.Tier, tier)}
			}
			if rec.DecayFactor <= 0 {
				return nil, &ConsistencyError{Reason: fmt.Sprintf("record %s has decay factor %v", rec.ID, rec.DecayFactor)}
			}
			if rec.AccessCount < 1 {
				return nil, &ConsistencyError{Reason: fmt.Sprintf("record %s has access count %d", rec.ID, rec.AccessCount)}
			}
			if len(rec.Embedding) > 0 {
				if err := checkVector(rec.Embedding); err != nil {
					return nil, &ConsistencyError{Reason: fmt.Sprintf("record %s embedding is not finite", rec.ID)}
				}
				if dims == 0 {
					dims = len(rec.Embedding)
				} else if len(rec.Embedding) != dims {
					return nil, &ConsistencyError{Reason: fmt.Sprintf("record %s embedding dimension %d, want %d", rec.ID, len(rec.Embedding), dims)}
				}
			}
			rec.Concepts = normalizeConcepts(rec.Concepts)
			if rec.Seq > maxSeq {
				maxSeq = rec.Seq
			}
			p := &rec
			byID[p.ID] = p
			graph.AddCooccurrence(p.Concepts)
			out = append(out, p)
		}
		return out, nil
	}

	newShort, err := restoreTier(short, TierShortTerm)
	if err != nil {
		return err
	}
	newLong, err := restoreTier(long, TierLongTerm)
	if err != nil {
		return err
	}

	e.short = newShort
	e.long = newLong
	e.byID = byID
	e.graph = graph
	e.dims = dims
	e.seq = maxSeq + 1
	return nil
}

// Stats describes the engine's current contents.
type Stats struct {
	ShortTerm     int `json:"short_term"`
	LongTerm      int `json:"long_term"`
	Concepts      int `json:"concepts"`
	ConceptEdges  int `json:"concept_edges"`
	EmbeddingDims int `json:"embedding_dims"`
}

// Stats reports record and concept graph counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		ShortTerm:     len(e.short),
		LongTerm:      len(e.long),
		Concepts:      e.graph.ConceptCount(),
		ConceptEdges:  e.graph.EdgeCount(),
		EmbeddingDims: e.dims,
	}
}

// ConceptNeighbors returns the co-occurrence weights around one concept,
// normalized the same way stored concepts are. The map is a copy.
func (e *Engine) ConceptNeighbors(concept string) map[string]float64 {
	norm := normalizeConcepts([]string{concept})
	if len(norm) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Neighbors(norm[0])
}
