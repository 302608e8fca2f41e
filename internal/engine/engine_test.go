package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(DefaultConfig())
}

// seedRecord builds a restorable record with sane retrieval state.
func seedRecord(id string, seq int64, tier Tier) InteractionRecord {
	return InteractionRecord{
		ID:             id,
		Seq:            seq,
		Prompt:         "prompt " + id,
		Response:       "response " + id,
		CreatedAt:      1000,
		LastAccessedAt: 1000,
		AccessCount:    1,
		DecayFactor:    1.0,
		Tier:           tier,
	}
}

func TestAddInteraction(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	id, err := e.AddInteraction(ctx, "how do goroutines work", "they are lightweight threads", []float64{1, 0, 0}, []string{"goroutines", "concurrency"})
	if err != nil {
		t.Fatalf("AddInteraction: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	rec, ok := e.Get(id)
	if !ok {
		t.Fatal("record not found after add")
	}
	if rec.Seq != 1 {
		t.Errorf("seq = %d, want 1", rec.Seq)
	}
	if rec.AccessCount != 1 {
		t.Errorf("access_count = %d, want 1", rec.AccessCount)
	}
	if rec.DecayFactor != 1.0 {
		t.Errorf("decay_factor = %v, want 1.0", rec.DecayFactor)
	}
	if rec.Tier != TierShortTerm {
		t.Errorf("tier = %q, want %q", rec.Tier, TierShortTerm)
	}
	if rec.CreatedAt == 0 || rec.LastAccessedAt != rec.CreatedAt {
		t.Errorf("timestamps: created=%d last=%d, want equal and non-zero", rec.CreatedAt, rec.LastAccessedAt)
	}

	id2, err := e.AddInteraction(ctx, "second", "answer", nil, nil)
	if err != nil {
		t.Fatalf("second AddInteraction: %v", err)
	}
	if id2 == id {
		t.Error("ids must be unique")
	}
	rec2, _ := e.Get(id2)
	if rec2.Seq != 2 {
		t.Errorf("second seq = %d, want 2", rec2.Seq)
	}
}

func TestAddInteractionEmptyInputsValid(t *testing.T) {
	e := testEngine(t)

	id, err := e.AddInteraction(context.Background(), "", "", nil, nil)
	if err != nil {
		t.Fatalf("AddInteraction with empty inputs: %v", err)
	}
	rec, ok := e.Get(id)
	if !ok {
		t.Fatal("record not found")
	}
	if len(rec.Embedding) != 0 || len(rec.Concepts) != 0 {
		t.Errorf("expected empty embedding and concepts, got %v / %v", rec.Embedding, rec.Concepts)
	}
}

func TestAddInteractionNormalizesConcepts(t *testing.T) {
	e := testEngine(t)

	id, err := e.AddInteraction(context.Background(), "p", "r", nil, []string{" Go ", "GO", "AI", ""})
	if err != nil {
		t.Fatalf("AddInteraction: %v", err)
	}

	rec, _ := e.Get(id)
	if len(rec.Concepts) != 2 || rec.Concepts[0] != "ai" || rec.Concepts[1] != "go" {
		t.Errorf("concepts = %v, want [ai go]", rec.Concepts)
	}

	n := e.ConceptNeighbors("GO")
	if n["ai"] != 1 {
		t.Errorf("graph edge ai-go = %v, want 1", n["ai"])
	}
}

func TestAddInteractionDimensionMismatch(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	if _, err := e.AddInteraction(ctx, "a", "b", []float64{1, 0, 0}, nil); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := e.AddInteraction(ctx, "c", "d", []float64{1, 0}, []string{"x", "y"})
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidInputError", err)
	}

	// All or nothing: the rejected add left no trace
	stats := e.Stats()
	if stats.ShortTerm != 1 {
		t.Errorf("short_term = %d, want 1", stats.ShortTerm)
	}
	if stats.Concepts != 0 {
		t.Errorf("concepts = %d, want 0; rejected concepts must not touch the graph", stats.Concepts)
	}
}

func TestAddInteractionRejectsNaN(t *testing.T) {
	e := testEngine(t)

	_, err := e.AddInteraction(context.Background(), "a", "b", []float64{1, math.NaN()}, nil)
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidInputError", err)
	}
	if e.Stats().ShortTerm != 0 {
		t.Error("rejected add must leave the engine empty")
	}
}

func TestGetUnknown(t *testing.T) {
	e := testEngine(t)
	if _, ok := e.Get("nope"); ok {
		t.Error("expected ok=false for unknown id")
	}
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	idFar, _ := e.AddInteraction(ctx, "far", "", []float64{0, 1, 0}, nil)
	idNear, _ := e.AddInteraction(ctx, "near", "", []float64{1, 0, 0}, nil)
	idMid, _ := e.AddInteraction(ctx, "mid", "", []float64{1, 1, 0}, nil)

	results, err := e.Retrieve(ctx, []float64{1, 0, 0}, nil, 10, 0.01)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (orthogonal record scores 0)", len(results))
	}
	if results[0].Record.ID != idNear {
		t.Errorf("results[0] = %s, want %s", results[0].Record.ID, idNear)
	}
	if results[1].Record.ID != idMid {
		t.Errorf("results[1] = %s, want %s", results[1].Record.ID, idMid)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v <= %v", results[0].Score, results[1].Score)
	}
	if !almostEqual(results[0].Similarity, 1.0) {
		t.Errorf("similarity = %v, want 1.0", results[0].Similarity)
	}

	if _, ok := e.Get(idFar); !ok {
		t.Error("unselected record must still exist")
	}
}

func TestRetrieveSideEffects(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	hit, _ := e.AddInteraction(ctx, "hit", "", []float64{1, 0}, nil)
	miss, _ := e.AddInteraction(ctx, "miss", "", []float64{0, 1}, nil)

	results, err := e.Retrieve(ctx, []float64{1, 0}, nil, 1, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != hit {
		t.Fatalf("expected only the matching record, got %d results", len(results))
	}

	// The returned copy reflects the post-retrieval state
	if results[0].Record.AccessCount != 2 {
		t.Errorf("returned access_count = %d, want 2", results[0].Record.AccessCount)
	}
	if !almostEqual(results[0].Record.DecayFactor, 1.1) {
		t.Errorf("returned decay_factor = %v, want 1.1", results[0].Record.DecayFactor)
	}

	hitRec, _ := e.Get(hit)
	if hitRec.AccessCount != 2 {
		t.Errorf("hit access_count = %d, want 2", hitRec.AccessCount)
	}
	if !almostEqual(hitRec.DecayFactor, 1.1) {
		t.Errorf("hit decay_factor = %v, want 1.1", hitRec.DecayFactor)
	}
	if hitRec.LastAccessedAt < hitRec.CreatedAt {
		t.Errorf("hit last_accessed_at went backwards")
	}

	missRec, _ := e.Get(miss)
	if missRec.AccessCount != 1 {
		t.Errorf("miss access_count = %d, want 1", missRec.AccessCount)
	}
	if !almostEqual(missRec.DecayFactor, 0.9) {
		t.Errorf("miss decay_factor = %v, want 0.9", missRec.DecayFactor)
	}
	if missRec.LastAccessedAt != missRec.CreatedAt {
		t.Errorf("miss last_accessed_at must not change")
	}
}

func TestRetrieveEmptyResultStillAges(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	id, _ := e.AddInteraction(ctx, "p", "r", []float64{1, 0}, nil)

	results, err := e.Retrieve(ctx, []float64{1, 0}, nil, 5, 1e9)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %d, want 0", len(results))
	}

	rec, _ := e.Get(id)
	if !almostEqual(rec.DecayFactor, 0.9) {
		t.Errorf("decay_factor = %v, want 0.9; an empty retrieval is still the aging clock", rec.DecayFactor)
	}
}

func TestRetrieveValidationAgesNothing(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	id, _ := e.AddInteraction(ctx, "p", "r", []float64{1, 0}, nil)

	cases := []struct {
		name string
		run  func() error
	}{
		{"zero limit", func() error {
			_, err := e.Retrieve(ctx, []float64{1, 0}, nil, 0, 0)
			return err
		}},
		{"nan threshold", func() error {
			_, err := e.Retrieve(ctx, []float64{1, 0}, nil, 5, math.NaN())
			return err
		}},
		{"nan query", func() error {
			_, err := e.Retrieve(ctx, []float64{math.NaN(), 0}, nil, 5, 0)
			return err
		}},
		{"dims mismatch", func() error {
			_, err := e.Retrieve(ctx, []float64{1, 0, 0}, nil, 5, 0)
			return err
		}},
	}

	for _, tc := range cases {
		err := tc.run()
		var invalid *InvalidInputError
		if !errors.As(err, &invalid) {
			t.Errorf("%s: err = %v, want InvalidInputError", tc.name, err)
		}
	}

	rec, _ := e.Get(id)
	if rec.DecayFactor != 1.0 {
		t.Errorf("decay_factor = %v, want 1.0; failed validation must not age records", rec.DecayFactor)
	}
}

func TestRetrieveLimitTruncates(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e.AddInteraction(ctx, "p", "r", []float64{1, 0}, nil)
	}

	results, err := e.Retrieve(ctx, []float64{1, 0}, nil, 2, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
}

func TestRetrieveTieBreaks(t *testing.T) {
	// Identical scores: more recently accessed wins, then lower seq.
	short := []InteractionRecord{
		seedRecord("older-access", 1, TierShortTerm),
		seedRecord("newer-access", 2, TierShortTerm),
		seedRecord("same-access-lower-seq", 3, TierShortTerm),
	}
	short[0].LastAccessedAt = 1000
	short[1].LastAccessedAt = 2000
	short[2].LastAccessedAt = 1000

	e := testEngine(t)
	if err := e.Restore(short, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	results, err := e.Retrieve(context.Background(), nil, nil, 10, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	got := []string{results[0].Record.ID, results[1].Record.ID, results[2].Record.ID}
	want := []string{"newer-access", "older-access", "same-access-lower-seq"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRetrieveConceptAssociation(t *testing.T) {
	// Two records sharing a concept: the one linked to the query concept
	// through the co-occurrence graph must outrank the one further away.
	e := testEngine(t)
	ctx := context.Background()

	direct, _ := e.AddInteraction(ctx, "intro to ai", "", nil, []string{"ai", "ml"})
	indirect, _ := e.AddInteraction(ctx, "deep nets", "", nil, []string{"ml", "nn"})

	results, err := e.Retrieve(ctx, nil, []string{"ai"}, 10, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Record.ID != direct || results[1].Record.ID != indirect {
		t.Fatalf("order = [%s %s], want [%s %s]", results[0].Record.ID, results[1].Record.ID, direct, indirect)
	}

	// ai spreads 0.5 to ml, then ml passes 0.25 back to ai and on to nn:
	// {ai:1.25, ml:0.5, nn:0.25}
	if !almostEqual(results[0].Activation, 1.75) {
		t.Errorf("direct activation = %v, want 1.75", results[0].Activation)
	}
	if !almostEqual(results[1].Activation, 0.75) {
		t.Errorf("indirect activation = %v, want 0.75", results[1].Activation)
	}
}

func TestRetrieveConceptTriangle(t *testing.T) {
	// Three records whose concept pairs close a triangle. With zero
	// embeddings everywhere, the two records carrying the query concept
	// must outrank the third on activation alone.
	e := testEngine(t)
	ctx := context.Background()

	aiML, _ := e.AddInteraction(ctx, "ai and ml", "", nil, []string{"AI", "ML"})
	mlNN, _ := e.AddInteraction(ctx, "ml and nn", "", nil, []string{"ML", "NN"})
	aiNN, _ := e.AddInteraction(ctx, "ai and nn", "", nil, []string{"AI", "NN"})

	stats := e.Stats()
	if stats.Concepts != 3 || stats.ConceptEdges != 3 {
		t.Fatalf("graph = %d concepts / %d edges, want 3/3", stats.Concepts, stats.ConceptEdges)
	}

	results, err := e.Retrieve(ctx, nil, []string{"AI"}, 10, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	// Spread from ai: {ai:1.5, ml:0.75, nn:0.75}. Both ai records score
	// 2.25 and tie; the ml-nn record trails at 1.5.
	top := map[string]bool{results[0].Record.ID: true, results[1].Record.ID: true}
	if !top[aiML] || !top[aiNN] {
		t.Errorf("top two = [%s %s], want the ai records in either order", results[0].Record.ID, results[1].Record.ID)
	}
	if results[2].Record.ID != mlNN {
		t.Errorf("results[2] = %s, want %s", results[2].Record.ID, mlNN)
	}
	for i, r := range results[:2] {
		if !almostEqual(r.Activation, 2.25) {
			t.Errorf("results[%d] activation = %v, want 2.25", i, r.Activation)
		}
		if r.Similarity != 0 {
			t.Errorf("results[%d] similarity = %v, want 0", i, r.Similarity)
		}
	}
	if !almostEqual(results[2].Activation, 1.5) {
		t.Errorf("ml-nn activation = %v, want 1.5", results[2].Activation)
	}
}

func TestRetrieveEmptyEngine(t *testing.T) {
	e := testEngine(t)

	results, err := e.Retrieve(context.Background(), nil, nil, 5, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestRetentionPromotesPastThreshold(t *testing.T) {
	// Default threshold 10: count 10 stays, count 11 moves.
	atLimit := seedRecord("at-limit", 1, TierShortTerm)
	atLimit.AccessCount = 10
	past := seedRecord("past-limit", 2, TierShortTerm)
	past.AccessCount = 11

	e := testEngine(t)
	if err := e.Restore([]InteractionRecord{atLimit, past}, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	promoted, err := e.RunRetentionPass()
	if err != nil {
		t.Fatalf("RunRetentionPass: %v", err)
	}
	if promoted != 1 {
		t.Errorf("promoted = %d, want 1", promoted)
	}

	stats := e.Stats()
	if stats.ShortTerm != 1 || stats.LongTerm != 1 {
		t.Errorf("tiers = %d/%d, want 1/1", stats.ShortTerm, stats.LongTerm)
	}

	rec, _ := e.Get("past-limit")
	if rec.Tier != TierLongTerm {
		t.Errorf("tier = %q, want %q", rec.Tier, TierLongTerm)
	}
	if rec.AccessCount != 11 || rec.Seq != 2 {
		t.Errorf("promotion must preserve identity: count=%d seq=%d", rec.AccessCount, rec.Seq)
	}

	// Idempotent: nothing new qualifies
	promoted, err = e.RunRetentionPass()
	if err != nil {
		t.Fatalf("second RunRetentionPass: %v", err)
	}
	if promoted != 0 {
		t.Errorf("second pass promoted = %d, want 0", promoted)
	}
}

func TestRetentionAfterRetrievals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PromotionThreshold = 2
	e := New(cfg)
	ctx := context.Background()

	id, _ := e.AddInteraction(ctx, "popular", "", []float64{1, 0}, nil)
	e.AddInteraction(ctx, "ignored", "", []float64{0, 1}, nil)

	// Two matching retrievals push the record's count to 3
	for i := 0; i < 2; i++ {
		if _, err := e.Retrieve(ctx, []float64{1, 0}, nil, 1, 0.5); err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
	}

	promoted, err := e.RunRetentionPass()
	if err != nil {
		t.Fatalf("RunRetentionPass: %v", err)
	}
	if promoted != 1 {
		t.Errorf("promoted = %d, want 1", promoted)
	}
	rec, _ := e.Get(id)
	if rec.Tier != TierLongTerm {
		t.Errorf("tier = %q, want %q", rec.Tier, TierLongTerm)
	}

	// Long-term records keep participating in retrieval
	results, err := e.Retrieve(ctx, []float64{1, 0}, nil, 1, 0.5)
	if err != nil {
		t.Fatalf("Retrieve after promotion: %v", err)
	}
	if len(results) != 1 || results[0].Record.ID != id {
		t.Error("promoted record must stay retrievable")
	}
}

func TestRetentionConsistencyCheck(t *testing.T) {
	e := testEngine(t)
	rec := seedRecord("bad", 1, TierLongTerm)
	p := &rec
	e.short = append(e.short, p)
	e.byID[p.ID] = p

	_, err := e.RunRetentionPass()
	var consistency *ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	id, _ := e.AddInteraction(ctx, "p", "r", []float64{1, 2}, []string{"a", "b"})

	short, _ := e.Snapshot()
	if len(short) != 1 {
		t.Fatalf("snapshot short = %d, want 1", len(short))
	}

	short[0].Embedding[0] = 99
	short[0].Concepts[0] = "mutated"
	short[0].AccessCount = 99

	rec, _ := e.Get(id)
	if rec.Embedding[0] != 1 {
		t.Errorf("embedding = %v, want 1; snapshot must not alias engine state", rec.Embedding[0])
	}
	if rec.Concepts[0] != "a" {
		t.Errorf("concepts[0] = %q, want a", rec.Concepts[0])
	}
	if rec.AccessCount != 1 {
		t.Errorf("access_count = %d, want 1", rec.AccessCount)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	e.AddInteraction(ctx, "first", "one", []float64{1, 0}, []string{"ai", "ml"})
	e.AddInteraction(ctx, "second", "two", []float64{0, 1}, []string{"ml", "nn"})
	if _, err := e.Retrieve(ctx, []float64{1, 0}, nil, 1, 0.5); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	short, long := e.Snapshot()

	restored := testEngine(t)
	if err := restored.Restore(short, long); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	short2, long2 := restored.Snapshot()
	if len(short2) != len(short) || len(long2) != len(long) {
		t.Fatalf("restored tiers = %d/%d, want %d/%d", len(short2), len(long2), len(short), len(long))
	}
	for i := range short {
		a, b := short[i], short2[i]
		if a.ID != b.ID || a.Seq != b.Seq || a.AccessCount != b.AccessCount ||
			!almostEqual(a.DecayFactor, b.DecayFactor) || a.LastAccessedAt != b.LastAccessedAt {
			t.Errorf("record %d changed across restore: %+v vs %+v", i, a, b)
		}
	}

	// The concept graph is rebuilt by replaying concept sets
	if n := restored.ConceptNeighbors("ml"); n["ai"] != 1 || n["nn"] != 1 {
		t.Errorf("restored graph neighbors of ml = %v, want ai:1 nn:1", n)
	}

	// The sequence resumes after the highest restored value
	id, err := restored.AddInteraction(ctx, "third", "", nil, nil)
	if err != nil {
		t.Fatalf("add after restore: %v", err)
	}
	rec, _ := restored.Get(id)
	if rec.Seq != 3 {
		t.Errorf("seq after restore = %d, want 3", rec.Seq)
	}
}

func TestRestoreRejectsBadState(t *testing.T) {
	base := seedRecord("a", 1, TierShortTerm)

	dup := seedRecord("a", 2, TierShortTerm)

	dupLong := seedRecord("a", 9, TierLongTerm)

	wrongTier := seedRecord("b", 2, TierLongTerm)

	deadDecay := seedRecord("c", 3, TierShortTerm)
	deadDecay.DecayFactor = 0

	zeroCount := seedRecord("d", 4, TierShortTerm)
	zeroCount.AccessCount = 0

	noID := seedRecord("", 5, TierShortTerm)

	dimsA := seedRecord("e", 6, TierShortTerm)
	dimsA.Embedding = []float64{1, 0}
	dimsB := seedRecord("f", 7, TierShortTerm)
	dimsB.Embedding = []float64{1, 0, 0}

	cases := []struct {
		name  string
		short []InteractionRecord
		long  []InteractionRecord
	}{
		{"duplicate id", []InteractionRecord{base, dup}, nil},
		{"duplicate id across tiers", []InteractionRecord{base}, []InteractionRecord{dupLong}},
		{"tier mismatch", []InteractionRecord{wrongTier}, nil},
		{"non-positive decay", []InteractionRecord{deadDecay}, nil},
		{"zero access count", []InteractionRecord{zeroCount}, nil},
		{"empty id", []InteractionRecord{noID}, nil},
		{"conflicting dims", []InteractionRecord{dimsA, dimsB}, nil},
	}

	for _, tc := range cases {
		e := testEngine(t)
		if _, err := e.AddInteraction(context.Background(), "keep", "", nil, nil); err != nil {
			t.Fatalf("%s: seed add: %v", tc.name, err)
		}

		err := e.Restore(tc.short, tc.long)
		var consistency *ConsistencyError
		if !errors.As(err, &consistency) {
			t.Errorf("%s: err = %v, want ConsistencyError", tc.name, err)
			continue
		}

		// Failed restore leaves the previous state in place
		if e.Stats().ShortTerm != 1 {
			t.Errorf("%s: short_term = %d, want 1", tc.name, e.Stats().ShortTerm)
		}
	}
}

func TestRestoreAdoptsDimensions(t *testing.T) {
	withVec := seedRecord("v", 1, TierShortTerm)
	withVec.Embedding = []float64{1, 0}

	e := testEngine(t)
	if err := e.Restore([]InteractionRecord{withVec}, nil); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	ctx := context.Background()
	if _, err := e.AddInteraction(ctx, "p", "r", []float64{1, 0, 0}, nil); err == nil {
		t.Error("expected dimension mismatch after restore fixed dims at 2")
	}
	if _, err := e.AddInteraction(ctx, "p", "r", []float64{0, 1}, nil); err != nil {
		t.Errorf("matching dims rejected: %v", err)
	}
}

func TestStats(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	e.AddInteraction(ctx, "a", "", []float64{1, 0, 0}, []string{"x", "y"})
	e.AddInteraction(ctx, "b", "", []float64{0, 1, 0}, []string{"y", "z"})

	s := e.Stats()
	if s.ShortTerm != 2 || s.LongTerm != 0 {
		t.Errorf("tiers = %d/%d, want 2/0", s.ShortTerm, s.LongTerm)
	}
	if s.Concepts != 3 {
		t.Errorf("concepts = %d, want 3", s.Concepts)
	}
	if s.ConceptEdges != 2 {
		t.Errorf("edges = %d, want 2", s.ConceptEdges)
	}
	if s.EmbeddingDims != 3 {
		t.Errorf("dims = %d, want 3", s.EmbeddingDims)
	}
}

func TestConfigDefaults(t *testing.T) {
	e := New(Config{})
	cfg := e.Config()
	def := DefaultConfig()

	if cfg.PromotionThreshold != def.PromotionThreshold {
		t.Errorf("promotion threshold = %d, want %d", cfg.PromotionThreshold, def.PromotionThreshold)
	}
	if cfg.RetrievalBoost != def.RetrievalBoost || cfg.AgingFactor != def.AgingFactor {
		t.Errorf("decay multipliers = %v/%v, want %v/%v", cfg.RetrievalBoost, cfg.AgingFactor, def.RetrievalBoost, def.AgingFactor)
	}

	custom := New(Config{PromotionThreshold: 3, AgingFactor: 0.5})
	if custom.Config().PromotionThreshold != 3 {
		t.Errorf("custom threshold = %d, want 3", custom.Config().PromotionThreshold)
	}
	if custom.Config().AgingFactor != 0.5 {
		t.Errorf("custom aging = %v, want 0.5", custom.Config().AgingFactor)
	}
	if custom.Config().RetrievalBoost != def.RetrievalBoost {
		t.Errorf("unset boost = %v, want default %v", custom.Config().RetrievalBoost, def.RetrievalBoost)
	}
}

func TestConcurrentAdds(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := e.AddInteraction(ctx, "p", "r", nil, []string{"shared", "concept"}); err != nil {
					t.Errorf("AddInteraction: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	short, _ := e.Snapshot()
	if len(short) != workers*perWorker {
		t.Fatalf("records = %d, want %d", len(short), workers*perWorker)
	}

	seen := make(map[int64]bool, len(short))
	ids := make(map[string]bool, len(short))
	for _, rec := range short {
		if seen[rec.Seq] {
			t.Fatalf("duplicate seq %d", rec.Seq)
		}
		seen[rec.Seq] = true
		if ids[rec.ID] {
			t.Fatalf("duplicate id %s", rec.ID)
		}
		ids[rec.ID] = true
	}
	for s := int64(1); s <= int64(workers*perWorker); s++ {
		if !seen[s] {
			t.Fatalf("missing seq %d", s)
		}
	}

	if w := e.ConceptNeighbors("shared")["concept"]; w != float64(workers*perWorker) {
		t.Errorf("edge weight = %v, want %d", w, workers*perWorker)
	}
}
