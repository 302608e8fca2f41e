package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/store"
)

// engineConfig maps the file-level engine section onto the engine's own
// config type. Zero values stay zero so the engine's defaults apply.
func engineConfig(c config.EngineConfig) engine.Config {
	return engine.Config{
		PromotionThreshold: c.PromotionThreshold,
		RetrievalBoost:     c.RetrievalBoost,
		AgingFactor:        c.AgingFactor,
		ActivationSteps:    c.ActivationSteps,
		ActivationDecay:    c.ActivationDecay,
		SimilarityWeight:   c.SimilarityWeight,
		ActivationWeight:   c.ActivationWeight,
		EmbeddingDims:      c.EmbeddingDims,
	}
}

// openDB opens the database for CLI commands.
// Respects RECALL_DB (via config), falls back to ~/.recall/recall.db.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// loadEngine opens the database and restores the engine from it, for the
// one-shot commands that run without a daemon.
func loadEngine(cfg config.Config) (*engine.Engine, *store.DB, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}

	eng := engine.New(engineConfig(cfg.Engine))
	short, long, err := db.LoadAll()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	if err := eng.Restore(short, long); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("restore state: %w", err)
	}
	return eng, db, nil
}

// localEmbedder builds the daemon-less embedder: TF-IDF over whatever the
// store already holds plus the texts about to be embedded. Ollama and
// OpenAI detection is server-side only.
func localEmbedder(eng *engine.Engine, extra ...string) *engine.TFIDFEmbedder {
	short, long := eng.Snapshot()
	docs := make([]string, 0, len(short)+len(long)+len(extra))
	for _, recs := range [][]engine.InteractionRecord{short, long} {
		for _, rec := range recs {
			docs = append(docs, rec.Prompt+"\n"+rec.Response)
		}
	}
	docs = append(docs, extra...)
	return engine.NewTFIDFEmbedder(docs, 512)
}

// fitEmbedding discards a vector whose dimension cannot join the store,
// degrading the record or query to concept-only matching.
func fitEmbedding(vec []float64, dims int) []float64 {
	if len(vec) > 0 && dims > 0 && len(vec) != dims {
		fmt.Fprintf(os.Stderr, "note: local embedding has %d dims, store has %d; matching on concepts only\n", len(vec), dims)
		return nil
	}
	return vec
}

// saveState persists the engine's current snapshot.
func saveState(eng *engine.Engine, db *store.DB) error {
	short, long := eng.Snapshot()
	if err := db.SaveAll(short, long); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// daemonAddr resolves the --addr flag against the RECALL_URL env var.
// Empty means direct mode against the local database.
func daemonAddr(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("RECALL_URL")
}

// oneLine collapses whitespace and truncates for terminal display.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
