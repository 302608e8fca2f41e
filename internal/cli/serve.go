package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/llm"
	"github.com/lazypower/recall/internal/server"
	"github.com/lazypower/recall/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	// An explicit API key beats shelling out to the CLI.
	if cfg.LLM.AnthropicKey != "" && cfg.LLM.Provider == "claude-cli" {
		cfg.LLM.Provider = "anthropic"
	}

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	eng := engine.New(engineConfig(cfg.Engine))
	short, long, err := db.LoadAll()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := eng.Restore(short, long); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  restored %d short-term, %d long-term\n", len(short), len(long))

	embedder := buildEmbedder(cfg, eng)
	extractor := buildExtractor(cfg)

	srv := server.New(db, eng, embedder, extractor, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	stopMaint := startMaintenance(cfg.Maintenance, eng, db)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "recall serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	close(stopMaint)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return err
	}

	// Final save so nothing since the last snapshot cycle is lost.
	return saveState(eng, db)
}

// buildEmbedder picks the serve-time embedder. "auto" probes Ollama,
// then falls back to OpenAI when a key is configured, then to TF-IDF
// over the restored corpus.
func buildEmbedder(cfg config.Config, eng *engine.Engine) engine.Embedder {
	mode := cfg.LLM.Embedder
	if mode == "" {
		mode = "auto"
	}

	tryOllama := func() engine.Embedder {
		if !engine.ProbeOllama(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel) {
			return nil
		}
		fmt.Fprintf(os.Stderr, "  embedder: ollama (%s)\n", cfg.LLM.EmbeddingModel)
		return engine.NewOllamaEmbedder(cfg.LLM.OllamaURL, cfg.LLM.EmbeddingModel, 768)
	}
	tryOpenAI := func() engine.Embedder {
		if cfg.LLM.OpenAIKey == "" {
			return nil
		}
		fmt.Fprintf(os.Stderr, "  embedder: openai\n")
		return engine.NewOpenAIEmbedder(cfg.LLM.OpenAIKey, "", eng.Config().EmbeddingDims)
	}
	tfidf := func() engine.Embedder {
		fmt.Fprintf(os.Stderr, "  embedder: tfidf (fallback)\n")
		return localEmbedder(eng)
	}

	switch mode {
	case "ollama":
		if e := tryOllama(); e != nil {
			return e
		}
		fmt.Fprintf(os.Stderr, "warning: ollama not reachable at %s, using tfidf\n", cfg.LLM.OllamaURL)
		return tfidf()
	case "openai":
		if e := tryOpenAI(); e != nil {
			return e
		}
		fmt.Fprintln(os.Stderr, "warning: openai embedder needs OPENAI_API_KEY, using tfidf")
		return tfidf()
	case "tfidf":
		return tfidf()
	default: // auto
		if e := tryOllama(); e != nil {
			return e
		}
		if e := tryOpenAI(); e != nil {
			return e
		}
		return tfidf()
	}
}

// buildExtractor picks the concept extractor. "auto" uses the LLM when a
// client can be configured and keywords otherwise.
func buildExtractor(cfg config.Config) engine.ConceptExtractor {
	mode := cfg.LLM.Extractor
	if mode == "" {
		mode = "auto"
	}
	if mode == "keyword" {
		fmt.Fprintf(os.Stderr, "  extractor: keyword\n")
		return engine.NewKeywordExtractor(0)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), keyword extraction\n", err)
		return engine.NewKeywordExtractor(0)
	}
	fmt.Fprintf(os.Stderr, "  extractor: llm (%s/%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	return engine.NewLLMExtractor(client)
}

// startMaintenance runs the retention and snapshot cycles on their
// configured intervals. Closing the returned channel stops both.
func startMaintenance(cfg config.MaintenanceConfig, eng *engine.Engine, db *store.DB) chan struct{} {
	stop := make(chan struct{})

	run := func(name string, minutes int, fn func() error) {
		if minutes <= 0 {
			return
		}
		go func() {
			ticker := time.NewTicker(time.Duration(minutes) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := fn(); err != nil {
						log.Printf("%s: %v", name, err)
					}
				case <-stop:
					return
				}
			}
		}()
	}

	run("retention", cfg.RetentionInterval, func() error {
		n, err := eng.RunRetentionPass()
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("retention: promoted %d records to long-term", n)
		}
		return nil
	})
	run("snapshot", cfg.SnapshotInterval, func() error {
		return saveState(eng, db)
	})

	return stop
}
