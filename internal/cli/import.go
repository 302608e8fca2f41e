package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/transcript"
	"github.com/spf13/cobra"
)

var (
	importAddr   string
	importDryRun bool
)

const (
	importPromptMax   = 2000
	importResponseMax = 4000
)

var importCmd = &cobra.Command{
	Use:   "import [transcript.jsonl...]",
	Short: "Import agent session transcripts",
	Long:  "Parse JSONL session transcripts into prompt/response pairs and store each pair as a memory.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importAddr, "addr", "", "Store through a running daemon instead of the local database")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and count pairs without storing anything")
}

func runImport(cmd *cobra.Command, args []string) error {
	type filePairs struct {
		path  string
		pairs []transcript.Pair
	}
	var files []filePairs
	total := 0
	for _, path := range args {
		entries, err := transcript.ParseFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		pairs := transcript.Pairs(entries)
		files = append(files, filePairs{path, pairs})
		total += len(pairs)
	}

	if importDryRun {
		for _, f := range files {
			fmt.Printf("%s: %d pairs\n", f.path, len(f.pairs))
		}
		fmt.Printf("total: %d pairs (dry run, nothing stored)\n", total)
		return nil
	}

	if addr := daemonAddr(importAddr); addr != "" {
		c := client.NewWithURL(addr)
		stored := 0
		for _, f := range files {
			for _, p := range f.pairs {
				_, err := c.AddInteraction(
					transcript.Clip(p.Prompt, importPromptMax),
					transcript.Clip(p.Response, importResponseMax),
				)
				if err != nil {
					fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f.path, err)
					continue
				}
				stored++
			}
		}
		fmt.Printf("imported %d of %d pairs\n", stored, total)
		return nil
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	eng, db, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// One vocabulary for the whole batch keeps the vectors comparable.
	texts := make([]string, 0, total)
	for _, f := range files {
		for _, p := range f.pairs {
			texts = append(texts, p.Prompt+"\n"+p.Response)
		}
	}
	emb := localEmbedder(eng, texts...)
	extractor := engine.NewKeywordExtractor(0)

	dims := eng.Stats().EmbeddingDims
	conceptOnly := dims > 0 && emb.Dimensions() != dims
	if conceptOnly {
		fmt.Fprintf(os.Stderr, "note: local embeddings have %d dims, store has %d; importing on concepts only\n", emb.Dimensions(), dims)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stored := 0
	for _, f := range files {
		for _, p := range f.pairs {
			prompt := transcript.Clip(p.Prompt, importPromptMax)
			response := transcript.Clip(p.Response, importResponseMax)
			text := strings.TrimSpace(prompt + "\n" + response)

			var vec []float64
			if !conceptOnly {
				if vec, err = emb.Embed(ctx, text); err != nil {
					vec = nil
				}
			}
			concepts, _ := extractor.Extract(ctx, text)

			if _, err := eng.AddInteraction(ctx, prompt, response, vec, concepts); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f.path, err)
				continue
			}
			stored++
		}
	}

	if err := saveState(eng, db); err != nil {
		return err
	}
	fmt.Printf("imported %d of %d pairs\n", stored, total)
	return nil
}
