package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/spf13/cobra"
)

var (
	retrieveLimit     int
	retrieveThreshold float64
	retrieveAddr      string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve memories ranked against a query",
	Long:  "Score every stored memory against the query and print the best matches. Retrieval reinforces what it returns and ages everything else.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveLimit, "limit", "n", 10, "Maximum number of results")
	retrieveCmd.Flags().Float64Var(&retrieveThreshold, "threshold", 0, "Minimum score to include")
	retrieveCmd.Flags().StringVar(&retrieveAddr, "addr", "", "Query a running daemon instead of the local database")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	if addr := daemonAddr(retrieveAddr); addr != "" {
		results, err := client.NewWithURL(addr).Retrieve(query, retrieveLimit, retrieveThreshold)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No memories above threshold.")
			return nil
		}
		for i, r := range results {
			printResult(i, r.Score, r.Prompt, r.Response, r.Tier, r.Similarity, r.Activation, r.AccessCount)
		}
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vec, err := localEmbedder(eng, query).Embed(ctx, query)
	if err != nil {
		vec = nil
	}
	vec = fitEmbedding(vec, eng.Stats().EmbeddingDims)

	concepts, _ := engine.NewKeywordExtractor(0).Extract(ctx, query)

	results, err := eng.Retrieve(ctx, vec, concepts, retrieveLimit, retrieveThreshold)
	if err != nil {
		return err
	}

	// Retrieval reinforced and aged records; the new state must persist.
	if err := saveState(eng, db); err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No memories above threshold.")
		return nil
	}
	for i, r := range results {
		printResult(i, r.Score, r.Record.Prompt, r.Record.Response, string(r.Record.Tier), r.Similarity, r.Activation, r.Record.AccessCount)
	}
	return nil
}

func printResult(i int, score float64, prompt, response, tier string, sim, act float64, accessed int) {
	fmt.Printf("%d. [%.3f] %s\n", i+1, score, oneLine(prompt, 80))
	if response != "" {
		fmt.Printf("   %s\n", oneLine(response, 100))
	}
	fmt.Printf("   tier=%s sim=%.3f act=%.3f accessed=%d\n", tier, sim, act, accessed)
	fmt.Println()
}
