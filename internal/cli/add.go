package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/config"
	"github.com/lazypower/recall/internal/engine"
	"github.com/spf13/cobra"
)

var (
	addStdin bool
	addAddr  string
)

var addCmd = &cobra.Command{
	Use:   "add [prompt] [response]",
	Short: "Store one interaction",
	Long:  `Store a prompt/response pair as a new short-term memory. With --stdin, reads a JSON object {"prompt": ..., "response": ...} instead.`,
	Args:  cobra.MaximumNArgs(2),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addStdin, "stdin", false, "Read a JSON {prompt, response} object from stdin")
	addCmd.Flags().StringVar(&addAddr, "addr", "", "Store through a running daemon instead of the local database")
}

func runAdd(cmd *cobra.Command, args []string) error {
	prompt, response, err := addInputs(args)
	if err != nil {
		return err
	}

	if addr := daemonAddr(addAddr); addr != "" {
		result, err := client.NewWithURL(addr).AddInteraction(prompt, response)
		if err != nil {
			return err
		}
		printStored(result.ID, result.Tier, result.Concepts)
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

	text := strings.TrimSpace(prompt + "\n" + response)
	vec, err := localEmbedder(eng, text).Embed(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: embed failed: %v\n", err)
		vec = nil
	}
	vec = fitEmbedding(vec, eng.Stats().EmbeddingDims)

	concepts, _ := engine.NewKeywordExtractor(0).Extract(ctx, text)

	id, err := eng.AddInteraction(ctx, prompt, response, vec, concepts)
	if err != nil {
		return err
	}
	if err := saveState(eng, db); err != nil {
		return err
	}

	printStored(id, string(engine.TierShortTerm), concepts)
	return nil
}

func addInputs(args []string) (string, string, error) {
	if addStdin {
		var req struct {
			Prompt   string `json:"prompt"`
			Response string `json:"response"`
		}
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			return "", "", fmt.Errorf("parse stdin: %w", err)
		}
		return req.Prompt, req.Response, nil
	}

	switch len(args) {
	case 2:
		return args[0], args[1], nil
	case 1:
		return args[0], "", nil
	default:
		return "", "", fmt.Errorf("prompt required (or use --stdin)")
	}
}

func printStored(id, tier string, concepts []string) {
	fmt.Printf("stored %s [%s]", id, tier)
	if len(concepts) > 0 {
		fmt.Printf(" concepts: %s", strings.Join(concepts, ", "))
	}
	fmt.Println()
}
