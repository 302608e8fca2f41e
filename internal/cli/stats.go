package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/config"
	"github.com/spf13/cobra"
)

var statsAddr string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAddr, "addr", "", "Query a running daemon instead of the local database")
}

func runStats(cmd *cobra.Command, args []string) error {
	if addr := daemonAddr(statsAddr); addr != "" {
		stats, err := client.NewWithURL(addr).Stats()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(stats))
		for k := range stats {
			if _, nested := stats[k].(map[string]any); nested {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-16s %v\n", k, stats[k])
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

	s := eng.Stats()
	fmt.Printf("%-16s %d\n", "short_term", s.ShortTerm)
	fmt.Printf("%-16s %d\n", "long_term", s.LongTerm)
	fmt.Printf("%-16s %d\n", "concepts", s.Concepts)
	fmt.Printf("%-16s %d\n", "concept_edges", s.ConceptEdges)
	fmt.Printf("%-16s %d\n", "embedding_dims", s.EmbeddingDims)
	if snap, err := db.LastSnapshot(); err == nil && snap != nil {
		fmt.Printf("%-16s %s\n", "last_snapshot", time.UnixMilli(snap.SavedAt).Format("2006-01-02 15:04:05"))
	}
	return nil
}
