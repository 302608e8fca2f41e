package cli

import (
	"fmt"

	"github.com/lazypower/recall/internal/client"
	"github.com/lazypower/recall/internal/config"
	"github.com/spf13/cobra"
)

var retentionAddr string

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Promote frequently accessed memories to long-term",
	RunE:  runRetention,
}

func init() {
	retentionCmd.Flags().StringVar(&retentionAddr, "addr", "", "Run the pass on a running daemon instead of the local database")
}

func runRetention(cmd *cobra.Command, args []string) error {
	if addr := daemonAddr(retentionAddr); addr != "" {
		promoted, err := client.NewWithURL(addr).RunRetention()
		if err != nil {
			return err
		}
		fmt.Printf("promoted %d records to long-term\n", promoted)
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

	promoted, err := eng.RunRetentionPass()
	if err != nil {
		return err
	}
	if promoted > 0 {
		if err := saveState(eng, db); err != nil {
			return err
		}
	}
	fmt.Printf("promoted %d records to long-term\n", promoted)
	return nil
}
