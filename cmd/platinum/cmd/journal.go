package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/platinum/config"
	"github.com/rustyeddy/platinum/journal"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List recent trades from the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return err
		}
		if cfg.JournalPath == "" {
			return fmt.Errorf("journal_path is not configured")
		}

		j, err := journal.NewSQLite(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer j.Close()

		trades, err := j.List(journalLimit)
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			fmt.Println("no trades recorded")
			return nil
		}

		for _, t := range trades {
			fmt.Printf("%s  %-8s %-5s %-14s entry %.2f  exit %s  %s\n",
				t.OpenedAt.Format("2006-01-02 15:04"),
				t.SessionID, t.Direction, t.Status, t.EntryPrice, t.ExitReason, t.ID)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of trades to show")
	rootCmd.AddCommand(journalCmd)
}
