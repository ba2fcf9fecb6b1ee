package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "platinum",
	Short: "An intraday session-breakout trading bot for futures",
	Long: `Platinum automates a single intraday breakout strategy against a
futures broker. Each configured session captures the high/low of one
hourly reference candle, watches 1-minute candles for a close beyond
that range, and enters with a market order bracketed by an OCO
target/stop pair.

Session and trade progress is persisted after every transition, so a
restart never duplicates or loses a trade.`,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "platinum.yaml", "path to YAML config file")
}
