package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/platinum/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the bot configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the --config path",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("%s already exists", cfgPath)
		}
		if err := config.Default().SaveToFile(cfgPath); err != nil {
			return err
		}
		fmt.Println("wrote", cfgPath)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file and print the session table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return err
		}
		fmt.Printf("%s ok: %s x%d in %s\n", cfgPath, cfg.Symbol, cfg.Quantity, cfg.Timezone)
		for _, s := range cfg.Sessions {
			fmt.Printf("  %-10s ref %02d:00  window %02d:00-%02d:59  target %.2f  stop %.2f\n",
				s.ID, s.ReferenceHour, s.WindowStartHour, s.WindowEndHour,
				s.TargetPoints, s.StopPoints)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
