package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/platinum/config"
	"github.com/rustyeddy/platinum/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the persisted bot state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the state file as stored on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(cfg.StatePath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("no state file at", cfg.StatePath)
				return nil
			}
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the state file (the next run starts a fresh day)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return err
		}
		if err := state.NewStore(cfg.StatePath).Reset(); err != nil {
			return err
		}
		fmt.Println("state reset:", cfg.StatePath)
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
	rootCmd.AddCommand(stateCmd)
}
