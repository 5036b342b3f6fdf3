package main

import (
	"ListingSweeper/internal/app"

	"github.com/spf13/cobra"
)

var flagConfig string

// application is set by PersistentPreRunE for every subcommand.
var application *app.App

var rootCmd = &cobra.Command{
	Use:           "sweeper",
	Short:         "Sweep the goods console for low-stock and delisted listings",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(flagConfig)
		if err != nil {
			return err
		}
		application = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "config.yml", "path to the YAML config file")

	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(indexCmd)
}
