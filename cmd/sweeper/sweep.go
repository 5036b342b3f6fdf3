package main

import (
	"github.com/spf13/cobra"
)

var flagDelete bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Walk every page of the console and record at-risk listings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		performDelete := application.Config.Scraper.Delete
		if cmd.Flags().Changed("delete") {
			performDelete = flagDelete
		}
		return application.RunSweep(cmd.Context(), performDelete)
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&flagDelete, "delete", false, "delete every at-risk listing found (overrides scraper.delete)")
}
