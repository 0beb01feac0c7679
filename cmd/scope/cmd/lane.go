package cmd

import (
	"github.com/spf13/cobra"
)

var laneCmd = &cobra.Command{
	Use:   "lane",
	Short: "Commands to manage lanes",
	Long: `Lanes record snaps of components aside from main.

A lane starts empty, or forked from another lane. Snapping with --lane moves the head of the
component on the lane only.`,
}

func init() {
	rootCmd.AddCommand(laneCmd)
}
