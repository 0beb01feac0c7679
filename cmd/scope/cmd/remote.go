package cmd

import (
	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Commands to manage the remotes of a scope",
	Long: `Remotes are scopes reachable with file:// paths or ws:// and wss:// addresses.

A remote is named after the scope it hosts. The primary remote receives the exports of
components which were never exported.`,
}

func init() {
	rootCmd.AddCommand(remoteCmd)
}
