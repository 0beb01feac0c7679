package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <component-id>...",
	Short: "Remove components from the scope",
	Long: `Remove components from the scope.

Components are marked removed and still listed with --include-deleted. With --force, their
objects are deleted from the store.`,
	Example: `% scope remove ui/button
% scope remove ui/button --force`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("remove")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		ids, err := parseIDs(s, args)
		if err != nil {
			wrapFatalln("parse component ids", err)
			return
		}
		res, err := s.RemoveMany(ctx, ids, scopeFlags.force)
		if err != nil {
			wrapFatalln("remove", err)
			return
		}
		for _, id := range res.RemovedComponentIDs {
			fmt.Fprintf(out, "removed %s\n", color.GreenString(id))
		}
		for _, id := range res.MissingComponents {
			fmt.Fprintf(out, "missing %s\n", color.YellowString(id))
		}
	},
}

func init() {
	addForceFlag(removeCmd, "Delete the objects of the components instead of marking them removed")
	rootCmd.AddCommand(removeCmd)
}
