package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/network"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List the components of a scope",
	Long: `List the components of the scope, or of one of its remotes.

The pattern matches component ids without version, with shell wildcards.`,
	Example: `% scope list
% scope list "ui/*"
% scope list --remote my-remote --include-deleted`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("list")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		var pattern string
		if len(args) > 0 {
			pattern = args[0]
		}

		var components []network.ListScopeResult
		if remoteName := scopeFlags.list.remote; remoteName != "" {
			r, rerr := s.Remotes().Resolve(remoteName)
			if rerr != nil {
				wrapFatalln("list", rerr)
				return
			}
			components, err = r.List(ctx, pattern, scopeFlags.list.includeDeleted)
		} else {
			components, err = s.List(ctx, pattern, scopeFlags.list.includeDeleted)
		}
		if err != nil {
			wrapFatalln("list", err)
			return
		}

		if len(components) == 0 {
			fmt.Fprintln(out, "no components")
			return
		}
		for _, c := range components {
			if c.Removed {
				fmt.Fprintf(out, "%s %s\n", c.ID, color.RedString("(removed)"))
				continue
			}
			fmt.Fprintln(out, c.ID)
		}
	},
}

func init() {
	addListFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}
