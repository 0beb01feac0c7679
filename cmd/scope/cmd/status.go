package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/model"
)

var statusCmd = &cobra.Command{
	Use:   "status [component-id...]",
	Short: "Compare local components with their remotes",
	Long: `Compare the heads of local components with the heads last known from their remotes.

Components are staged when they have snaps not exported yet, pending updates when the remote
is ahead, and pending merge when both sides have snaps the other has not. Components whose
local and remote histories share no snap are reported as unrelated.`,
	Example: `% scope status
% scope status ui/button`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("status")
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
		res, err := s.Status(ctx, ids)
		if err != nil {
			wrapFatalln("status", err)
			return
		}
		if res.IsClean() {
			fmt.Fprintf(out, "nothing to export, %d components up to date\n", len(res.UpToDate))
			return
		}

		printSection("staged components", color.GreenString, res.Staged)
		printSection("pending updates", color.YellowString, res.PendingUpdates)
		printSection("pending merge", color.RedString, res.MergePending)
		printSection("unrelated histories", color.RedString, res.Unrelated)
		if len(res.Invalid) > 0 {
			fmt.Fprintln(out, "invalid components")
			for _, invalid := range res.Invalid {
				fmt.Fprintf(out, "  %s: %v\n", color.RedString(invalid.ID.String()), invalid.Err)
			}
		}
	},
}

func printSection(title string, paint func(string, ...interface{}) string, ids []model.ComponentID) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintln(out, title)
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", paint(id.String()))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
