package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var laneRemoveCmd = &cobra.Command{
	Use:     "remove <lane>...",
	Short:   "Remove lanes",
	Long:    `Remove lanes. Lanes with components are only removed with --force.`,
	Example: `% scope lane remove dev --force`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("lane-remove")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		removed, err := s.RemoveLanes(ctx, args, scopeFlags.lane.force)
		if err != nil {
			wrapFatalln("remove lanes", err)
			return
		}
		for _, lane := range removed {
			fmt.Fprintf(out, "removed lane %s\n", lane)
		}
	},
}

func init() {
	addLaneForceFlag(laneRemoveCmd)
	laneCmd.AddCommand(laneRemoveCmd)
}
