package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var laneCreateCmd = &cobra.Command{
	Use:     "create <lane>",
	Short:   "Create a lane",
	Example: `% scope lane create dev --fork-from main`,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("lane-create")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		lane, err := s.CreateLane(ctx, args[0], scopeFlags.lane.forkedFrom)
		if err != nil {
			wrapFatalln("create lane", err)
			return
		}
		fmt.Fprintf(out, "created lane %s (%d components)\n", color.GreenString(lane.ID().String()), len(lane.Components))
	},
}

func init() {
	addForkedFromFlag(laneCreateCmd)
	laneCmd.AddCommand(laneCreateCmd)
}
