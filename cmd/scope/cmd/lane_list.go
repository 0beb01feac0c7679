package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var laneListCmd = &cobra.Command{
	Use:   "list [lane]",
	Short: "List lanes with their components",
	Example: `% scope lane list
% scope lane list dev`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("lane-list")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		var name string
		if len(args) > 0 {
			name = args[0]
		}
		lanes, err := s.ListLanes(ctx, name)
		if err != nil {
			wrapFatalln("list lanes", err)
			return
		}
		if len(lanes) == 0 {
			fmt.Fprintln(out, "no lanes")
			return
		}
		for _, lane := range lanes {
			merged, err := s.IsLaneMerged(ctx, lane)
			if err != nil {
				wrapFatalln(fmt.Sprintf("check lane %s", lane.ID()), err)
				return
			}
			state := color.YellowString("not merged")
			if merged {
				state = color.GreenString("merged")
			}
			fmt.Fprintf(out, "%s (%s)", lane.ID(), state)
			if lane.ForkedFrom != nil {
				fmt.Fprintf(out, " forked from %s", lane.ForkedFrom)
			}
			fmt.Fprintln(out)
			for _, c := range lane.Components {
				fmt.Fprintf(out, "  %s %s\n", c.ID.StringWithoutVersion(), c.Head.Short())
			}
		}
	},
}

func init() {
	laneCmd.AddCommand(laneListCmd)
}
