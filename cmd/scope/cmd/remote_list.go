package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the remotes of the scope",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("remote-list")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		remotes := s.Remotes()
		if len(remotes) == 0 {
			fmt.Fprintln(out, "no remotes")
			return
		}
		for _, name := range remotes.Names() {
			r := remotes[name]
			if r.Primary {
				fmt.Fprintf(out, "%s %s %s\n", color.GreenString(r.Name), r.Host, color.CyanString("(primary)"))
				continue
			}
			fmt.Fprintf(out, "%s %s\n", color.GreenString(r.Name), r.Host)
		}
	},
}

func init() {
	remoteCmd.AddCommand(remoteListCmd)
}
