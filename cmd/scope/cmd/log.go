package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <component-id>",
	Short: "Show the history of a component",
	Example: `% scope log ui/button
% scope log ui/button@1.0.0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("log")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		ids, err := parseIDs(s, args)
		if err != nil {
			wrapFatalln("parse component id", err)
			return
		}
		entries, err := s.Log(ctx, ids[0])
		if err != nil {
			wrapFatalln("log", err)
			return
		}
		for _, entry := range entries {
			fmt.Fprintf(out, "%s", color.YellowString(entry.Hash.String()))
			if entry.Tag != "" {
				fmt.Fprintf(out, " (%s)", color.GreenString(entry.Tag))
			}
			fmt.Fprintln(out)
			if entry.Username != "" {
				fmt.Fprintf(out, "author: %s <%s>\n", entry.Username, entry.Email)
			}
			fmt.Fprintf(out, "date:   %s\n", entry.Date.Format("Mon Jan 2 15:04:05 2006 -0700"))
			if len(entry.Parents) > 0 {
				parents := make([]string, 0, len(entry.Parents))
				for _, p := range entry.Parents {
					parents = append(parents, p.Short())
				}
				fmt.Fprintf(out, "parent: %s\n", strings.Join(parents, " "))
			}
			fmt.Fprintf(out, "\n    %s\n\n", entry.Message)
		}
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
