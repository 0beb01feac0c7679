package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/model"
)

var tagCmd = &cobra.Command{
	Use:   "tag <component-id> <version>",
	Short: "Tag a version of a component",
	Long: `Label a version of a component with a semver version.

Without version in the component id, the head of the component is tagged.`,
	Example: `% scope tag ui/button 1.0.1
% scope tag ui/button@4a5c13f0 1.0.1`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("tag")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		id, err := model.ParseComponentID(args[0], false)
		if err != nil {
			wrapFatalln("parse component id", err)
			return
		}
		tagged, err := s.Tag(ctx, id, args[1])
		if err != nil {
			wrapFatalln("tag", err)
			return
		}
		fmt.Fprintf(out, "tagged %s\n", color.GreenString(tagged.String()))
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
}
