package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/scope"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Commands to manage the index of the scope",
	Long: `The index lists the components and lanes of the scope. When it is corrupted, the scope
cannot be opened until the index is rebuilt from the stored objects.`,
}

var indexShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the entries of the index",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("index show")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		for _, item := range s.Objects().Index().GetAll() {
			fmt.Fprintf(out, "%s\t%s\n", item.ToIdentifierString(), color.HiBlackString(item.ItemHash().String()))
		}
	},
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from the stored objects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("index rebuild")
		defer cancel()

		s, err := openScope(ctx, scope.RebuildIndex())
		if err != nil {
			wrapFatalln("rebuild index", err)
			return
		}
		defer closeScope(s)

		fmt.Fprintf(out, "index rebuilt with %d entries\n", len(s.Objects().Index().GetAll()))
	},
}

func init() {
	indexCmd.AddCommand(indexShowCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}
