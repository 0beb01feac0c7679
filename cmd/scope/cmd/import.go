package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope"
)

var importCmd = &cobra.Command{
	Use:   "import <component-id>...",
	Short: "Import components from remote scopes",
	Long: `Import components with their history and dependencies from remote scopes.

Each component is fetched from the remote named after its scope, unless a remote is given.
Tags pointing to different versions locally and on the remote are reported as conflicts.`,
	Example: `% scope import remote/ui/button remote/utils/string@1.0.0`,
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("import")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		ids := make([]model.ComponentID, 0, len(args))
		for _, arg := range args {
			id, err := model.ParseComponentID(arg, true)
			if err != nil {
				wrapFatalln("parse component id", err)
				return
			}
			ids = append(ids, id)
		}

		res, err := s.Importer().Import(ctx, ids, scope.ImportOptions{
			Reason:              "import command",
			HeadOnly:            scopeFlags.transfer.headOnly,
			WithoutDependencies: scopeFlags.transfer.withoutDependencies,
			Remote:              scopeFlags.transfer.remote,
		})
		if err != nil {
			wrapFatalln("import", err)
			return
		}
		for _, id := range res.Imported {
			fmt.Fprintf(out, "imported %s\n", color.GreenString(id.String()))
		}

		conflicting := make([]string, 0, len(res.Conflicts))
		for id := range res.Conflicts {
			conflicting = append(conflicting, id)
		}
		sort.Strings(conflicting)
		for _, id := range conflicting {
			fmt.Fprintf(out, "%s %s: tags %s differ from the remote\n",
				color.YellowString("conflict"), id, strings.Join(res.Conflicts[id], ", "))
		}
	},
}

func init() {
	addRemoteFlag(importCmd, "The remote to import from. Defaults to the remote named after the scope of each component")
	addImportFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}
