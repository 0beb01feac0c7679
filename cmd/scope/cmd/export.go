package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope"
	"github.com/oneconcern/scope/pkg/scope/status"
	"github.com/oneconcern/scope/pkg/workspace"
)

var exportCmd = &cobra.Command{
	Use:   "export [component-id...]",
	Short: "Export components to remote scopes",
	Long: `Export the components with local snaps to their remote scopes.

Components never exported go to the primary remote, unless a remote is given. Without ids,
every component with local snaps is exported.

When a remote is busy with another export, the export id is printed: use it with
resume-export once the remote is available.`,
	Example: `% scope export
% scope export ui/button --remote my-remote`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("export")
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

		res, err := s.Export(ctx, ids, scope.ExportOptions{
			Remote:   scopeFlags.transfer.remote,
			ExportID: scopeFlags.transfer.exportID,
		})
		var busy *network.ServerIsBusyError
		switch {
		case errors.Is(err, status.ErrNothingToExport):
			fmt.Fprintln(out, "nothing to export")
			return
		case errors.As(err, &busy):
			wrapFatalWithCodef(network.CodeServerIsBusy,
				"the remote is busy with the export %s (%d in queue). Resume this export with: scope resume-export %s %s",
				busy.CurrentExportID, busy.QueueSize, res.ExportID, strings.Join(s.Remotes().Names(), " "))
			return
		case err != nil:
			wrapFatalln(fmt.Sprintf("export %s", res.ExportID), err)
			return
		}

		for _, id := range res.Exported {
			fmt.Fprintf(out, "exported %s\n", color.GreenString(id.String()))
		}
		if err = markWorkspaceExported(s.Name(), res.Exported); err != nil {
			wrapFatalln("update workspace", err)
			return
		}
	},
}

// markWorkspaceExported records exported versions in the bitmap of the current workspace, if any
func markWorkspaceExported(scopeName string, exported []model.ComponentID) error {
	bitmap, err := workspace.LoadBitmap(appFs, workspaceDir(), scopeName)
	if errors.Is(err, workspace.ErrBitmapNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, id := range exported {
		if _, tracked := bitmap.Get(id); !tracked {
			continue
		}
		if err = bitmap.MarkExported(id); err != nil {
			return err
		}
	}
	return bitmap.Write(appFs, workspaceDir())
}

func init() {
	addRemoteFlag(exportCmd, "The remote to export to. Defaults to the remote of the scope of each component, then to the primary remote")
	addExportIDFlag(exportCmd)
	addWorkspaceFlag(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
