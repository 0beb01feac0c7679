package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resumeExportCmd = &cobra.Command{
	Use:   "resume-export <export-id> <remote>...",
	Short: "Resume an export which did not complete",
	Long: `Resume an export which did not complete on some remotes.

Objects pushed by the export are persisted on the given remotes. The export id is
printed by export when a remote is busy or unreachable.`,
	Example: `% scope resume-export 2B4bHjyvVv6u8k3RLJhdNGeIqxB my-remote`,
	Args:    cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("resume-export")
		defer cancel()

		s, err := openScope(ctx)
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		exported, err := s.ResumeExport(ctx, args[0], args[1:])
		if err != nil {
			wrapFatalln(fmt.Sprintf("resume export %s", args[0]), err)
			return
		}
		for _, id := range exported {
			fmt.Fprintf(out, "exported %s\n", color.GreenString(id))
		}
	},
}

func init() {
	rootCmd.AddCommand(resumeExportCmd)
}
