package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/scope"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new scope",
	Long: `Create a new scope in the scope directory.

The name of the scope defaults to the name of the directory. Objects are stored on the local
file system unless another backend is specified.`,
	Example: `% scope init --scope-path /var/scopes/my-scope
% scope init my-scope --backend gcs --bucket my-bucket --credentials ./creds.json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("init")
		defer cancel()

		dir := scopePath()
		if !filepath.IsAbs(dir) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				wrapFatalln("resolve scope path", err)
				return
			}
			dir = abs
		}
		name := filepath.Base(dir)
		if len(args) > 0 {
			name = args[0]
		}

		cfg := config.Default(name)
		cfg.Storage = config.Storage{
			Backend:     scopeFlags.init.backend,
			Bucket:      scopeFlags.init.bucket,
			Path:        scopeFlags.init.path,
			Credentials: scopeFlags.init.credentials,
		}
		opts, err := scopeOptions()
		if err != nil {
			wrapFatalln("configure scope", err)
			return
		}
		s, err := scope.Init(ctx, appFs, scopePath(), cfg, opts...)
		if err != nil {
			wrapFatalln("init scope", err)
			return
		}
		defer closeScope(s)
		fmt.Fprintf(out, "initialized scope %s in %s\n", color.GreenString(s.Name()), s.Path())
	},
}

func init() {
	addBackendFlag(initCmd)
	addBucketFlag(initCmd)
	addStoragePathFlag(initCmd)
	addCredentialsFlag(initCmd)
	rootCmd.AddCommand(initCmd)
}
