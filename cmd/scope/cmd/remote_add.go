package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/network"
)

const primaryMarker = "!"

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <host>",
	Short: "Add a remote to the scope",
	Example: `% scope remote add my-remote file:///var/scopes/my-remote --primary
% scope remote add ui wss://scopes.example.com/ui`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		name, host := args[0], args[1]
		if strings.ContainsAny(name, primaryMarker+"/@ ") {
			wrapFatalln(fmt.Sprintf("invalid remote name %q", name), nil)
			return
		}
		if err := network.ValidateHost(host); err != nil {
			wrapFatalln("add remote", err)
			return
		}

		cfg, err := config.Load(appFs, scopePath())
		if err != nil {
			wrapFatalln("load scope configuration", err)
			return
		}
		remotes := make(map[string]string, len(cfg.Remotes)+1)
		for alias, h := range cfg.Remotes {
			bare := strings.ReplaceAll(alias, primaryMarker, "")
			if bare == name {
				continue
			}
			if scopeFlags.remote.primary {
				alias = bare
			}
			remotes[alias] = h
		}
		alias := name
		if scopeFlags.remote.primary {
			alias += primaryMarker
		}
		remotes[alias] = host
		cfg.Remotes = remotes

		if err = cfg.Write(appFs, scopePath()); err != nil {
			wrapFatalln("write scope configuration", err)
			return
		}
		fmt.Fprintf(out, "added remote %s (%s)\n", color.GreenString(name), host)
	},
}

func init() {
	addPrimaryFlag(remoteAddCmd)
	remoteCmd.AddCommand(remoteAddCmd)
}
