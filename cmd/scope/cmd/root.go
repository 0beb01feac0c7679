// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scope",
	Short: "Scope stores versioned components",
	Long: `Scope stores versioned components in a content-addressed object store.

Components are snapped and tagged locally, then exported to remote scopes where other
scopes may import them. Lanes record snaps aside from main.
`,
	SilenceUsage: true,
}

// appFs is the file system hosting scopes and workspaces. Tests replace it with an in-memory one.
var appFs = afero.NewOsFs()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	addScopePathFlag(rootCmd)
	addLogLevel(rootCmd)
}

// commandContext is cancelled on interrupt, and records the events of the command in an invocation
func commandContext(command string) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return scope.WithInvocation(ctx, scope.NewInvocation(command)), cancel
}

func scopePath() string {
	if scopeFlags.root.scopePath == "" {
		return "."
	}
	return scopeFlags.root.scopePath
}

func workspaceDir() string {
	if scopeFlags.snap.workspace == "" {
		return "."
	}
	return scopeFlags.snap.workspace
}

// parseIDs parses component ids given on the command line. The first segment of an id is its
// scope when it names the scope itself or one of its remotes.
func parseIDs(s *scope.Scope, args []string) ([]model.ComponentID, error) {
	ids := make([]model.ComponentID, 0, len(args))
	for _, arg := range args {
		hasScope := false
		if slash := strings.Index(arg, "/"); slash > 0 {
			prefix := arg[:slash]
			_, isRemote := s.Remotes()[prefix]
			hasScope = isRemote || prefix == s.Name()
		}
		id, err := model.ParseComponentID(arg, hasScope)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// scopeOptions override the configuration of the scope with command line flags
func scopeOptions() ([]scope.Option, error) {
	var opts []scope.Option
	if scopeFlags.root.logLevel != "" {
		l, err := dlogger.GetConsoleLogger(scopeFlags.root.logLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scope.Logger(l))
	}
	return opts, nil
}

// openScope opens the scope of the command. The caller closes it.
func openScope(ctx context.Context, extra ...scope.Option) (*scope.Scope, error) {
	opts, err := scopeOptions()
	if err != nil {
		return nil, err
	}
	return scope.Open(ctx, appFs, scopePath(), append(opts, extra...)...)
}

func closeScope(s *scope.Scope) {
	if err := s.Close(); err != nil {
		log.Println("closing scope:", err)
	}
}
