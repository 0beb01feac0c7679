package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/model"
	"github.com/oneconcern/scope/pkg/scope"
	"github.com/oneconcern/scope/pkg/workspace"
)

var (
	errNoFiles      = errors.New("component has no files")
	errNotComponent = errors.New("package is not a component")
)

var snapCmd = &cobra.Command{
	Use:   "snap <component-id>",
	Short: "Record a new version of a component",
	Long: `Record a new version of a component from its files in the workspace.

The files of the component are found with the .bitmap file of the workspace. A component is
tracked in the .bitmap file the first time its root directory is given.`,
	Example: `% scope snap ui/button --root ui/button --tag 1.0.0 -m "first release"
% scope snap ui/button --lane dev -m "wip"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("snap")
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
		files, err := workspaceFiles(ctx, s, id)
		if err != nil {
			wrapFatalln("read component files", err)
			return
		}
		deps, err := resolveDependencies(ctx, scopeFlags.snap.dependencies)
		if err != nil {
			wrapFatalln("resolve dependencies", err)
			return
		}

		opts := scope.SnapOptions{
			Message:      scopeFlags.snap.message,
			Username:     scopeFlags.snap.author,
			Email:        scopeFlags.snap.email,
			Dependencies: deps,
			Tag:          scopeFlags.snap.tag,
		}
		var snapped model.ComponentID
		if scopeFlags.snap.lane != "" {
			snapped, err = s.SnapToLane(ctx, scopeFlags.snap.lane, id, files, opts)
		} else {
			snapped, err = s.Snap(ctx, id, files, opts)
		}
		if err != nil {
			wrapFatalln("snap", err)
			return
		}
		fmt.Fprintf(out, "snapped %s (%d files)\n", color.GreenString(snapped.String()), len(files))
	},
}

// workspaceFiles reads the files of a component tracked by the workspace bitmap.
// With a root directory, the component is tracked first.
func workspaceFiles(ctx context.Context, s *scope.Scope, id model.ComponentID) (map[string][]byte, error) {
	dir := workspaceDir()
	bitmap, err := workspace.LoadBitmap(appFs, dir, s.Name())
	if errors.Is(err, workspace.ErrBitmapNotFound) {
		bitmap, err = workspace.NewBitmap(s.Name()), nil
	}
	if err != nil {
		return nil, err
	}

	if root := scopeFlags.snap.rootDir; root != "" {
		tracked := id
		if entry, ok := bitmap.Get(id); ok {
			tracked = entry.ID()
		}
		if err = bitmap.AddComponent(tracked, root, scopeFlags.snap.mainFile); err != nil {
			return nil, err
		}
		if err = bitmap.Write(appFs, dir); err != nil {
			return nil, err
		}
	}

	resolver := workspace.NewBitmapResolver(appFs, dir, bitmap, nil)
	resolved, err := resolver.ResolveComponent(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if len(resolved.Files) == 0 {
		return nil, errNoFiles.Wrapf("%s in %s", id, resolved.RootDir)
	}
	return resolver.ReadFiles(resolved)
}

// resolveDependencies accepts component ids and package names
func resolveDependencies(ctx context.Context, deps []string) ([]model.ComponentID, error) {
	var (
		res      []model.ComponentID
		packages []string
	)
	for _, dep := range deps {
		if strings.HasPrefix(dep, "@") {
			packages = append(packages, dep)
			continue
		}
		id, err := model.ParseComponentID(dep, true)
		if err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	if len(packages) == 0 {
		return res, nil
	}

	resolved, err := workspace.NamingResolver{Owner: scopeFlags.snap.owner}.ResolvePackages(ctx, packages)
	if err != nil {
		return nil, err
	}
	for _, pkg := range packages {
		id, ok := resolved[pkg]
		if !ok {
			return nil, errNotComponent.Wrapf("%s", pkg)
		}
		res = append(res, id)
	}
	return res, nil
}

func init() {
	addMessageFlag(snapCmd)
	addAuthorFlags(snapCmd)
	addTagFlag(snapCmd)
	addLaneFlag(snapCmd)
	addWorkspaceFlags(snapCmd)
	addDependencyFlags(snapCmd)
	rootCmd.AddCommand(snapCmd)
}
