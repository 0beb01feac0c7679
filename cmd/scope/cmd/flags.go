// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		scopePath string
		logLevel  string
	}
	init struct {
		backend     string
		bucket      string
		path        string
		credentials string
	}
	snap struct {
		message      string
		author       string
		email        string
		tag          string
		lane         string
		workspace    string
		rootDir      string
		mainFile     string
		owner        string
		dependencies []string
	}
	transfer struct {
		remote              string
		exportID            string
		headOnly            bool
		withoutDependencies bool
	}
	lane struct {
		forkedFrom string
		force      bool
	}
	list struct {
		remote         string
		includeDeleted bool
	}
	remote struct {
		primary bool
	}
	serve struct {
		listen     string
		metrics    bool
		profileDir string
		profileMB  uint64
	}
	force bool
}

var scopeFlags = flagsT{}

func addScopePathFlag(cmd *cobra.Command) string {
	c := "scope-path"
	cmd.PersistentFlags().StringVar(&scopeFlags.root.scopePath, c, ".", "The directory of the scope")
	return c
}

func addLogLevel(cmd *cobra.Command) string {
	loglevel := "loglevel"
	cmd.PersistentFlags().StringVar(&scopeFlags.root.logLevel, loglevel, "",
		"The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug. Defaults to the level of the scope configuration")
	return loglevel
}

func addBackendFlag(cmd *cobra.Command) string {
	c := "backend"
	cmd.Flags().StringVar(&scopeFlags.init.backend, c, "localfs", "The storage backend of the objects: localfs, badger, s3 or gcs")
	return c
}

func addBucketFlag(cmd *cobra.Command) string {
	c := "bucket"
	cmd.Flags().StringVar(&scopeFlags.init.bucket, c, "", "The bucket hosting the objects, for s3 and gcs")
	return c
}

func addStoragePathFlag(cmd *cobra.Command) string {
	c := "storage-path"
	cmd.Flags().StringVar(&scopeFlags.init.path, c, "", "The directory of the objects for local backends, or the region of an s3 bucket")
	return c
}

func addCredentialsFlag(cmd *cobra.Command) string {
	c := "credentials"
	cmd.Flags().StringVar(&scopeFlags.init.credentials, c, "", "The path to the credential file of a gcs bucket")
	return c
}

func addMessageFlag(cmd *cobra.Command) string {
	c := "message"
	cmd.Flags().StringVarP(&scopeFlags.snap.message, c, "m", "", "The message describing the snap")
	return c
}

func addAuthorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scopeFlags.snap.author, "author", "", "The name of the author of the snap")
	cmd.Flags().StringVar(&scopeFlags.snap.email, "email", "", "The email of the author of the snap")
}

func addTagFlag(cmd *cobra.Command) string {
	c := "tag"
	cmd.Flags().StringVar(&scopeFlags.snap.tag, c, "", "Tag the snap with a semver version. Snaps on lanes are never tagged")
	return c
}

func addLaneFlag(cmd *cobra.Command) string {
	c := "lane"
	cmd.Flags().StringVar(&scopeFlags.snap.lane, c, "", "Record the snap on a lane instead of main")
	return c
}

func addWorkspaceFlag(cmd *cobra.Command) string {
	c := "workspace"
	cmd.Flags().StringVar(&scopeFlags.snap.workspace, c, ".", "The workspace directory, holding the .bitmap file")
	return c
}

func addWorkspaceFlags(cmd *cobra.Command) {
	addWorkspaceFlag(cmd)
	cmd.Flags().StringVar(&scopeFlags.snap.rootDir, "root", "",
		"The directory of the component, relative to the workspace. The component is tracked in the .bitmap file")
	cmd.Flags().StringVar(&scopeFlags.snap.mainFile, "main", "index.ts", "The main file of a newly tracked component")
}

func addDependencyFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&scopeFlags.snap.dependencies, "dependency", nil,
		`A dependency of the component, as a component id "scope/name@version" or as a package name "@owner/scope.name@version"`)
	cmd.Flags().StringVar(&scopeFlags.snap.owner, "owner", "", "The owner prefix of package names")
}

func addRemoteFlag(cmd *cobra.Command, usage string) string {
	c := "remote"
	cmd.Flags().StringVar(&scopeFlags.transfer.remote, c, "", usage)
	return c
}

func addExportIDFlag(cmd *cobra.Command) string {
	c := "export-id"
	cmd.Flags().StringVar(&scopeFlags.transfer.exportID, c, "", "Identify the export on the remotes, to resume it later. Defaults to a new unique id")
	return c
}

func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&scopeFlags.transfer.headOnly, "head-only", false, "Import the requested versions without their history")
	cmd.Flags().BoolVar(&scopeFlags.transfer.withoutDependencies, "without-dependencies", false, "Do not import the dependencies of the components")
}

func addForkedFromFlag(cmd *cobra.Command) string {
	c := "fork-from"
	cmd.Flags().StringVar(&scopeFlags.lane.forkedFrom, c, "", "The lane to fork the new lane from. Defaults to main")
	return c
}

func addLaneForceFlag(cmd *cobra.Command) string {
	c := "force"
	cmd.Flags().BoolVar(&scopeFlags.lane.force, c, false, "Remove lanes which have snaps")
	return c
}

func addForceFlag(cmd *cobra.Command, usage string) string {
	c := "force"
	cmd.Flags().BoolVar(&scopeFlags.force, c, false, usage)
	return c
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scopeFlags.list.remote, "remote", "", "List the components of a remote scope instead of the local one")
	cmd.Flags().BoolVar(&scopeFlags.list.includeDeleted, "include-deleted", false, "List soft-removed components too")
}

func addPrimaryFlag(cmd *cobra.Command) string {
	c := "primary"
	cmd.Flags().BoolVar(&scopeFlags.remote.primary, c, false, "Make the remote the default target of exports")
	return c
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scopeFlags.serve.listen, "listen", "", "The address to listen on. Defaults to the address of the scope configuration")
	cmd.Flags().BoolVar(&scopeFlags.serve.metrics, "metrics", false, "Expose prometheus metrics on /metrics")
	cmd.Flags().StringVar(&scopeFlags.serve.profileDir, "profile-dir", "", "Write heap profiles to this directory when the heap grows over --profile-heap-mb")
	cmd.Flags().Uint64Var(&scopeFlags.serve.profileMB, "profile-heap-mb", 1024, "The heap size in MiB above which profiles are written")
}
