package workspace

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/model"
)

// ResolvedComponent is the on-disk layout of a component
type ResolvedComponent struct {
	ID       model.ComponentID
	RootDir  string
	MainFile string

	// Files are relative to the root directory, sorted
	Files []string
}

// ComponentResolver maps a component id to its files in a workspace
type ComponentResolver interface {
	ResolveComponent(ctx context.Context, id string) (*ResolvedComponent, error)
}

// PackageResolver maps package names to component ids
type PackageResolver interface {
	ResolvePackages(ctx context.Context, names []string) (map[string]model.ComponentID, error)
}

// BitmapResolver resolves components tracked by the bitmap of a workspace
type BitmapResolver struct {
	fs     afero.Fs
	dir    string
	bitmap *Bitmap
	l      *zap.Logger
}

var _ ComponentResolver = &BitmapResolver{}

// NewBitmapResolver resolves components under dir with a bitmap
func NewBitmapResolver(fs afero.Fs, dir string, bitmap *Bitmap, l *zap.Logger) *BitmapResolver {
	if l == nil {
		l = dlogger.MustGetLogger(dlogger.LogLevelNone)
	}
	return &BitmapResolver{fs: fs, dir: dir, bitmap: bitmap, l: l}
}

// ResolveComponent lists the files under the root directory of a component.
// Hidden files and directories are skipped.
func (r *BitmapResolver) ResolveComponent(ctx context.Context, idStr string) (*ResolvedComponent, error) {
	id, err := parseWorkspaceID(idStr)
	if err != nil {
		return nil, err
	}
	entry, ok := r.bitmap.Get(id)
	if !ok {
		return nil, ErrNotTracked.Wrapf("%s", idStr)
	}

	root := filepath.Join(r.dir, filepath.FromSlash(entry.RootDir))
	var files []string
	err = afero.Walk(r.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	r.l.Debug("component resolved", zap.Stringer("id", entry.ID()), zap.Int("files", len(files)))

	return &ResolvedComponent{
		ID:       entry.ID(),
		RootDir:  entry.RootDir,
		MainFile: entry.MainFile,
		Files:    files,
	}, nil
}

// ReadFiles loads the contents of a resolved component, keyed by relative path
func (r *BitmapResolver) ReadFiles(resolved *ResolvedComponent) (map[string][]byte, error) {
	root := filepath.Join(r.dir, filepath.FromSlash(resolved.RootDir))
	res := make(map[string][]byte, len(resolved.Files))
	for _, f := range resolved.Files {
		data, err := afero.ReadFile(r.fs, filepath.Join(root, filepath.FromSlash(f)))
		if err != nil {
			return nil, err
		}
		res[f] = data
	}
	return res, nil
}

// parseWorkspaceID accepts ids with or without scope: the bitmap tells which is which
func parseWorkspaceID(idStr string) (model.ComponentID, error) {
	return model.ParseComponentID(idStr, false)
}

// NamingResolver maps package names to component ids by naming convention.
//
// The package of a component is "@<owner>/<scope>.<name>", with the slashes of the name replaced
// by dots: "@acme/ui.forms.input" is the component "forms/input" of the scope "ui".
// Packages without the owner prefix are not components.
type NamingResolver struct {
	Owner string
}

var _ PackageResolver = NamingResolver{}

// ResolvePackages returns the component ids of the packages which follow the convention
func (r NamingResolver) ResolvePackages(_ context.Context, names []string) (map[string]model.ComponentID, error) {
	prefix := "@" + r.Owner + "/"
	res := make(map[string]model.ComponentID, len(names))
	for _, name := range names {
		pkg, version := splitPackageVersion(name)
		if !strings.HasPrefix(pkg, prefix) {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(pkg, prefix), ".")
		if len(parts) < 2 {
			continue
		}
		res[name] = model.ComponentID{
			Scope:   parts[0],
			Name:    path.Join(parts[1:]...),
			Version: version,
		}
	}
	return res, nil
}

// PackageName of a component in the convention of the resolver
func (r NamingResolver) PackageName(id model.ComponentID) string {
	return "@" + r.Owner + "/" + id.Scope + "." + strings.ReplaceAll(id.Name, "/", ".")
}

// splitPackageVersion splits "@owner/pkg@1.0.0" into the package and its version
func splitPackageVersion(name string) (string, string) {
	at := strings.LastIndex(name, "@")
	if at <= 0 {
		return name, ""
	}
	return name[:at], name[at+1:]
}
