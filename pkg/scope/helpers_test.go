package scope

import (
	"context"
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/model"
)

const (
	remoteName = "remote"
	remotePath = "/scopes/remote"
)

// initScope creates a scope named name under /scopes, on fs
func initScope(t testing.TB, fs afero.Fs, name string, hosts map[string]string, opts ...Option) *Scope {
	t.Helper()
	cfg := config.Default(name)
	cfg.LogLevel = dlogger.LogLevelNone
	for alias, host := range hosts {
		cfg.Remotes[alias] = host
	}
	s, err := Init(context.Background(), fs, path.Join("/scopes", name), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// linkedScopes sets up a scope "remote" and a scope "local" exporting to it as its primary remote
func linkedScopes(t testing.TB, opts ...Option) (afero.Fs, *Scope, *Scope) {
	t.Helper()
	fs := afero.NewMemMapFs()
	remote := initScope(t, fs, remoteName, nil)
	local := initScope(t, fs, "local", map[string]string{remoteName + "!": "file://" + remotePath}, opts...)
	return fs, local, remote
}

// reopen a scope from its path, as a new process would
func reopen(t testing.TB, fs afero.Fs, s *Scope) *Scope {
	t.Helper()
	res, err := Open(context.Background(), fs, s.Path())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	return res
}

func cid(s string) model.ComponentID {
	return model.MustParseComponentID(s, false)
}

func scid(s string) model.ComponentID {
	return model.MustParseComponentID(s, true)
}

func files(contents string) map[string][]byte {
	return map[string][]byte{"index.ts": []byte(contents)}
}

func snapTagged(t testing.TB, s *Scope, name, tag, contents string) model.ComponentID {
	t.Helper()
	res, err := s.Snap(context.Background(), cid(name), files(contents), SnapOptions{
		Message:  "tag " + tag,
		Username: "bob",
		Email:    "bob@example.com",
		Tag:      tag,
	})
	require.NoError(t, err)
	return res
}

// contentsOf returns the contents of index.ts in a state
func contentsOf(t testing.TB, state *State) string {
	t.Helper()
	require.NotNil(t, state)
	f, ok := state.File("index.ts")
	require.True(t, ok)
	return string(f.Contents)
}
