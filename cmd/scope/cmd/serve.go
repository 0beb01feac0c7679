package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneconcern/scope/internal"
	"github.com/oneconcern/scope/pkg/config"
	"github.com/oneconcern/scope/pkg/dlogger"
	"github.com/oneconcern/scope/pkg/errors"
	"github.com/oneconcern/scope/pkg/metrics"
	"github.com/oneconcern/scope/pkg/scope"
	"github.com/oneconcern/scope/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scope to remote clients",
	Long: `Serve the scope over websockets, as a remote for other scopes.

The server stops on interrupt, after the sessions in progress are closed.`,
	Example: `% scope serve --listen :3000 --metrics`,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext("serve")
		defer cancel()

		cfg, err := config.Load(appFs, scopePath())
		if err != nil {
			wrapFatalln("load scope configuration", err)
			return
		}
		maxMessageSize, err := cfg.MaxMessageSize()
		if err != nil {
			wrapFatalln("load scope configuration", err)
			return
		}
		level := cfg.LogLevel
		if scopeFlags.root.logLevel != "" {
			level = scopeFlags.root.logLevel
		}
		l, err := dlogger.GetLogger(level)
		if err != nil {
			wrapFatalln("create logger", err)
			return
		}

		s, err := openScope(ctx, scope.Logger(l), scope.Metrics(metrics.Default()))
		if err != nil {
			wrapFatalln("open scope", err)
			return
		}
		defer closeScope(s)

		addr := cfg.Network.Listen
		if scopeFlags.serve.listen != "" {
			addr = scopeFlags.serve.listen
		}
		srv := server.New(scope.NewRemoteHandler(s),
			server.WithAddr(addr),
			server.WithMaxMessageSize(maxMessageSize),
			server.WithMetrics(scopeFlags.serve.metrics),
			server.WithLogger(l),
		)
		if dir := scopeFlags.serve.profileDir; dir != "" {
			watchdog := internal.MemWatch(ctx, internal.MemWatchParams{
				Fs:         appFs,
				DestDir:    dir,
				NamePrefix: "serve-" + s.Name(),
				LogEvery:   time.Minute,
				MinMBs:     []internal.MinProfMB{{HeapSys: scopeFlags.serve.profileMB}},
				Logger:     l,
			})
			defer func() {
				cancel()
				<-watchdog
			}()
		}
		l.Info("serving scope", zap.String("scope", s.Name()), zap.String("addr", addr))
		fmt.Fprintf(out, "serving scope %s on %s\n", s.Name(), addr)

		if err = srv.ListenAndServe(ctx); err != nil && !errors.Is(err, server.ErrServerClosed) {
			wrapFatalln("serve", err)
			return
		}
		stats := srv.Stats()
		l.Info("server stopped", zap.Int64("connections", stats.Connections), zap.Int64("requests", stats.Requests))
	},
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
