package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/boundary"
	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON query API",
	Long: `Starts the HTTP query API over the analysis snapshot. The snapshot is
loaded and enriched once up front; a snapshot that fails to load stops
the server from starting at all.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ref, err := boundary.Load(ctx, cfg.Data.BoundaryPath, cfg.Data.PopulationPath)
		if err != nil {
			return err
		}

		provider := dataset.NewProvider(cfg.Data.SnapshotPath, enrich.Func(enrich.Options{
			MaxPlausibleSeconds: cfg.Clean.MaxPlausibleSeconds,
			Reference:           ref,
		}))

		// Fail at startup on a broken snapshot, not on the first
		// request. A snapshot replaced while serving is picked up by
		// the provider on its changed mtime.
		ds, err := provider.Load(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("snapshot ready",
			zap.Int("rows", len(ds.Rows)),
			zap.Int("boroughs", ref.Count()),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.New(provider, ref, cfg.Analysis.WeightedBoroughs).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
