package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/build"
	"github.com/sells-group/lfb-cli/internal/ingest"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the analysis snapshot from fetched source files",
	Long: `Stages the fetched incident and mobilisation extracts into the sqlite
scratch warehouse, reduces each incident's mobilisations to the
first-arriving pump, and writes the joined rows as the gzip CSV
snapshot that every report and the query API read.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("build"); err != nil {
			return err
		}

		m, err := ingest.LoadManifest(cfg.Data.SourcesPath)
		if err != nil {
			return err
		}
		if len(m.ByKind(ingest.KindIncident)) == 0 {
			return eris.Errorf("build: manifest %s has no incident sources", cfg.Data.SourcesPath)
		}
		if len(m.ByKind(ingest.KindMobilisation)) == 0 {
			return eris.Errorf("build: manifest %s has no mobilisation sources", cfg.Data.SourcesPath)
		}

		workers, _ := cmd.Flags().GetInt("workers")
		if workers == 0 {
			workers = cfg.Build.Workers
		}

		if err := os.MkdirAll(filepath.Dir(cfg.Data.SnapshotPath), 0o755); err != nil {
			return eris.Wrap(err, "build: create snapshot dir")
		}

		zap.L().Info("starting snapshot build",
			zap.String("raw_dir", cfg.Data.RawDir),
			zap.String("snapshot", cfg.Data.SnapshotPath),
			zap.Int("workers", workers),
		)

		res, err := build.Run(ctx, m, build.Options{
			SourcesDir:   cfg.Data.RawDir,
			ScratchPath:  cfg.Data.WorkspacePath,
			SnapshotPath: cfg.Data.SnapshotPath,
			TempDir:      cfg.Build.TempDir,
			Concurrency:  workers,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Snapshot built: %s\n", res.SnapshotPath)
		fmt.Printf("  run           %s\n", res.RunID)
		fmt.Printf("  incidents     %d\n", res.Incidents)
		fmt.Printf("  mobilisations %d\n", res.Mobilisations)
		fmt.Printf("  snapshot rows %d\n", res.SnapshotRows)
		if res.SkippedRows > 0 {
			fmt.Printf("  skipped rows  %d\n", res.SkippedRows)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().Int("workers", 0, "parallel source ingest (default: from config)")
	rootCmd.AddCommand(buildCmd)
}
