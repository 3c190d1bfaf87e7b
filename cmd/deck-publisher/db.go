package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards/importer"
	"github.com/ramonehamilton/deck-publisher/internal/storage"
	"github.com/ramonehamilton/deck-publisher/internal/storage/repository"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the card reference database",
	}
	cmd.AddCommand(newDBMigrateCmd(a), newDBImportCmd(a))
	return cmd
}

func newDBMigrateCmd(a *app) *cobra.Command {
	var (
		down     bool
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long: `Apply pending schema migrations.

With --down every migration is rolled back, dropping the reference tables.
A snapshot of the database is written to backups/ first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if down && !noBackup {
				if err := a.backupDatabase(ctx); err != nil {
					return err
				}
			}

			mm, err := storage.NewMigrationManager(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = mm.Close() }()

			if down {
				err = mm.Down()
			} else {
				err = mm.Up()
			}
			if err != nil {
				return err
			}

			version, dirty, err := mm.Version()
			if err != nil {
				return err
			}
			a.logger.Info("Database migrated",
				zap.String("path", a.cfg.Database.Path),
				zap.Bool("down", down),
				zap.Uint("version", version),
				zap.Bool("dirty", dirty))
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the database snapshot taken before rolling back")
	return cmd
}

// backupDatabase snapshots the configured database into backups/ next to it.
// In-memory databases are skipped.
func (a *app) backupDatabase(ctx context.Context) error {
	storageConfig, err := a.cfg.StorageConfig()
	if err != nil {
		return err
	}
	if storageConfig.Path == ":memory:" {
		return nil
	}

	db, err := storage.Open(ctx, storageConfig)
	if err != nil {
		return fmt.Errorf("failed to open card database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return a.snapshot(ctx, db, storageConfig.Path)
}

func (a *app) snapshot(ctx context.Context, db *storage.DB, path string) error {
	backup, err := db.Backup(ctx, filepath.Join(filepath.Dir(path), "backups"))
	if err != nil {
		return err
	}
	a.logger.Info("Database backed up",
		zap.String("path", backup.Path),
		zap.String("sha256", backup.Checksum))
	return nil
}

func newDBImportCmd(a *app) *cobra.Command {
	var (
		batchSize int
		noBackup  bool
		replace   bool
	)

	cmd := &cobra.Command{
		Use:   "import <cards.csv>",
		Short: "Import reference card rows from a CSV export",
		Long: `Import reference card rows from a CSV export.

The header row must name at least the id, name and set columns. Optional
columns: type, rarity, mana_cost, rating, artist, code_mtgnet, code_gatherer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			storageConfig, err := a.cfg.StorageConfig()
			if err != nil {
				return err
			}
			db, err := storage.Open(ctx, storageConfig)
			if err != nil {
				return fmt.Errorf("failed to open card database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if !noBackup && storageConfig.Path != ":memory:" {
				if err := a.snapshot(ctx, db, storageConfig.Path); err != nil {
					return err
				}
			}

			if replace {
				removed, err := db.ClearReference(ctx)
				if err != nil {
					return err
				}
				a.logger.Info("Cleared reference tables", zap.Int64("cards", removed))
			}

			options := importer.DefaultImportOptions()
			if batchSize > 0 {
				options.BatchSize = batchSize
			}
			options.Progress = func(n int) {
				a.logger.Debug("Import progress", zap.Int("cards", n))
			}

			imp := importer.NewCSVImporter(repository.NewCardRepository(db.Conn()), options, a.logger)
			stats, err := imp.ImportFile(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards in %d sets (%d rows, %d skipped) in %s\n",
				stats.ImportedCards, stats.Sets, stats.TotalRows, stats.SkippedRows, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per database transaction")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the database snapshot taken before importing")
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete all reference cards and sets before importing")
	return cmd
}
