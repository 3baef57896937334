package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arqioly/arqioly/pkg/config"
	"github.com/arqioly/arqioly/pkg/database"
	"github.com/arqioly/arqioly/pkg/logging"
	"github.com/arqioly/arqioly/pkg/services"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending Postgres migrations",
	Long: `Apply the migrations in database.migrations_path to the configured
Postgres database. Only needed for store.backend=postgres; serve also applies
them on startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Backend != config.StoreBackendPostgres {
			return fmt.Errorf("store backend is %q; migrations only apply to %q",
				cfg.Store.Backend, config.StoreBackendPostgres)
		}
		logger, syncLogger, err := logging.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer syncLogger()
		return database.MigrateURL(cfg.Database.MigrationURL(), cfg.Database.MigrationsPath, logger)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default project, categories, tags and system prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := services.NewSeeder(a.repos, a.publisher, a.logger).InitializeDefaults(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var (
	exportOutDir  string
	exportArchive bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full export of every prompt to a JSON file",
	Long: `Write every prompt with its version history, projects, categories and
tags to arqioly_export_<timestamp>.json.

With --s3 the file is also uploaded to the configured export bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if exportArchive && !cfg.Export.IsAvailable() {
			return fmt.Errorf("--s3 requires export.s3_bucket to be configured")
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		archiver, err := a.archiver(ctx)
		if err != nil {
			return err
		}
		file, err := services.NewExportService(a.repos, archiver, a.publisher, a.logger).ExportAll(ctx, exportArchive)
		if err != nil {
			return err
		}

		path := filepath.Join(exportOutDir, file.Filename)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prompts to %s\n", file.Prompts, path)
		if file.Location != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Archived to %s\n", file.Location)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutDir, "out", "o", ".", "directory to write the export file to")
	exportCmd.Flags().BoolVar(&exportArchive, "s3", false, "also upload the export to the configured S3 bucket")
}
