package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/config"
	"github.com/ByteCrister/bd-travel-spirit-support-system-sub002/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBPath)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo articles, advertisements and tours into empty tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)
		res, err := repo.Seed(cmd.Context(), db, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d articles, %d advertisements, %d tours\n",
			res.Articles, res.Advertisements, res.Tours)
		return nil
	},
}

// openDB opens the SQLite database and migrates it. The database always
// holds the action journal; in embedded mode it is also the system of record.
func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// seedIfRequested loads demo data at startup when SEED_DEMO is set and the
// embedded backend is in use.
func seedIfRequested(ctx context.Context, db *gorm.DB, cfg config.Config) error {
	if !cfg.Backend.SeedDemo || cfg.Backend.Mode != config.BackendEmbedded {
		return nil
	}
	res, err := repo.Seed(ctx, db, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info().
		Int("articles", res.Articles).
		Int("advertisements", res.Advertisements).
		Int("tours", res.Tours).
		Msg("demo data seeded")
	return nil
}
