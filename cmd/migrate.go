package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/migrate"
	"github.com/Tiliavir/ots/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade the filestore to the current schema version",
	Long: `Upgrades a filestore written by an older ots. Only needed when
auto_migrate is off in config.toml; otherwise every command migrates on
open.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	backend, err := storage.Open(cfg.FilestorePath())
	if err != nil {
		return err
	}
	defer backend.Close()

	tx, err := backend.Begin(cmd.Context())
	if err != nil {
		return err
	}
	res, err := migrate.CheckAndMigrate(tx, true, logger)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	switch {
	case res.Fresh:
		fmt.Printf("No filestore yet; a new one starts at version %d.\n", res.To)
	case res.Migrated():
		fmt.Printf("Migrated filestore from version %d to %d.\n", res.From, res.To)
	default:
		fmt.Printf("Filestore is up to date (version %d).\n", res.To)
	}
	return nil
}
