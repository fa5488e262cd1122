package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/formcoach/internal/adapters/repository"
	"github.com/okian/formcoach/internal/config"
)

// Migration actions.
const (
	migrateUp      = "up"
	migrateDown    = "down"
	migrateVersion = "version"
)

// ErrUnknownMigrateAction is returned for an action other than up, down or version.
var ErrUnknownMigrateAction = errors.New("unknown migrate action (want up, down or version)")

func newMigrateCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back the SQLite schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{migrateUp, migrateDown, migrateVersion},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := migrateUp
			if len(args) == 1 {
				action = args[0]
			}
			if path == "" {
				cfg, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				if cfg.Storage.Driver != config.DriverSQLite {
					return fmt.Errorf("%w: migrate needs storage.driver=sqlite, got %q", config.ErrInvalidConfig, cfg.Storage.Driver)
				}
				path = cfg.Storage.Path
			}
			return runMigrate(cmd.Context(), path, action, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "database file (defaults to storage.path)")
	return cmd
}

// runMigrate opens the database at path without auto-migration and runs action.
func runMigrate(ctx context.Context, path, action string, out io.Writer) error {
	switch action {
	case migrateUp, migrateDown, migrateVersion:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMigrateAction, action)
	}

	sc := repository.DefaultSQLiteConfig(path)
	sc.AutoMigrate = false
	store, err := repository.OpenSQLite(ctx, sc)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	mm, err := store.Migrator()
	if err != nil {
		return err
	}
	defer func() { _ = mm.Close() }()

	switch action {
	case migrateUp:
		err = mm.Up()
	case migrateDown:
		err = mm.Down()
	}
	if err != nil {
		return err
	}

	version, dirty, err := mm.Version()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
