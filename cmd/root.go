package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/config"
	"github.com/Tiliavir/ots/internal/odoo"
	"github.com/Tiliavir/ots/internal/storage"
	"github.com/Tiliavir/ots/internal/timesheet"
)

// lookupTimeout bounds the best-effort task lookups made while adding or
// editing entries, so an unreachable backend cannot stall a local command.
const lookupTimeout = 10 * time.Second

var (
	configDir string
	cfg       config.Config
	logger    = slog.Default()
)

var _ timesheet.Remote = (*odoo.Client)(nil)

var rootCmd = &cobra.Command{
	Use:   "ots",
	Short: "ots – record your time locally and push it to Odoo",
	Long: `ots keeps a local, date-partitioned log of timesheets with a single
running timer, and pushes finished entries to Odoo when you are ready.

Entries are addressed by their index as shown by 'ots list': "N" is entry N
of today, "D.N" is entry N of the day D days ago.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called from main. Storage corruption exits
// with 2, every other failure with 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if apperr.Fatal(err) {
		return 2
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"Directory holding config.toml, the session and the filestore (default $OTS_CONFIG_DIR or ~/.ots)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(lunchCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(planningCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	dir := configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return err
		}
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return nil
}

// withStore opens the configured filestore and runs fn in one transaction.
func withStore(ctx context.Context, remote timesheet.Remote, fn func(*timesheet.Store) error) error {
	backend, err := storage.Open(cfg.FilestorePath())
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := timesheet.Options{
		AutoMigrate:  cfg.AutoMigrate,
		HistoryDepth: cfg.HistoryDepth,
		Logger:       logger,
		Remote:       remote,
	}
	return timesheet.WithStore(ctx, backend, opts, fn)
}

// remoteClient returns a client for the saved session. Without a session it
// fails with apperr.ErrAuth.
func remoteClient() (*odoo.Client, error) {
	sess, err := odoo.LoadSession(odoo.SessionPath(cfg.Dir()))
	if err != nil {
		return nil, err
	}
	return odoo.New(*sess,
		odoo.WithTimeout(cfg.Timeout()),
		odoo.WithKeyField(cfg.Backend.KeyField),
		odoo.WithLogger(logger),
	), nil
}

// optionalRemote is remoteClient for best-effort lookups: nil when offline.
func optionalRemote() timesheet.Remote {
	c, err := remoteClient()
	if err != nil {
		logger.Debug("no odoo session, working offline", slog.String("error", err.Error()))
		return nil
	}
	return c
}
