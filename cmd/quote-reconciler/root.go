package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quote-vehicle-reconciler/internal/bootstrap"
	"quote-vehicle-reconciler/internal/common/config"
	"quote-vehicle-reconciler/internal/common/logger"
)

// app is shared by the subcommands once the root command has connected.
type app struct {
	configDir string
	fixtures  string
	logLevel  string

	cfg      *config.Config
	log      *zap.Logger
	services *bootstrap.Services
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "quote-reconciler",
		Short: "Match legacy quote vehicles against the vehicle catalog",
		Long: `quote-reconciler resolves the make, model and body style codes of legacy
quote assets to the identifiers of the active vehicle catalog.

Stores are read from configs/config.yaml and the environment. With
--fixtures the stages run over an Extended JSON fixture file instead of
MongoDB; only dry runs are possible then.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.connect,
		PersistentPostRunE: a.close,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config", "", "directory holding config.yaml (default: ./configs)")
	root.PersistentFlags().StringVar(&a.fixtures, "fixtures", "", "Extended JSON fixture file to read instead of MongoDB")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newVersionsCmd(a))
	root.AddCommand(newAssetsCmd(a))
	root.AddCommand(newResolveCmd(a))

	return root
}

func (a *app) connect(cmd *cobra.Command, _ []string) error {
	var err error
	if a.configDir != "" {
		a.cfg, err = config.LoadWithPaths(a.configDir)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.fixtures != "" {
		a.cfg.Reconcile.FixturesPath = a.fixtures
	}
	if a.logLevel != "" {
		a.cfg.Logging.Level = a.logLevel
	}

	// stdout carries the command output
	a.log = logger.New(a.cfg.Logging.Level, a.cfg.Logging.Format, "stderr")

	a.services, err = bootstrap.Build(cmd.Context(), a.cfg, a.log, 3)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (a *app) close(cmd *cobra.Command, _ []string) error {
	if a.services != nil {
		a.services.Close(cmd.Context())
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return nil
}
