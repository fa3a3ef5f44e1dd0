package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/richa/internal/config"
	"github.com/banshee-data/richa/internal/db"
	"github.com/banshee-data/richa/internal/monitoring"
)

var errNoDB = errors.New("no database configured (db_path is empty)")

type rootOptions struct {
	configPath string
	dbPath     string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "richa",
		Short: "Gaze zone attention recorder for driving simulator sessions",
		Long: `richa connects to an eye tracker, follows which cockpit zones the
driver's gaze (or the AI estimate) intersects, and totals the time spent on
each zone per experiment stage and task focus.

Reports are written as text files and archived in a sqlite database.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.EnableDebug(opts.debug)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", fmt.Sprintf("session config JSON (default %s when present)", config.DefaultConfigPath))
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "sqlite database path (overrides db_path)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "verbose feed and zone logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newReportCmd(opts),
		newSessionsCmd(opts),
		newMigrateCmd(opts),
		newPortsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig reads --config, or the default config file if it exists.
// Without either, every setting takes its built-in default.
func (o *rootOptions) loadConfig() (*config.SessionConfig, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err == nil {
			path = config.DefaultConfigPath
		}
	}
	cfg := &config.SessionConfig{}
	if path != "" {
		var err error
		if cfg, err = config.LoadSessionConfig(path); err != nil {
			return nil, err
		}
	}
	if o.dbPath != "" {
		cfg.DBPath = &o.dbPath
	}
	return cfg, nil
}

func (o *rootOptions) openDB() (*db.DB, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return openConfiguredDB(cfg)
}

func openConfiguredDB(cfg *config.SessionConfig) (*db.DB, error) {
	path := cfg.GetDBPath()
	if path == "" {
		return nil, errNoDB
	}
	d, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return d, nil
}
