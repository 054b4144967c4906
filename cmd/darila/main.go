// Command darila serves a personal gift wishlist.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/config"
)

var (
	envFile string
	dbPath  string
	logPath string
	addr    string
)

var rootCmd = &cobra.Command{
	Use:   "darila",
	Short: "Gift wishlist server",
	Long: `darila keeps a wishlist of gift ideas grouped into categories.

Guests browse the list and mark interest in items; the owner manages the
catalog through the admin API. Settings come from DARILA_* environment
variables, optionally loaded from a .env file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database path (overrides DARILA_DB)")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log", "l", "", "log file path (overrides DARILA_LOG)")
	rootCmd.PersistentFlags().StringVarP(&addr, "addr", "a", "", "listen address (overrides DARILA_ADDR)")
	rootCmd.AddCommand(serveCmd, initCmd, importCmd, resetInterestCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration, applies command line overrides and
// installs the global logger. The returned cleanup flushes the logger.
func setup() (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logPath != "" {
		cfg.LogFile = logPath
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, cleanup, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, cleanup, nil
}
