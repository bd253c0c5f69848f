// Package cmd provides the CLI commands for avina.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LRZ-BADW/avina/internal/config"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = zerolog.Nop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "avina",
	Short: "Accounting and billing for an OpenStack cloud",
	Long: `avina tracks server states, flavor prices and budgets of an OpenStack
cloud and computes consumption and cost over time windows.

Examples:
  avina serve
  avina migrate
  avina import-prices prices.yaml
  avina cost --project 3 --detail
  avina budget-over-tree --all --end 2024-12-31T00:00:00Z`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); AVINA_* environment variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importPricesCmd)
	rootCmd.AddCommand(costCmd)
	rootCmd.AddCommand(consumptionCmd)
	rootCmd.AddCommand(budgetOverTreeCmd)
	rootCmd.AddCommand(tokenCmd)
}

// newLogger builds the root logger. Logs go to w so that command output on
// stdout stays parseable.
func newLogger(c config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if c.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// openStore connects to the configured database
func openStore(ctx context.Context) (*store.Store, error) {
	dbCfg := store.DefaultConfig(cfg.Database.URL)
	dbCfg.MaxConnections = cfg.Database.MaxConnections
	dbCfg.MinConnections = cfg.Database.MinConnections
	dbCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	dbCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := store.NewPool(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	return store.New(pool), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
