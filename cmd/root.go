package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vectis-research/sinotrace/internal/config"
	"github.com/vectis-research/sinotrace/internal/rules"
	"github.com/vectis-research/sinotrace/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sinotrace",
	Short: "Rule-based entity detection and risk tiering for procurement data",
	Long:  "Scans procurement and award records for China-linked entities, scores detection signals, assigns risk tiers, and tracks analyst review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "sinotrace.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadRules returns the compiled rule table from cfg.Rules.Path, or the
// shipped defaults when no path is configured.
func loadRules() (*rules.Compiled, error) {
	if cfg != nil && cfg.Rules.Path != "" {
		return rules.Load(cfg.Rules.Path)
	}
	return rules.DefaultCompiled(), nil
}
