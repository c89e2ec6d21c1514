// Package cli implements the openswarm-mem CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yte121/openswarm-sub022/internal/cache"
	"github.com/yte121/openswarm-sub022/internal/config"
	"github.com/yte121/openswarm-sub022/internal/logger"
	"github.com/yte121/openswarm-sub022/internal/memory"
	"github.com/yte121/openswarm-sub022/internal/store"
)

var (
	dbPath    string
	configDir string
	debugFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "openswarm-mem",
	Short: "Persistent, versioned memory for agent swarms",
	Long:  "Durable, queryable, time-travelable key-value memory. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: config or ~/.openswarm/memory.db)")
	RootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Config directory (default: ~/.openswarm)")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if debugFlag {
		cfg.Debug = true
	}
	return cfg, nil
}

func openManager() (*memory.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	backend, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	strategy, err := cache.ParseStrategy(cfg.Cache.Strategy)
	if err != nil {
		backend.Close()
		return nil, err
	}
	c, err := cache.New(cache.Config{
		MaxSize:  cfg.Cache.MaxSizeBytes,
		TTL:      cfg.Cache.TTL,
		Strategy: strategy,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	return memory.New(memory.Config{
		Backend:   backend,
		Cache:     c,
		Logger:    logger.New(cfg.Debug),
		Namespace: cfg.Namespace,
	})
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
