package cmd

import (
	"fmt"
	"os"

	"riftstats/internal/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	envFile     string
	logLevel    string
	storeDriver string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "riftstats",
	Short: "League of Legends match telemetry stats",
	Long: "Aggregate ranked match telemetry into champion, matchup, duo and ban buckets,\n" +
		"and score players against those buckets.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default: search .env, ../.env, ../../.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "override STORE_DRIVER (sqlite, turso, postgres, memory)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(bucketCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if config.LoadEnvFile(envFile) == "" {
			return fmt.Errorf("failed to load env file %s", envFile)
		}
	} else if path := config.LoadEnvFile(); path != "" {
		log.Debug("Loaded .env", "path", path)
	}

	c, err := config.FromEnv(overrideEnv(os.Getenv, map[string]string{
		"LOG_LEVEL":    logLevel,
		"STORE_DRIVER": storeDriver,
	}))
	if err != nil {
		return err
	}
	cfg = c
	log.SetLevel(cfg.Level())
	return nil
}

// overrideEnv layers non-empty flag values over an env lookup.
func overrideEnv(getenv func(string) string, overrides map[string]string) func(string) string {
	return func(key string) string {
		if v := overrides[key]; v != "" {
			return v
		}
		return getenv(key)
	}
}
