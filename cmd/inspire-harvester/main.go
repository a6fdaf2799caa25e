// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the inspire-harvester CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/inspire-harvester/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the inspire-harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "inspire-harvester",
	Short: "Harvest bibliographic records from the INSPIREHEP API into MongoDB",
	Long: `inspire-harvester crawls the INSPIREHEP literature API and persists records
to MongoDB with idempotent writes. Queries whose date range matches more
records than the API's 10,000-hit ceiling are recursively bisected on the
publication year range until every sub-query can be paginated exhaustively.

The harvest subcommand collects the corpus; the citations subcommand then
resolves the cited-by list for every corpus document.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		pretty, _ := cmd.Flags().GetBool("pretty")
		logging.Setup(logging.Config{Level: level, Pretty: pretty})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./inspire-harvester.yaml or ~/.config/inspire-harvester/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("pretty", false, "human-readable log output instead of JSON")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("inspire-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "inspire-harvester"))
		}
	}

	viper.SetEnvPrefix("INSPIRE_HARVESTER")
	viper.AutomaticEnv()

	viper.SetDefault("store.uri", "mongodb://localhost:27017")
	viper.SetDefault("store.database", "inspirehep")
	viper.SetDefault("store.collection", "lhc")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
