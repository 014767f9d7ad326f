// Package cmd implements the command-line interface for the fact-check
// report harvester.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medialab/tfcharvest/cmd/harvest"
	"github.com/medialab/tfcharvest/cmd/index"
	"github.com/medialab/tfcharvest/cmd/search"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "tfcharvest",
		Short: "Incremental fact-check report harvester",
		Long: `Harvests fact-check reports from the TFC listing, embeds their
content, and upserts them into Elasticsearch without re-processing
reports ingested in a prior run.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to Viper.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(harvest.Command())
	rootCmd.AddCommand(index.Command())
	rootCmd.AddCommand(search.Command())
}

// initConfig reads in the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; environment variables and defaults cover it.
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v\n", err)
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	if debug {
		viper.Set("logger.level", "debug")
	}

	return nil
}

// bindEnvVars maps environment variables to config keys.
func bindEnvVars() error {
	bindings := map[string][]string{
		"elasticsearch.addresses":  {"ELASTICSEARCH_HOSTS", "ELASTICSEARCH_ADDRESSES"},
		"elasticsearch.username":   {"ELASTICSEARCH_USERNAME", "es_username"},
		"elasticsearch.password":   {"ELASTICSEARCH_PASSWORD", "es_password"},
		"elasticsearch.api_key":    {"ELASTICSEARCH_API_KEY"},
		"elasticsearch.cloud_id":   {"ELASTICSEARCH_CLOUD_ID"},
		"elasticsearch.index_name": {"ELASTICSEARCH_INDEX_NAME"},
		"openai.api_key":           {"OPENAI_API_KEY"},
		"logger.level":             {"LOG_LEVEL"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := viper.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return nil
}
