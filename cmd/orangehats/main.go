package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orangehats/orangehats/internal/app"
	"github.com/orangehats/orangehats/internal/config"
)

var (
	cfgFile   string
	envFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "orangehats",
	Short:         "Orange Hats - security audit directory",
	Long:          `Orange Hats serves the audit, auditor, research and tool directory and its admin API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("orangehats version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "/etc/orangehats/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file with AWS_* variables")

	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, configCmd, userCmd, cleanupCmd, contentCmd)
}

// loadConfig reads the .env file, then the YAML configuration
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.Load(cfgFile)
}

// openApp builds the application for one-shot commands
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, version, app.NewLogger(cfg.Logging, os.Stderr))
}
