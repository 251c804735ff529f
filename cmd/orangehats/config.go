package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Bucket: %s (%s)\n", cfg.Storage.Bucket, cfg.Storage.Region)
	fmt.Printf("  Content dir: %s\n", cfg.Content.Dir)
	fmt.Printf("  TLS: %v (acme: %v)\n", cfg.Server.TLS.Enabled, cfg.Server.TLS.ACME.Enabled)
	fmt.Printf("  OIDC auth: %v\n", cfg.Auth.OIDC.Enabled)
	fmt.Printf("  Rate limit: %v\n", cfg.Applications.RateLimit.Enabled)
	fmt.Printf("  Notifications: %v\n", cfg.Notify.SMTP.Enabled())
	fmt.Printf("  Metrics: %v\n", cfg.Metrics.Enabled)

	return nil
}
