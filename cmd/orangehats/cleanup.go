package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired admin sessions",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Auth().CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}

	fmt.Printf("Expired sessions deleted: %d\n", n)
	return nil
}
