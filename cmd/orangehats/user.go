package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Admin account commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create an admin account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin accounts",
	RunE:  runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Delete an admin account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userPasswordCmd = &cobra.Command{
	Use:   "password [username]",
	Short: "Set an admin account's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPassword,
}

var userPassword string

func init() {
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (will prompt if not provided)")
	userPasswordCmd.Flags().StringVar(&userPassword, "password", "", "Password (will prompt if not provided)")

	userCmd.AddCommand(userCreateCmd, userListCmd, userDeleteCmd, userPasswordCmd)
}

// readPassword prompts twice unless --password was given
func readPassword() (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}

	fmt.Print("Enter password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	password, err := readPassword()
	if err != nil {
		return err
	}

	u, err := a.Auth().CreateUser(ctx, args[0], password)
	if err != nil {
		return err
	}

	fmt.Printf("User created: %s (ID: %s)\n", u.Username, u.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.Auth().ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tSOURCE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.AuthSource, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Auth().DeleteUser(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("User deleted: %s\n", args[0])
	return nil
}

func runUserPassword(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	password, err := readPassword()
	if err != nil {
		return err
	}

	if err := a.Auth().SetPassword(ctx, args[0], password); err != nil {
		return err
	}

	fmt.Printf("Password updated for %s\n", args[0])
	return nil
}
