package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account, or promote an existing one",
	Long: `Creates the account with the given email, or promotes the existing
account to admin and sets its password. Every session of that account is
revoked.`,
	RunE: runAdminCreate,
}

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "account email (required)")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "account password (required)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	db, svcs, err := openServices()
	if err != nil {
		return err
	}
	defer db.Close()
	defer svcs.Close()

	user, created, err := svcs.Auth.EnsureAdmin(cmd.Context(), adminEmail, adminPassword, adminName)
	if err != nil {
		return err
	}

	verb := "promoted"
	if created {
		verb = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s: %s (%s)\n", verb, user.Email, user.ID)
	return nil
}
