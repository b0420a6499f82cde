package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/output"
	"github.com/marcus/calsync/internal/secrets"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Short:   "Manage remote accounts",
	GroupID: "setup",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a remote account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			output.Error("missing --token")
			return fmt.Errorf("missing token")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		username := args[0]
		existing, err := a.store.AccountByUsername(username)
		if err != nil {
			return err
		}
		if existing != nil {
			output.Error("account %s already exists", username)
			return fmt.Errorf("account exists")
		}

		account := &models.Account{Username: username}
		if err := a.store.SaveAccount(account); err != nil {
			return err
		}
		account.CredentialKey = secrets.AccountKey(account.ID)
		if err := a.store.SaveAccount(account); err != nil {
			return err
		}
		if err := a.vault.Store(account.CredentialKey, token); err != nil {
			return fmt.Errorf("store credential: %w", err)
		}

		output.Success("added account %s", username)
		output.Info("run 'calsync calendar refresh' to fetch its calendars")
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		accounts, err := a.store.Accounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			output.Info("no accounts (run: calsync account add <username> --token <token>)")
			return nil
		}
		for _, acct := range accounts {
			calendars, err := a.store.CalendarsForAccount(acct)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d calendars)\n", acct.Username, len(calendars))
		}
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove an account and its calendars",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		account, err := a.store.AccountByUsername(args[0])
		if err != nil {
			return err
		}
		if account == nil {
			output.Error("no such account: %s", args[0])
			return fmt.Errorf("account not found")
		}

		if err := a.store.RemoveAccount(account); err != nil {
			return err
		}
		if account.CredentialKey != "" {
			if err := a.vault.Delete(account.CredentialKey); err != nil {
				output.Warning("remove credential: %v", err)
			}
		}
		output.Success("removed account %s", account.Username)
		return nil
	},
}

func init() {
	accountAddCmd.Flags().String("token", "", "API token for the remote service")
	accountCmd.AddCommand(accountAddCmd, accountListCmd, accountRemoveCmd)
	rootCmd.AddCommand(accountCmd)
}
