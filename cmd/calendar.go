package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/output"
)

var calendarCmd = &cobra.Command{
	Use:     "calendar",
	Short:   "Manage calendars",
	GroupID: "setup",
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendars",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		calendars, err := a.store.Calendars()
		if err != nil {
			return err
		}
		if len(calendars) == 0 {
			output.Info("no calendars (run: calsync calendar refresh)")
			return nil
		}
		for _, c := range calendars {
			fmt.Println(output.CalendarLine(c))
		}
		return nil
	},
}

var calendarRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the calendar list of every account",
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
			output.Info("no accounts configured")
			return nil
		}

		ctx := cmd.Context()
		for _, account := range accounts {
			if err := refreshAccountCalendars(ctx, a, account); err != nil {
				output.Error("refresh %s: %v", account.Username, err)
				return err
			}
		}
		output.Success("calendar list refreshed")
		return nil
	},
}

// refreshAccountCalendars pulls the account's calendar list, upserting rows
// and dropping calendars no longer present remotely.
func refreshAccountCalendars(ctx context.Context, a *app, account *models.Account) error {
	client, err := a.provider.ClientFor(account)
	if err != nil {
		return err
	}

	begin := time.Now()
	pageToken := ""
	for {
		page, err := client.ListCalendars(ctx, pageToken)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			cal, err := a.store.CalendarByRemoteID(account.ID, item.ID)
			if err != nil {
				return err
			}
			if cal == nil {
				cal = &models.Calendar{
					AccountID: account.ID,
					RemoteID:  item.ID,
					Enabled:   true,
				}
			}
			cal.Title = item.Summary
			cal.Color = item.ColorID
			cal.TimeZone = item.TimeZone
			cal.FeedURL = item.FeedURL
			cal.CanModify = item.CanModify()
			cal.SyncTime = time.Now()
			if err := a.store.SaveCalendar(cal); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return a.store.RemoveCalendarsOlderThan(account, begin)
}

var calendarEnableCmd = &cobra.Command{
	Use:   "enable <remote-id>",
	Short: "Enable a calendar for sync",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("account")
		return setCalendarEnabled(args[0], username, true)
	},
}

var calendarDisableCmd = &cobra.Command{
	Use:   "disable <remote-id>",
	Short: "Disable a calendar",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("account")
		return setCalendarEnabled(args[0], username, false)
	},
}

func setCalendarEnabled(remoteID, username string, enabled bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cal, err := calendarByRemoteID(a, remoteID, username)
	if err != nil {
		return err
	}
	if err := a.store.SetCalendarEnabled(cal, enabled); err != nil {
		return err
	}
	if enabled {
		output.Success("enabled %s", cal.Title)
	} else {
		output.Success("disabled %s", cal.Title)
	}
	return nil
}

// calendarByRemoteID resolves a remote calendar id, scoped to an account when
// a username is given. The same remote id can live under several accounts; a
// bare id matching more than one calendar is rejected rather than guessed.
func calendarByRemoteID(a *app, remoteID, username string) (*models.Calendar, error) {
	if username != "" {
		account, err := a.store.AccountByUsername(username)
		if err != nil {
			return nil, err
		}
		if account == nil {
			output.Error("no such account: %s", username)
			return nil, fmt.Errorf("account not found")
		}
		cal, err := a.store.CalendarByRemoteID(account.ID, remoteID)
		if err != nil {
			return nil, err
		}
		if cal == nil {
			output.Error("no such calendar for %s: %s", username, remoteID)
			return nil, fmt.Errorf("calendar not found")
		}
		return cal, nil
	}

	calendars, err := a.store.CalendarsByRemoteID(remoteID)
	if err != nil {
		return nil, err
	}
	switch len(calendars) {
	case 0:
		output.Error("no such calendar: %s", remoteID)
		return nil, fmt.Errorf("calendar not found")
	case 1:
		return calendars[0], nil
	default:
		output.Error("calendar %s exists under %d accounts; pass --account <username>", remoteID, len(calendars))
		return nil, fmt.Errorf("ambiguous calendar id")
	}
}

func init() {
	calendarEnableCmd.Flags().String("account", "", "account username owning the calendar")
	calendarDisableCmd.Flags().String("account", "", "account username owning the calendar")
	calendarCmd.AddCommand(calendarListCmd, calendarRefreshCmd, calendarEnableCmd, calendarDisableCmd)
	rootCmd.AddCommand(calendarCmd)
}
