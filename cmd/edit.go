package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/output"
)

var addCmd = &cobra.Command{
	Use:     "add <title>",
	Short:   "Add an event (pushed on next sync)",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		calendarID, _ := cmd.Flags().GetString("calendar")
		username, _ := cmd.Flags().GetString("account")
		startFlag, _ := cmd.Flags().GetString("start")
		endFlag, _ := cmd.Flags().GetString("end")
		location, _ := cmd.Flags().GetString("location")
		description, _ := cmd.Flags().GetString("description")
		allDay, _ := cmd.Flags().GetBool("all-day")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cal, err := calendarByRemoteID(a, calendarID, username)
		if err != nil {
			return err
		}
		if !cal.CanModify {
			output.Error("calendar %q is read-only", cal.Title)
			return fmt.Errorf("calendar read-only")
		}

		start, end, err := parseEventTimes(startFlag, endFlag, allDay)
		if err != nil {
			output.Error("%v", err)
			return err
		}

		event := &models.Event{
			CalendarID:  cal.ID,
			Title:       args[0],
			Location:    location,
			Description: description,
			Start:       start,
			End:         end,
			AllDay:      allDay,
		}
		if err := a.center.AddEvent(event); err != nil {
			return err
		}
		output.Success("added event %d: %s", event.ID, event.Title)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	Short:   "Edit an event (pushed on next sync)",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		event, err := eventByArg(a, args[0])
		if err != nil {
			return err
		}

		if v, _ := cmd.Flags().GetString("title"); v != "" {
			event.Title = v
		}
		if v, _ := cmd.Flags().GetString("location"); v != "" {
			event.Location = v
		}
		if v, _ := cmd.Flags().GetString("description"); v != "" {
			event.Description = v
		}
		if v, _ := cmd.Flags().GetString("start"); v != "" {
			t, err := parseLocalTime(v, event.AllDay)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			event.Start = t
		}
		if v, _ := cmd.Flags().GetString("end"); v != "" {
			t, err := parseLocalTime(v, event.AllDay)
			if err != nil {
				output.Error("%v", err)
				return err
			}
			event.End = t
		}

		if err := a.center.ModifyEvent(event); err != nil {
			return err
		}
		output.Success("updated event %d (%s)", event.ID, event.Status)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <id>",
	Short:   "Delete an event (pushed on next sync)",
	GroupID: "events",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		event, err := eventByArg(a, args[0])
		if err != nil {
			return err
		}
		if err := a.center.DeleteEvent(event); err != nil {
			return err
		}
		output.Success("deleted event %d", event.ID)
		return nil
	},
}

func eventByArg(a *app, arg string) (*models.Event, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		output.Error("invalid event id %q", arg)
		return nil, err
	}
	event, err := a.store.EventByID(id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		output.Error("no such event: %d", id)
		return nil, fmt.Errorf("event not found")
	}
	return event, nil
}

func parseEventTimes(startFlag, endFlag string, allDay bool) (time.Time, time.Time, error) {
	if startFlag == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("missing --start")
	}
	start, err := parseLocalTime(startFlag, allDay)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	var end time.Time
	if endFlag != "" {
		end, err = parseLocalTime(endFlag, allDay)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else if allDay {
		end = start.AddDate(0, 0, 1)
	} else {
		end = start.Add(time.Hour)
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end must be after start")
	}
	return start, end, nil
}

func parseLocalTime(s string, allDay bool) (time.Time, error) {
	if allDay {
		t, err := time.ParseInLocation("2006-01-02", s, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD HH:MM)", s)
	}
	return t, nil
}

func init() {
	addCmd.Flags().String("calendar", "", "remote id of the target calendar")
	addCmd.Flags().String("account", "", "account username owning the calendar")
	addCmd.Flags().String("start", "", "start time (YYYY-MM-DD HH:MM, or YYYY-MM-DD with --all-day)")
	addCmd.Flags().String("end", "", "end time (defaults to start + 1h)")
	addCmd.Flags().String("location", "", "event location")
	addCmd.Flags().String("description", "", "event description")
	addCmd.Flags().Bool("all-day", false, "all-day event")

	editCmd.Flags().String("title", "", "new title")
	editCmd.Flags().String("start", "", "new start time")
	editCmd.Flags().String("end", "", "new end time")
	editCmd.Flags().String("location", "", "new location")
	editCmd.Flags().String("description", "", "new description")

	rootCmd.AddCommand(addCmd, editCmd, rmCmd)
}
