package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/dateutil"
	"github.com/marcus/calsync/internal/eventlist"
	"github.com/marcus/calsync/internal/output"
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "Show events for a month",
	GroupID: "events",
	RunE: func(cmd *cobra.Command, args []string) error {
		monthFlag, _ := cmd.Flags().GetString("month")
		search, _ := cmd.Flags().GetString("search")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if search != "" {
			events, err := a.store.SearchEvents(search)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				output.Info("no events match %q", search)
				return nil
			}
			for _, e := range events {
				fmt.Println(output.EventLine(e))
			}
			return nil
		}

		ref := time.Now()
		if monthFlag != "" {
			ref, err = time.ParseInLocation("2006-01", monthFlag, time.Local)
			if err != nil {
				output.Error("invalid month %q (want YYYY-MM)", monthFlag)
				return err
			}
		}

		year, month := ref.Year(), int(ref.Month())
		start := dateutil.BeginningOfMonth(month, year, time.Local)
		end := start.AddDate(0, 1, 0)

		events, err := a.store.EventsInRange(start, end)
		if err != nil {
			return err
		}

		list := eventlist.New(start, end)
		for _, e := range events {
			list.Add(e)
		}

		empty := true
		for day := 1; day <= dateutil.DaysInMonth(month, year); day++ {
			date := dateutil.BeginningOfDay(day, month, year, time.Local)
			dayEvents := list.EventsForDate(date)
			if len(dayEvents) == 0 {
				continue
			}
			empty = false
			fmt.Println(date.Format("Mon Jan 2"))
			for _, e := range dayEvents {
				fmt.Println("  " + output.EventLine(e))
			}
		}
		if empty {
			output.Info("no events in %s", start.Format("January 2006"))
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("month", "", "month to show (YYYY-MM, default current)")
	eventsCmd.Flags().String("search", "", "search events by title or location")
	rootCmd.AddCommand(eventsCmd)
}
