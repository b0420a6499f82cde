package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/output"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push pending local changes to the remote service",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if reset, _ := cmd.Flags().GetBool("reset"); reset {
			a.center.ResetFailedSynchronization()
		}

		needed, err := a.center.SynchronizationNeeded()
		if err != nil {
			return err
		}
		if !needed {
			output.Info("nothing to sync")
			return nil
		}

		if a.center.IsSynchronizationDisabled() {
			output.Error("synchronization is disabled (run: calsync sync --enable)")
			return fmt.Errorf("sync disabled")
		}

		a.center.TriggerLocalToRemoteSynchronization()
		a.center.Wait()

		if failed := a.center.FailedJobs(); len(failed) > 0 {
			for _, job := range failed {
				output.Error("event %d (%s): %v", job.Event.ID, job.Event.Title, job.Err())
			}
			output.Warning("%d of your changes were not pushed; they will be retried on the next sync", len(failed))
			return fmt.Errorf("sync failed")
		}

		output.Success("all local changes pushed")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	Short:   "Fetch remote events for the configured date window",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.service.TriggerRemoteEventFetch(time.Now()); err != nil {
			return err
		}
		a.service.Wait()

		if errs := a.service.Errors(); len(errs) > 0 {
			for _, e := range errs {
				output.Error("%v", e)
			}
			return fmt.Errorf("pull finished with errors")
		}
		output.Success("remote events pulled")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show synchronization status",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("state: %s\n", a.center.State())

		pending, err := a.store.LocallyModifiedEvents()
		if err != nil {
			return err
		}
		fmt.Printf("pending changes: %d\n", len(pending))
		for _, e := range pending {
			fmt.Println("  " + output.EventLine(e))
		}

		if failed := a.center.FailedJobs(); len(failed) > 0 {
			output.Warning("failed jobs from last run:")
			for _, job := range failed {
				output.Error("  event %d: %v", job.Event.ID, job.Err())
			}
		}
		return nil
	},
}

var enableCmd = &cobra.Command{
	Use:     "enable",
	Short:   "Enable synchronization",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSyncEnabled(true)
	},
}

var disableCmd = &cobra.Command{
	Use:     "disable",
	Short:   "Disable synchronization",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSyncEnabled(false)
	},
}

// setSyncEnabled flips the center's stopped state. The state lives in memory
// per process, so for the CLI this mainly guards daemon mode; it is still
// exposed for symmetry with the engine API.
func setSyncEnabled(enabled bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if enabled {
		a.center.EnableSynchronization()
		output.Success("synchronization enabled")
	} else {
		a.center.DisableSynchronization()
		output.Success("synchronization disabled")
	}
	return nil
}

func init() {
	syncCmd.Flags().Bool("reset", false, "clear a failed state before syncing")
	rootCmd.AddCommand(syncCmd, pullCmd, statusCmd, enableCmd, disableCmd)
}
