package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/marcus/calsync/internal/output"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	Short:   "Run periodic push and pull in the foreground",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		interval := a.cfg.DaemonInterval
		if flagInterval, _ := cmd.Flags().GetString("interval"); flagInterval != "" {
			interval = flagInterval
		}

		c := cron.New()
		_, err = c.AddFunc(interval, func() {
			slog.Info("scheduled sync tick")

			a.center.TriggerLocalToRemoteSynchronization()
			a.center.Wait()
			if failed := a.center.FailedJobs(); len(failed) > 0 {
				slog.Warn("push finished with failures", "failed", len(failed))
			}

			if err := a.service.TriggerRemoteEventFetch(time.Now()); err != nil {
				slog.Warn("trigger pull", "err", err)
				return
			}
			a.service.Wait()
			if errs := a.service.Errors(); len(errs) > 0 {
				slog.Warn("pull finished with errors", "errors", len(errs))
			}
		})
		if err != nil {
			output.Error("invalid interval %q: %v", interval, err)
			return err
		}

		c.Start()
		output.Info("daemon running (interval %s), ctrl-c to stop", interval)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		// Stop scheduling, then cancel any in-flight pull before exit.
		ctx := c.Stop()
		a.service.StopRemoteEventFetch()
		<-ctx.Done()
		output.Info("daemon stopped")
		return nil
	},
}

func init() {
	daemonCmd.Flags().String("interval", "", "cron spec for the sync interval (default from config)")
	rootCmd.AddCommand(daemonCmd)
}
