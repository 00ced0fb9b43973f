package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timesheet and today's total",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		now := s.Now()
		active, err := s.Running()
		if err != nil {
			return err
		}
		if active != nil {
			e := active.Entry
			fmt.Println("Running:")
			fmt.Printf("  Index: %s\n", address.Format(active.Pointer, now))
			fmt.Printf("  Timesheet: %s\n", entryLabel(e))
			if title := entryTitle(e); title != "" {
				fmt.Printf("  Task: %s\n", title)
			}
			since := e.StartedAt.In(now.Location())
			if timecalc.SameDay(since, now) {
				fmt.Printf("  Since: %s\n", since.Format("15:04"))
			} else {
				fmt.Printf("  Since: %s\n", since.Format("2006-01-02 15:04"))
			}
			fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(e.Elapsed(now)))
		} else {
			fmt.Println("No running timesheet.")
		}

		day, err := s.Day(s.Today())
		if err != nil {
			return err
		}
		var total time.Duration
		var unpushed int
		for i := range day.Entries {
			e := &day.Entries[i]
			if e.Dropped || !e.IsWorktime {
				continue
			}
			total += e.Elapsed(now)
			if !e.Running() && !e.Pushed() && e.DurationSeconds > 0 {
				unpushed++
			}
		}
		fmt.Printf("Today: %s logged, %d not pushed.\n", timecalc.FormatDuration(total), unpushed)
		return nil
	})
}
