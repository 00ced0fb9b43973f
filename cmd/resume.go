package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [INDEX]",
	Short: "Resume a timesheet",
	Long: `Resumes the timesheet at INDEX, stopping the running one.

Without INDEX the previously running timesheet is resumed, so calling
resume repeatedly alternates between the last two timesheets. A timesheet
from an earlier day is copied to today and the copy is started.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	}
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		prev, err := s.Running()
		if err != nil {
			return err
		}
		var stopped string
		if prev != nil {
			stopped = entryLabel(prev.Entry)
		}

		res, err := s.Resume(token)
		if err != nil {
			return err
		}
		now := s.Now()
		if res.AlreadyRunning {
			fmt.Printf("%s is already running.\n", entryLabel(res.Entry))
			return nil
		}
		if stopped != "" {
			fmt.Printf("Stopped %s\n", stopped)
		}
		if res.Source != nil {
			fmt.Printf("Copied %s to %s and started it: %s\n",
				address.Format(*res.Source, now), address.Format(res.Pointer, now), entryLabel(res.Entry))
			return nil
		}
		fmt.Printf("Resumed %s: %s (%s so far)\n",
			address.Format(res.Pointer, now), entryLabel(res.Entry), formatElapsed(res.Entry.DurationSeconds))
		return nil
	})
}
