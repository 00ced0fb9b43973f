package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/timesheet"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timesheet",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		loc, err := s.StopRunning()
		if err != nil {
			return err
		}
		if loc == nil {
			fmt.Println("No running timesheet.")
			return nil
		}
		fmt.Printf("Stopped %s. Total: %s\n",
			entryLabel(loc.Entry), formatElapsed(loc.Entry.DurationSeconds))
		return nil
	})
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
