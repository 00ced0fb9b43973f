package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/timesheet"
)

var lunchCmd = &cobra.Command{
	Use:   "lunch",
	Short: "Start a lunch break",
	Long: `Starts a "Lunch" timesheet. It is not work time and is never pushed to
Odoo; it only helps reconstructing the day afterwards.`,
	Args: cobra.NoArgs,
	RunE: runLunch,
}

func runLunch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, nil, func(s *timesheet.Store) error {
		return startEntry(s, func() (timesheet.Located, error) {
			return s.Lunch(ctx)
		})
	})
}
