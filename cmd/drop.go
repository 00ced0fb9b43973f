package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/timesheet"
)

var dropForce bool

var dropCmd = &cobra.Command{
	Use:   "drop INDEX",
	Short: "Drop a timesheet",
	Long: `Drops the timesheet at INDEX as shown by 'ots list'. The indexes of the
other timesheets of that day stay the same.`,
	Args: cobra.ExactArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "Do not ask for confirmation")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if !dropForce {
		ok, err := confirm(stdin, os.Stdout, "Confirm dropping timesheet "+args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Timesheet drop aborted.")
			return nil
		}
	}
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		loc, err := s.Drop(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Dropped %s.\n", entryLabel(loc.Entry))
		if loc.Entry.RemoteRef != "" {
			fmt.Fprintf(os.Stderr, "Warning: the timesheet was pushed before; record %s stays in Odoo.\n", loc.Entry.RemoteRef)
		}
		return nil
	})
}
