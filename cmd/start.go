package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	startDescription string
	startTaskID      int64
	startProjectID   int64
)

var startCmd = &cobra.Command{
	Use:   "start [TASK_CODE]",
	Short: "Start a new timesheet, stopping the running one",
	Long: `Starts a new recording and stops any running recording first.

TASK_CODE can be an Odoo task code (project.task.code) or the name of an
alias. See 'ots alias --help' for aliases.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startDescription, "message", "m", "", "Timesheet description")
	startCmd.Flags().Int64VarP(&startTaskID, "task-id", "t", 0, "Odoo task id")
	startCmd.Flags().Int64VarP(&startProjectID, "project-id", "p", 0, "Odoo project id")
}

func runStart(cmd *cobra.Command, args []string) error {
	spec := timesheet.EntrySpec{
		Description: startDescription,
		TaskID:      int64Flag(cmd, "task-id", startTaskID),
		ProjectID:   int64Flag(cmd, "project-id", startProjectID),
	}
	if len(args) == 1 {
		spec.TaskCode = args[0]
	}
	ctx := cmd.Context()
	return withStore(ctx, optionalRemote(), func(s *timesheet.Store) error {
		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		return startEntry(s, func() (timesheet.Located, error) {
			return s.AddAndStart(lctx, spec)
		})
	})
}

// startEntry runs start and reports the entry it stopped on the way.
func startEntry(s *timesheet.Store, start func() (timesheet.Located, error)) error {
	prev, err := s.Running()
	if err != nil {
		return err
	}
	var stopped string
	if prev != nil {
		stopped = entryLabel(prev.Entry)
	}
	loc, err := start()
	if err != nil {
		return err
	}
	if stopped != "" {
		fmt.Printf("Stopped %s\n", stopped)
	}
	fmt.Printf("Started %s: %s at %s\n",
		address.Format(loc.Pointer, s.Now()), entryLabel(loc.Entry), s.Now().Format("15:04"))
	return nil
}
