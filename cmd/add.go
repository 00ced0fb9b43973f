package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	addDuration    string
	addDescription string
	addTaskID      int64
	addProjectID   int64
	addDate        string
)

var addCmd = &cobra.Command{
	Use:   "add [TASK_CODE]",
	Short: "Add a timesheet without starting it",
	Long: `Adds a finished timesheet. TASK_CODE is the task code in Odoo (field
"code" of project.task) or the name of an alias; it is case sensitive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addDuration, "duration", "d", "", "Duration in format HH:mm")
	addCmd.Flags().StringVarP(&addDescription, "message", "m", "", "Timesheet description")
	addCmd.Flags().Int64VarP(&addTaskID, "task-id", "t", 0, "Odoo task id")
	addCmd.Flags().Int64VarP(&addProjectID, "project-id", "p", 0, "Odoo project id")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date to add the timesheet to, if other than today (YYYY-MM-DD)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	spec := timesheet.EntrySpec{
		Description: addDescription,
		TaskID:      int64Flag(cmd, "task-id", addTaskID),
		ProjectID:   int64Flag(cmd, "project-id", addProjectID),
	}
	if len(args) == 1 {
		spec.TaskCode = args[0]
	}
	if addDuration != "" {
		d, err := timecalc.ParseDuration(addDuration)
		if err != nil {
			return err
		}
		spec.Duration = d
	}
	if addDate != "" {
		day, err := timecalc.ParseDate(addDate, time.Local)
		if err != nil {
			return err
		}
		spec.Date = timecalc.DateKey(day)
	}

	ctx := cmd.Context()
	return withStore(ctx, optionalRemote(), func(s *timesheet.Store) error {
		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		loc, err := s.AddTimesheet(lctx, spec)
		if err != nil {
			return err
		}
		fmt.Printf("Added timesheet %s: %s (%s)\n",
			address.Format(loc.Pointer, s.Now()), entryLabel(loc.Entry), timecalc.FormatHHMM(loc.Entry.Duration()))
		return nil
	})
}
