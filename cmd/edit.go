package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	editDescription string
	editDuration    string
	editCode        string
	editTaskID      int64
	editProjectID   int64
	editWorktime    bool
)

var editCmd = &cobra.Command{
	Use:   "edit INDEX",
	Short: "Edit an existing timesheet",
	Long: `Edits the timesheet at INDEX as shown by 'ots list'. INDEX is either N,
the Nth timesheet of today, or D.N, the Nth timesheet D days ago; "1.0" is
the first timesheet of yesterday.

Only the given fields change. A duration prefixed with + or - adjusts the
current duration instead of replacing it.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editDescription, "message", "m", "", "New description")
	editCmd.Flags().StringVarP(&editDuration, "duration", "d", "", "Duration HH:mm, or +HH:mm / -HH:mm to adjust")
	editCmd.Flags().StringVarP(&editCode, "code", "c", "", "Task code")
	editCmd.Flags().Int64VarP(&editTaskID, "task-id", "t", 0, "Odoo task id")
	editCmd.Flags().Int64VarP(&editProjectID, "project-id", "p", 0, "Odoo project id")
	editCmd.Flags().BoolVar(&editWorktime, "worktime", true, "Whether the timesheet counts as work time")
}

func runEdit(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	var patch timesheet.EntryPatch
	if flags.Changed("message") {
		patch.Description = &editDescription
	}
	if flags.Changed("duration") {
		d, err := timecalc.ParseDelta(editDuration)
		if err != nil {
			return err
		}
		patch.Duration = &d
	}
	if flags.Changed("code") {
		patch.TaskCode = &editCode
	}
	patch.TaskID = int64Flag(cmd, "task-id", editTaskID)
	patch.ProjectID = int64Flag(cmd, "project-id", editProjectID)
	if flags.Changed("worktime") {
		patch.IsWorktime = &editWorktime
	}
	if patch.Empty() {
		fmt.Println("Nothing to update.")
		return nil
	}

	ctx := cmd.Context()
	return withStore(ctx, optionalRemote(), func(s *timesheet.Store) error {
		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		_, changed, err := s.Edit(lctx, args[0], patch)
		if err != nil {
			return err
		}
		if changed {
			fmt.Println("Timesheet updated.")
		} else {
			fmt.Println("Nothing to update.")
		}
		return nil
	})
}
