package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	pushDate  string
	pushForce bool
)

var pushCmd = &cobra.Command{
	Use:   "push [INDEX]",
	Short: "Push timesheets to Odoo",
	Long: `Pushes timesheets to Odoo. Without arguments all timesheets of today are
pushed, with INDEX only that one, with --date all timesheets of that day.

Timesheets already pushed and unchanged since are skipped, so pushing twice
never creates duplicates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushDate, "date", "", "Date to push, if not today (YYYY-MM-DD)")
	pushCmd.Flags().BoolVarP(&pushForce, "force", "f", false, "Do not ask for confirmation")
}

func runPush(cmd *cobra.Command, args []string) error {
	var sel timesheet.Selection
	if len(args) == 1 {
		sel.Index = args[0]
	}
	if pushDate != "" {
		if sel.Index != "" {
			return errors.New("give an index or a date, not both")
		}
		d, err := timecalc.ParseDate(pushDate, time.Local)
		if err != nil {
			return err
		}
		sel.Date = timecalc.DateKey(d)
	}

	if !pushForce {
		what := sel.Index
		if what == "" {
			what = sel.Date
		}
		if what == "" {
			what = timecalc.DateKey(time.Now())
		}
		ok, err := confirm(stdin, os.Stdout, "Push "+what+"?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Push aborted.")
			return nil
		}
	}

	remote, err := remoteClient()
	if err != nil {
		return err
	}
	var pushed, failed int
	err = withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		results, err := s.Push(cmd.Context(), remote, sel)
		if err != nil {
			return err
		}
		pushed, failed = printPushResults(results, s.Now())
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 && pushed == 0 {
		return fmt.Errorf("all %d timesheets failed to push", failed)
	}
	return nil
}

// printPushResults reports each result and returns the pushed and failed
// counts.
func printPushResults(results []timesheet.PushResult, now time.Time) (pushed, failed int) {
	if len(results) == 0 {
		fmt.Println("Nothing to push.")
		return 0, 0
	}
	for _, r := range results {
		idx := address.Format(r.Pointer, now)
		switch r.Status {
		case timesheet.PushCreated, timesheet.PushUpdated:
			pushed++
			fmt.Printf("%-6s %-8s %s -> #%s\n", idx, r.Status, entryLabel(r.Entry), r.Ref)
		case timesheet.PushSkipped:
			fmt.Printf("%-6s %-8s %s (%s)\n", idx, r.Status, entryLabel(r.Entry), r.Reason)
		default:
			failed++
			fmt.Printf("%-6s %-8s %s: %v\n", idx, r.Status, entryLabel(r.Entry), r.Err)
		}
	}
	fmt.Printf("%d pushed, %d failed.\n", pushed, failed)
	return pushed, failed
}
