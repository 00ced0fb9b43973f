package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4A90E2")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	runningStyle = cellStyle.Foreground(lipgloss.Color("#04B575"))
	mutedStyle   = cellStyle.Foreground(lipgloss.Color("243"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var listDate string

var listCmd = &cobra.Command{
	Use:   "list [DAYS]",
	Short: "List timesheets",
	Long: `Lists the timesheets of the last DAYS days (default 1) up to --date,
which defaults to today. The first column is the index other commands
take.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "Last date to list, if not today (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	days := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("DAYS must be a positive number, got %q", args[0])
		}
		days = n
	}

	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		now := s.Now()
		last := now
		if listDate != "" {
			d, err := timecalc.ParseDate(listDate, now.Location())
			if err != nil {
				return err
			}
			last = d
		}
		for i := days - 1; i >= 0; i-- {
			date := timecalc.DateKey(last.AddDate(0, 0, -i))
			day, err := s.Day(date)
			if err != nil {
				return err
			}
			fmt.Println(renderDay(day, now))
		}
		return nil
	})
}

// renderDay draws one day as a table. Dropped entries are left out but keep
// their index.
func renderDay(day model.DayLog, now time.Time) string {
	var b strings.Builder
	heading := day.Date
	if t, err := time.ParseInLocation(timecalc.DateLayout, day.Date, now.Location()); err == nil {
		heading = t.Format("Monday 2006-01-02")
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	if day.Live() == 0 {
		b.WriteString(mutedStyle.Render("No timesheets."))
		return b.String()
	}

	var rows [][]string
	var running []bool
	var total time.Duration
	for i := range day.Entries {
		e := &day.Entries[i]
		if e.Dropped {
			continue
		}
		p := model.Pointer{Date: day.Date, Position: i}
		rows = append(rows, []string{
			address.Format(p, now),
			e.TaskCode,
			entryTitle(e),
			e.Description,
			timecalc.FormatHHMM(e.Elapsed(now)),
			entryState(e),
		})
		running = append(running, e.Running())
		if e.IsWorktime {
			total += e.Elapsed(now)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Code", "Task", "Description", "Time", "State").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(running) && running[row]:
				return runningStyle
			default:
				return cellStyle
			}
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Work time: %s", timecalc.FormatHHMM(total))
	return b.String()
}

// entryLabel is the one-line name of an entry used in messages.
func entryLabel(e *model.Entry) string {
	var parts []string
	if e.TaskCode != "" {
		parts = append(parts, e.TaskCode)
	}
	switch {
	case e.Description != "":
		parts = append(parts, fmt.Sprintf("%q", e.Description))
	case entryTitle(e) != "":
		parts = append(parts, fmt.Sprintf("%q", entryTitle(e)))
	}
	if len(parts) == 0 {
		return "(unnamed timesheet)"
	}
	return strings.Join(parts, " ")
}

func entryTitle(e *model.Entry) string {
	if e.TaskTitle != "" {
		return e.TaskTitle
	}
	return e.ProjectTitle
}

func entryState(e *model.Entry) string {
	switch {
	case e.Running():
		return "running"
	case !e.IsWorktime:
		return "break"
	case e.Modified:
		return "modified"
	case e.RemoteRef != "":
		return "pushed"
	default:
		return ""
	}
}
