package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	reportDate   string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show work time per task for a week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Any date of the week to report (YYYY-MM-DD), default this week")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

type reportLine struct {
	Task    string `json:"task"`
	Minutes int64  `json:"duration_minutes"`
	seconds int64
}

func runReport(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		now := s.Now()
		ref := now
		if reportDate != "" {
			d, err := timecalc.ParseDate(reportDate, now.Location())
			if err != nil {
				return err
			}
			ref = d
		}
		from, to := timecalc.WeekRange(ref)
		label := timecalc.ISOWeekLabel(ref)

		entries, err := s.Entries(timecalc.DateKey(from), timecalc.DateKey(to))
		if err != nil {
			return err
		}
		lines, total := aggregate(entries, now)
		return printReport(label, lines, total)
	})
}

// aggregate sums work time per task code, falling back to the task or
// project title.
func aggregate(entries []timesheet.Located, now time.Time) ([]reportLine, time.Duration) {
	totals := map[string]int64{}
	var grand time.Duration
	for _, loc := range entries {
		e := loc.Entry
		if !e.IsWorktime {
			continue
		}
		d := e.Elapsed(now)
		totals[reportKey(e)] += int64(d / time.Second)
		grand += d
	}
	lines := make([]reportLine, 0, len(totals))
	for task, sec := range totals {
		lines = append(lines, reportLine{Task: task, Minutes: sec / 60, seconds: sec})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Task < lines[j].Task })
	return lines, grand
}

func reportKey(e *model.Entry) string {
	switch {
	case e.TaskCode != "":
		return e.TaskCode
	case entryTitle(e) != "":
		return entryTitle(e)
	default:
		return "(no task)"
	}
}

func printReport(label string, lines []reportLine, total time.Duration) error {
	switch reportFormat {
	case "csv":
		fmt.Println("task,duration_minutes")
		for _, l := range lines {
			fmt.Printf("%s,%d\n", csvEscape(l.Task), l.Minutes)
		}
	case "json":
		data, err := json.MarshalIndent(struct {
			Week         string       `json:"week"`
			Tasks        []reportLine `json:"tasks"`
			TotalMinutes int64        `json:"total_minutes"`
		}{label, lines, int64(total / time.Minute)}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Println(string(data))
	case "md":
		fmt.Printf("Week %s\n", label)
		fmt.Println("--------------------------------")
		for _, l := range lines {
			fmt.Printf("%-20s%s\n", l.Task, timecalc.FormatDuration(time.Duration(l.seconds)*time.Second))
		}
		fmt.Println("--------------------------------")
		fmt.Printf("%-20s%s\n", "Total", timecalc.FormatDuration(total))
	default:
		return fmt.Errorf("unknown format %q, use md, csv or json", reportFormat)
	}
	return nil
}
