package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	exportFormat string
	exportFrom   string
	exportTo     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export timesheets to stdout",
	Long: `Exports the timesheets between --from and --to, both inclusive. Without
them the current week is exported.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md, yaml")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last date (YYYY-MM-DD)")
}

type exportRow struct {
	Date            string `json:"date" yaml:"date"`
	Index           string `json:"index" yaml:"index"`
	TaskCode        string `json:"task_code,omitempty" yaml:"task_code,omitempty"`
	Task            string `json:"task,omitempty" yaml:"task,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	DurationMinutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
	Worktime        bool   `json:"worktime" yaml:"worktime"`
	Running         bool   `json:"running,omitempty" yaml:"running,omitempty"`
	RemoteRef       string `json:"remote_ref,omitempty" yaml:"remote_ref,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		now := s.Now()
		monday, sunday := timecalc.WeekRange(now)
		from, to := timecalc.DateKey(monday), timecalc.DateKey(sunday)
		for _, f := range []struct {
			value string
			dst   *string
		}{{exportFrom, &from}, {exportTo, &to}} {
			if f.value == "" {
				continue
			}
			d, err := timecalc.ParseDate(f.value, now.Location())
			if err != nil {
				return err
			}
			*f.dst = timecalc.DateKey(d)
		}

		entries, err := s.Entries(from, to)
		if err != nil {
			return err
		}
		return writeExport(os.Stdout, exportFormat, exportRows(entries, now))
	})
}

func exportRows(entries []timesheet.Located, now time.Time) []exportRow {
	rows := make([]exportRow, 0, len(entries))
	for _, loc := range entries {
		e := loc.Entry
		rows = append(rows, exportRow{
			Date:            loc.Date,
			Index:           address.Format(loc.Pointer, now),
			TaskCode:        e.TaskCode,
			Task:            entryTitle(e),
			Description:     e.Description,
			DurationMinutes: int64(e.Elapsed(now) / time.Minute),
			Worktime:        e.IsWorktime,
			Running:         e.Running(),
			RemoteRef:       e.RemoteRef,
		})
	}
	return rows
}

func writeExport(w io.Writer, format string, rows []exportRow) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		fmt.Fprintln(w, "| Date | # | Code | Task | Description | Minutes |")
		fmt.Fprintln(w, "|---|---|---|---|---|---:|")
		for _, r := range rows {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %d |\n",
				r.Date, r.Index, mdEscape(r.TaskCode), mdEscape(r.Task), mdEscape(r.Description), r.DurationMinutes)
		}
		return nil
	case "csv":
		fmt.Fprintln(w, "date,index,task_code,task,description,duration_minutes,worktime,remote_ref")
		for _, r := range rows {
			fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d,%t,%s\n",
				r.Date,
				csvEscape(r.Index),
				csvEscape(r.TaskCode),
				csvEscape(r.Task),
				csvEscape(r.Description),
				r.DurationMinutes,
				r.Worktime,
				csvEscape(r.RemoteRef),
			)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q, use csv, json, md or yaml", format)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
