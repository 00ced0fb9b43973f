package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timecalc"
	"github.com/Tiliavir/ots/internal/timesheet"
)

const (
	barWidth     = 40
	maxNameWidth = 30
)

var (
	onTrackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	overStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	restStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var planningCmd = &cobra.Command{
	Use:   "planning",
	Short: "Show the planning slots in effect now",
	Long: `Prints one bar per planning slot that is in effect today. The bar spans
the slot's period relative to the dates at the top; its filled part is the
effective hours against the allocated hours and turns red once they are
exceeded. The arrow at the top points at today.

The closing estimate of unplanned hours is your local work time during the
shown period minus the effective hours of the slots. It is only accurate
when the slots start and end together.`,
	Args: cobra.NoArgs,
	RunE: runPlanning,
}

func runPlanning(cmd *cobra.Command, args []string) error {
	client, err := remoteClient()
	if err != nil {
		return err
	}
	now := time.Now()
	slots, err := client.ActivePlanningSlots(cmd.Context(), now)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("No planning slots in effect today.")
		return nil
	}

	from, to := planningSpan(slots)
	var local time.Duration
	err = withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		entries, err := s.Entries(timecalc.DateKey(from.In(now.Location())), timecalc.DateKey(to.In(now.Location())))
		if err != nil {
			return err
		}
		for _, loc := range entries {
			if loc.Entry.IsWorktime {
				local += loc.Entry.Elapsed(now)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Println(renderPlanning(slots, now, local))
	return nil
}

func planningSpan(slots []model.PlanningSlot) (time.Time, time.Time) {
	from, to := slots[0].Start, slots[0].End
	for _, s := range slots[1:] {
		if s.Start.Before(from) {
			from = s.Start
		}
		if s.End.After(to) {
			to = s.End
		}
	}
	return from, to
}

// renderPlanning draws the slot bars, with local being the work time
// recorded locally during the planning span.
func renderPlanning(slots []model.PlanningSlot, now time.Time, local time.Duration) string {
	from, to := planningSpan(slots)
	span := to.Sub(from)
	if span <= 0 {
		span = time.Hour
	}
	col := func(t time.Time) int {
		c := int(float64(t.Sub(from)) / float64(span) * barWidth)
		return min(max(c, 0), barWidth)
	}

	nameWidth := 0
	for _, s := range slots {
		nameWidth = max(nameWidth, len([]rune(s.Name)))
	}
	nameWidth = min(nameWidth, maxNameWidth)
	indent := strings.Repeat(" ", nameWidth+1)

	var b strings.Builder
	first := from.In(now.Location()).Format(timecalc.DateLayout)
	last := to.In(now.Location()).Format(timecalc.DateLayout)
	gap := max(barWidth-len(first)-len(last), 1)
	fmt.Fprintf(&b, "%s%s%s%s\n", indent, first, strings.Repeat(" ", gap), last)
	fmt.Fprintf(&b, "%s%s▼\n", indent, strings.Repeat(" ", min(col(now), barWidth-1)))

	var effective float64
	for _, s := range slots {
		start, end := col(s.Start), col(s.End)
		length := max(end-start, 1)
		start = min(start, barWidth-length)
		filled := int(min(s.Progress, 1) * float64(length))

		style := onTrackStyle
		if s.Progress > 1 {
			style = overStyle
		}
		bar := strings.Repeat(" ", start) +
			style.Render(strings.Repeat("█", filled)) +
			restStyle.Render(strings.Repeat("░", length-filled)) +
			strings.Repeat(" ", barWidth-start-length)

		fmt.Fprintf(&b, "%-*s %s %5.1f/%.1fh %3.0f%%\n",
			nameWidth, truncate(s.Name, nameWidth), bar, s.EffectiveHours, s.AllocatedHours, s.Progress*100)
		effective += s.EffectiveHours
	}

	unplanned := local.Hours() - effective
	fmt.Fprintf(&b, "\nUnplanned hours (approx.): %.1fh", max(unplanned, 0))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
