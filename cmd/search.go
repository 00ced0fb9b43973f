package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/apperr"
	"github.com/Tiliavir/ots/internal/model"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search tasks and projects in Odoo",
	Long: `Searches Odoo for TERM. If TERM is exactly a task code, only that task is
shown. Otherwise tasks and projects whose code or name contain TERM are
listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum results per kind")
}

func runSearch(cmd *cobra.Command, args []string) error {
	client, err := remoteClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	term := args[0]

	task, err := client.FindTaskByCode(ctx, term)
	switch {
	case err == nil:
		fmt.Println(renderTasks([]model.Task{task}))
		return nil
	case !errors.Is(err, apperr.ErrNotFound):
		return err
	}

	tasks, err := client.SearchTasks(ctx, term, searchLimit)
	if err != nil {
		return err
	}
	projects, err := client.SearchProjects(ctx, term, searchLimit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 && len(projects) == 0 {
		fmt.Printf("Nothing found for %q.\n", term)
		return nil
	}
	if len(tasks) > 0 {
		fmt.Println(titleStyle.Render("Tasks"))
		fmt.Println(renderTasks(tasks))
	}
	if len(projects) > 0 {
		fmt.Println(titleStyle.Render("Projects"))
		fmt.Println(renderProjects(projects))
	}
	return nil
}

func renderTasks(tasks []model.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.Code, t.Name, t.ProjectName, t.Stage,
			fmt.Sprintf("%.1f / %.1f", t.EffectiveHours, t.PlannedHours),
			strconv.FormatInt(t.ID, 10),
		})
	}
	return simpleTable([]string{"Code", "Task", "Project", "Stage", "Hours", "ID"}, rows)
}

func renderProjects(projects []model.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.Name, strconv.FormatInt(p.ID, 10)})
	}
	return simpleTable([]string{"Project", "ID"}, rows)
}

func simpleTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}
