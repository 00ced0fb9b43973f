package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/model"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var (
	aliasDetails     bool
	aliasDescription string
	aliasTaskID      int64
	aliasProjectID   int64
	aliasUpdateAll   bool
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage timesheet aliases (lists them without a sub command)",
	Long: `Aliases are named templates for timesheets. Create one for a task you
start often:

  ots alias add emails T8217 -m "Emails"

and 'ots start emails' creates a timesheet with task code T8217 and the
description "Emails".`,
	Args: cobra.NoArgs,
	RunE: runAliasList,
}

var aliasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all aliases",
	Args:  cobra.NoArgs,
	RunE:  runAliasList,
}

var aliasAddCmd = &cobra.Command{
	Use:   "add NAME [TASK_CODE]",
	Short: "Create or replace an alias",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAliasAdd,
}

var aliasDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete an alias",
	Args:  cobra.ExactArgs(1),
	RunE:  runAliasDelete,
}

var aliasUpdateCmd = &cobra.Command{
	Use:   "update [NAME]",
	Short: "Refresh task and project titles of aliases from Odoo",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAliasUpdate,
}

func init() {
	aliasCmd.PersistentFlags().BoolVar(&aliasDetails, "details", false, "Also show task and project ids")
	aliasAddCmd.Flags().StringVarP(&aliasDescription, "message", "m", "", "Timesheet description")
	aliasAddCmd.Flags().Int64VarP(&aliasTaskID, "task-id", "t", 0, "Odoo task id")
	aliasAddCmd.Flags().Int64VarP(&aliasProjectID, "project-id", "p", 0, "Odoo project id")
	aliasUpdateCmd.Flags().BoolVarP(&aliasUpdateAll, "all", "a", false, "Update all aliases")

	aliasCmd.AddCommand(aliasListCmd, aliasAddCmd, aliasDeleteCmd, aliasUpdateCmd)
}

func runAliasList(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		fmt.Println(renderAliases(s.Aliases(), aliasDetails))
		return nil
	})
}

func renderAliases(aliases []model.Alias, details bool) string {
	if len(aliases) == 0 {
		return "No aliases. Create one with 'ots alias add NAME TASK_CODE'."
	}
	headers := []string{"Name", "Code", "Task", "Project", "Description"}
	if details {
		headers = append(headers, "Task ID", "Project ID")
	}
	rows := make([][]string, 0, len(aliases))
	for _, a := range aliases {
		row := []string{a.Name, a.TaskCode, a.TaskTitle, a.ProjectTitle, a.Description}
		if details {
			row = append(row, optionalID(a.TaskID), optionalID(a.ProjectID))
		}
		rows = append(rows, row)
	}
	return simpleTable(headers, rows)
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func runAliasAdd(cmd *cobra.Command, args []string) error {
	a := model.Alias{
		Name:        args[0],
		Description: aliasDescription,
		TaskID:      int64Flag(cmd, "task-id", aliasTaskID),
		ProjectID:   int64Flag(cmd, "project-id", aliasProjectID),
	}
	if len(args) == 2 {
		a.TaskCode = args[1]
	}
	ctx := cmd.Context()
	return withStore(ctx, optionalRemote(), func(s *timesheet.Store) error {
		lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()
		created, err := s.AddAlias(lctx, a)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Alias %q created.\n", a.Name)
		} else {
			fmt.Printf("Alias %q replaced.\n", a.Name)
		}
		return nil
	})
}

func runAliasDelete(cmd *cobra.Command, args []string) error {
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		if !s.DeleteAlias(args[0]) {
			fmt.Printf("No alias %q.\n", args[0])
			return nil
		}
		fmt.Printf("Alias %q deleted.\n", args[0])
		return nil
	})
}

func runAliasUpdate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !aliasUpdateAll {
		return cmd.Help()
	}
	if len(args) == 1 && aliasUpdateAll {
		return errors.New("give an alias name or --all, not both")
	}
	var name string
	if len(args) == 1 {
		name = args[0]
	}

	remote, err := remoteClient()
	if err != nil {
		return err
	}
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		results, err := s.RefreshAliases(cmd.Context(), remote, name)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("%-16s failed: %v\n", r.Alias.Name, r.Err)
				continue
			}
			fmt.Printf("%-16s %s\n", r.Alias.Name, aliasTitle(r.Alias))
		}
		if failed > 0 && failed == len(results) {
			fmt.Println("No alias could be updated.")
		}
		return nil
	})
}

func aliasTitle(a model.Alias) string {
	switch {
	case a.TaskTitle != "" && a.ProjectTitle != "":
		return a.ProjectTitle + " / " + a.TaskTitle
	case a.TaskTitle != "":
		return a.TaskTitle
	default:
		return a.ProjectTitle
	}
}
