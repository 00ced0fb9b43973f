package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/address"
	"github.com/Tiliavir/ots/internal/timesheet"
)

var updateCmd = &cobra.Command{
	Use:   "update INDEX",
	Short: "Refresh task and project of a timesheet from Odoo",
	Long: `Re-reads the task and project names of the timesheet at INDEX from Odoo,
based on its task code or ids. No timesheet values are pushed or pulled.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	remote, err := remoteClient()
	if err != nil {
		return err
	}
	return withStore(cmd.Context(), nil, func(s *timesheet.Store) error {
		loc, err := s.UpdateEntry(cmd.Context(), remote, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s: %s\n", address.Format(loc.Pointer, s.Now()), entryTitle(loc.Entry))
		return nil
	})
}
