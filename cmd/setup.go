package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/config"
)

var (
	setupAdvanced bool
	setupReset    bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Set up the basic configuration",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupAdvanced, "advanced", "a", false, "Also ask for the filestore and history depth")
	setupCmd.Flags().BoolVar(&setupReset, "reset", false, "Rewrite config.toml with the annotated defaults")
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupReset {
		path, err := config.WriteTemplate(cfg.Dir())
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	answer, err := prompt(stdin, os.Stdout,
		"Automatically migrate the filestore when ots is upgraded? (yes/no)", yesNo(cfg.AutoMigrate))
	if err != nil {
		return err
	}
	cfg.AutoMigrate = strings.HasPrefix(strings.ToLower(answer), "y")

	if setupAdvanced {
		fs, err := prompt(stdin, os.Stdout,
			"Filestore (a .db file for SQLite, any other name for a directory of JSON files)", cfg.Filestore)
		if err != nil {
			return err
		}
		cfg.Filestore = fs

		depth, err := prompt(stdin, os.Stdout, "Number of timesheets 'ots resume' remembers", strconv.Itoa(cfg.HistoryDepth))
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(depth)
		if err != nil {
			return fmt.Errorf("history depth must be a number, got %q", depth)
		}
		cfg.HistoryDepth = n
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Println("Configuration saved.")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
