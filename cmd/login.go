package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/ots/internal/odoo"
)

var loginDatabase string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Odoo and save the session",
	Long: `Asks for the Odoo URL, login and an API key (Preferences > Account
Security > New API Key in Odoo), checks them and saves the session. The
saved session is used by every command that talks to Odoo. Remove it with
'ots logout'.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved Odoo session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginDatabase, "database", "", "Database to connect to, if the server hosts several")
}

func runLogin(cmd *cobra.Command, args []string) error {
	url, err := prompt(stdin, os.Stdout, "Odoo URL, e.g. https://mycompany.odoo.com", cfg.Backend.URL)
	if err != nil {
		return err
	}
	url = normalizeURL(url)
	if url == "" {
		return errors.New("an Odoo URL is required")
	}
	login, err := prompt(stdin, os.Stdout, "Login", cfg.Backend.Login)
	if err != nil {
		return err
	}
	key, err := promptSecret(os.Stdout, "API key")
	if err != nil {
		return err
	}
	database := loginDatabase
	if database == "" {
		database = cfg.Backend.Database
	}

	sess := odoo.Session{URL: url, Database: database, Login: login, Token: key}
	uid, err := odoo.Authenticate(cmd.Context(), sess,
		odoo.WithTimeout(cfg.Timeout()),
		odoo.WithKeyField(cfg.Backend.KeyField),
		odoo.WithLogger(logger))
	if err != nil {
		return err
	}
	sess.UID = uid
	if err := odoo.SaveSession(odoo.SessionPath(cfg.Dir()), &sess); err != nil {
		return err
	}

	cfg.Backend.URL = url
	cfg.Backend.Login = login
	cfg.Backend.Database = database
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save config: %v\n", err)
	}
	fmt.Printf("Successfully logged in as uid %d.\n", uid)
	return nil
}

func normalizeURL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s != "" && !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

func runLogout(cmd *cobra.Command, args []string) error {
	removed, err := odoo.RemoveSession(odoo.SessionPath(cfg.Dir()))
	if err != nil {
		return err
	}
	if removed {
		fmt.Println("Session removed.")
	} else {
		fmt.Println("No session to remove.")
	}
	return nil
}
