package odoo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tiliavir/ots/internal/apperr"
)

// Session is what login stores: where the backend lives and the API key
// used as bearer token.
type Session struct {
	URL      string `json:"url"`
	Database string `json:"database"`
	Login    string `json:"login"`
	UID      int64  `json:"uid"`
	Token    string `json:"token"`
}

// SessionPath returns the session file inside configDir.
func SessionPath(configDir string) string {
	return filepath.Join(configDir, "auth", "session.json")
}

// LoadSession reads the session at path. A missing file means the user never
// logged in and yields apperr.ErrAuth.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.Errorf(apperr.ErrAuth, "no session, run 'ots login' first")
	}
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Errorf(apperr.ErrAuth, "corrupt session file (delete %s and log in again): %v", path, err)
	}
	if s.URL == "" || s.Token == "" {
		return nil, apperr.Errorf(apperr.ErrAuth, "incomplete session in %s, run 'ots login' again", path)
	}
	return &s, nil
}

// SaveSession writes s to path with owner-only permissions.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving session file: %w", err)
	}
	return nil
}

// RemoveSession deletes the session file. It reports false when there was
// none.
func RemoveSession(path string) (bool, error) {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing session file: %w", err)
	}
	return true, nil
}
