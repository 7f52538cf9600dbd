package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/calculab/calcu/pkg/domain"
)

// SessionFile persists the session across launches as JSON on disk,
// owner-readable only.
type SessionFile struct {
	path string
}

// NewSessionFile creates a session file at the given path.
func NewSessionFile(path string) *SessionFile {
	return &SessionFile{path: path}
}

// DefaultSessionPath returns ~/.calcu/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".calcu", "session.json"), nil
}

// Load reads the saved session. A missing file is not an error: it returns
// (nil, nil).
func (f *SessionFile) Load() (*domain.Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("session file has no token")
	}
	return &sess, nil
}

// Save writes the session to disk, creating the parent directory.
func (f *SessionFile) Save(sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes the saved session. Removing a file that is already gone
// is not an error.
func (f *SessionFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
