package download

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirSaver writes payloads into a directory. Writes stage through a temp
// file that is removed on every exit path, so a failed save never leaves
// a partial datasheet behind.
type DirSaver struct {
	Dir string
}

// DefaultDownloadDir returns ~/Downloads when it exists, else the
// current directory.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, "Downloads")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return "."
}

// Save writes data as filename inside the directory. Any path components
// in filename are discarded: a server-supplied name cannot escape Dir.
func (s DirSaver) Save(filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".calcu-*")
	if err != nil {
		return "", fmt.Errorf("stage temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	dest := filepath.Join(s.Dir, filepath.Base(filename))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("move into place: %w", err)
	}
	return dest, nil
}
