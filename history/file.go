package history

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	appName  = "pdftl"
	fileName = "history.json"

	// EnvStateDir overrides the directory FileStore writes to.
	EnvStateDir = "PDFTL_STATE_DIR"
)

// FileConfig configures a FileStore.
type FileConfig struct {
	Path     string // history file; defaults to StateDir()/history.json
	MaxItems int    // defaults to DefaultMaxItems
	Logger   *slog.Logger
	Now      func() time.Time
}

// FileStore keeps history as a JSON file on local disk.
type FileStore struct {
	*listStore
	path string
}

// StateDir returns the directory for pdftl's local state: $PDFTL_STATE_DIR,
// then $XDG_STATE_HOME/pdftl, then ~/.local/state/pdftl.
func StateDir() (string, error) {
	if dir := os.Getenv(EnvStateDir); dir != "" {
		return dir, nil
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// NewFileStore opens the history file, creating its directory if needed.
// The file itself is created on the first write.
func NewFileStore(cfg FileConfig) (*FileStore, error) {
	path := cfg.Path
	if path == "" {
		dir, err := StateDir()
		if err != nil {
			return nil, wrapErr("open", err)
		}
		path = filepath.Join(dir, fileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, wrapErr("open", err)
	}

	return &FileStore{
		listStore: newListStore(fileBlob{path: path}, cfg.MaxItems, cfg.Now, cfg.Logger),
		path:      path,
	}, nil
}

// Path returns the history file location.
func (s *FileStore) Path() string {
	return s.path
}

type fileBlob struct {
	path string
}

func (b fileBlob) load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// save replaces the file atomically so a crash never leaves half an array.
func (b fileBlob) save(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".history-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

func (b fileBlob) clear(context.Context) error {
	err := os.Remove(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
