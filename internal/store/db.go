package store

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ProfileStore owns the embedded SQLite database of one profile.
type ProfileStore struct {
	db       *sql.DB
	path     string
	tempPath string // set in read-only mode; removed on Close
	readOnly bool
	logger   *zap.Logger
}

// Open opens (or creates) the store file at path with WAL mode and
// recommended pragmas. isSetup wipes any existing file first. When
// allowReadOnly is set the on-disk file is copied to a temporary path and
// the copy is opened instead, so the original is never mutated.
// The returned bool reports whether the store was freshly created.
func Open(path string, isSetup, allowReadOnly bool, logger *zap.Logger) (*ProfileStore, bool, error) {
	if isSetup {
		if err := removeStoreFiles(path); err != nil {
			return nil, false, fmt.Errorf("reset store: %w", err)
		}
	}

	created := !fileExists(path)

	openPath := path
	tempPath := ""
	if allowReadOnly && !created {
		tp := filepath.Join(os.TempDir(), "chatvault-"+uuid.NewString()+".db")
		if err := copyFile(path, tp); err != nil {
			return nil, false, fmt.Errorf("copy store for read-only open: %w", err)
		}
		openPath = tp
		tempPath = tp
	}

	db, err := sql.Open("sqlite3", openPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, false, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, false, fmt.Errorf("ping db: %w", err)
	}

	return &ProfileStore{
		db:       db,
		path:     path,
		tempPath: tempPath,
		readOnly: tempPath != "",
		logger:   logger,
	}, created, nil
}

// Path returns the on-disk path the store was opened for (the original,
// not the read-only copy).
func (s *ProfileStore) Path() string {
	return s.path
}

// ReadOnly reports whether the store was opened on a throwaway copy.
func (s *ProfileStore) ReadOnly() bool {
	return s.readOnly
}

// Close closes the database handle and removes the temporary copy if one
// was made for read-only mode.
func (s *ProfileStore) Close() error {
	err := s.db.Close()
	if s.tempPath != "" {
		_ = removeStoreFiles(s.tempPath)
	}
	return err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// removeStoreFiles removes a store file along with its WAL sidecars.
func removeStoreFiles(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
