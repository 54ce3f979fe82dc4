package store

import (
	"fmt"

	"go.uber.org/zap"
)

// SchemaVersion is the newest schema this build knows how to write.
const SchemaVersion = 5

// Migrate brings the store schema up to SchemaVersion and returns the
// version the store ends up at.
//
// The current version is detected from PRAGMA user_version; stores stamped
// 0 are probed for the historical base tables (layouts that predate the
// stamp). A detected version newer than SchemaVersion is not fatal: it is
// logged as a warning and the store proceeds on its existing schema,
// leaving data owned by unknown columns alone.
func (s *ProfileStore) Migrate() (int, error) {
	version, err := s.detectVersion()
	if err != nil {
		return 0, fmt.Errorf("detect schema version: %w", err)
	}

	if version > SchemaVersion {
		s.logger.Warn("store schema is newer than this build",
			zap.Int("detected", version),
			zap.Int("supported", SchemaVersion),
			zap.String("path", s.path))
		return version, nil
	}

	if version < 3 {
		if err := s.createBaseTables(); err != nil {
			return 0, fmt.Errorf("create base tables: %w", err)
		}
		version = 3
		if err := s.stampVersion(version); err != nil {
			return 0, err
		}
	}

	if version == 3 {
		if _, err := s.db.Exec(
			`ALTER TABLE messages ADD COLUMN reactions TEXT NOT NULL DEFAULT ''`); err != nil {
			return 0, fmt.Errorf("add reactions column: %w", err)
		}
		version = 4
		if err := s.stampVersion(version); err != nil {
			return 0, err
		}
	}

	if version == 4 {
		if _, err := s.db.Exec(
			`ALTER TABLE chats ADD COLUMN is_pinned INTEGER NOT NULL DEFAULT 0`); err != nil {
			return 0, fmt.Errorf("add is_pinned column: %w", err)
		}
		if _, err := s.db.Exec(
			`ALTER TABLE chats ADD COLUMN last_message_time INTEGER NOT NULL DEFAULT 0`); err != nil {
			return 0, fmt.Errorf("add last_message_time column: %w", err)
		}
		version = 5
		if err := s.stampVersion(version); err != nil {
			return 0, err
		}
	}

	return version, nil
}

func (s *ProfileStore) detectVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return 0, err
	}
	if version > 0 {
		return version, nil
	}

	// No stamp. A store with the base tables present predates the stamp
	// and is at the base layout; anything else is fresh.
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('messages', 'contacts', 'chats')`).
		Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 3 {
		return 3, nil
	}
	return 0, nil
}

func (s *ProfileStore) stampVersion(version int) error {
	if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, version)); err != nil {
		return fmt.Errorf("stamp schema version %d: %w", version, err)
	}
	return nil
}

func (s *ProfileStore) createBaseTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			chat_id TEXT NOT NULL,
			id TEXT NOT NULL,
			sender_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			quoted_id TEXT NOT NULL DEFAULT '',
			quoted_text TEXT NOT NULL DEFAULT '',
			quoted_sender TEXT NOT NULL DEFAULT '',
			file_info TEXT NOT NULL DEFAULT '',
			time_sent INTEGER NOT NULL DEFAULT 0,
			is_outgoing INTEGER NOT NULL DEFAULT 0,
			is_read INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (chat_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_time ON messages (chat_id, time_sent)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			is_self INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			is_unread INTEGER NOT NULL DEFAULT 0,
			is_unread_mention INTEGER NOT NULL DEFAULT 0,
			is_muted INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
