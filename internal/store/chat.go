package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// ReplaceChats writes a batch of chat rows in one transaction. Existing
// rows are replaced wholesale.
func (s *ProfileStore) ReplaceChats(chats []ChatInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range chats {
		c := &chats[i]
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO chats
				(id, is_unread, is_unread_mention, is_muted, is_pinned, last_message_time)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.IsUnread, c.IsUnreadMention, c.IsMuted, c.IsPinned, c.LastMessageTime); err != nil {
			return fmt.Errorf("replace chat %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// SelectChats returns chat rows, pinned first then most recent activity
// first. A non-empty id list filters the result.
func (s *ProfileStore) SelectChats(ids []string) ([]ChatInfo, error) {
	query := `SELECT id, is_unread, is_unread_mention, is_muted, is_pinned, last_message_time FROM chats`
	var args []any
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
		query += ` WHERE id IN (` + placeholders + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY is_pinned DESC, last_message_time DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select chats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatInfo
	for rows.Next() {
		var c ChatInfo
		if err := rows.Scan(&c.ID, &c.IsUnread, &c.IsUnreadMention, &c.IsMuted,
			&c.IsPinned, &c.LastMessageTime); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// ChatCount returns the number of cached chat rows.
func (s *ProfileStore) ChatCount() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return count, nil
}

// ChatIDs returns every chat id present in storage, whether it has a
// metadata row, messages, or both.
func (s *ProfileStore) ChatIDs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT chat_id FROM messages UNION SELECT id FROM chats ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("select chat ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateChatMuted sets the muted flag of one chat.
func (s *ProfileStore) UpdateChatMuted(chatID string, isMuted bool) error {
	_, err := s.db.Exec(`UPDATE chats SET is_muted = ? WHERE id = ?`, isMuted, chatID)
	if err != nil {
		return fmt.Errorf("update is_muted: %w", err)
	}
	return nil
}

// UpdateChatPinned sets the pinned flag of one chat.
func (s *ProfileStore) UpdateChatPinned(chatID string, isPinned bool) error {
	_, err := s.db.Exec(`UPDATE chats SET is_pinned = ? WHERE id = ?`, isPinned, chatID)
	if err != nil {
		return fmt.Errorf("update is_pinned: %w", err)
	}
	return nil
}

// DeleteChat removes a chat's metadata row and every one of its messages
// in one transaction.
func (s *ProfileStore) DeleteChat(chatID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM chats WHERE id = ?`, chatID); err != nil {
		return fmt.Errorf("delete chat row: %w", err)
	}
	return tx.Commit()
}

// GetChat returns one chat row, or nil if it is not cached.
func (s *ProfileStore) GetChat(chatID string) (*ChatInfo, error) {
	var c ChatInfo
	err := s.db.QueryRow(
		`SELECT id, is_unread, is_unread_mention, is_muted, is_pinned, last_message_time
		 FROM chats WHERE id = ?`, chatID).
		Scan(&c.ID, &c.IsUnread, &c.IsUnreadMention, &c.IsMuted, &c.IsPinned, &c.LastMessageTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chat %q: %w", chatID, err)
	}
	return &c, nil
}
