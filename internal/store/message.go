package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const messageColumns = `id, sender_id, text, quoted_id, quoted_text, quoted_sender,
	file_info, time_sent, is_outgoing, is_read, reactions`

// ReplaceMessages writes a batch of messages for one chat in a single
// transaction. An existing (chat, id) row is replaced wholesale: last
// write wins for every column.
func (s *ProfileStore) ReplaceMessages(chatID string, msgs []ChatMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range msgs {
		m := &msgs[i]
		reactions, err := encodeReactions(m.Reactions)
		if err != nil {
			return fmt.Errorf("encode reactions for %q: %w", m.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO messages
				(chat_id, id, sender_id, text, quoted_id, quoted_text, quoted_sender,
				 file_info, time_sent, is_outgoing, is_read, reactions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chatID, m.ID, m.SenderID, m.Text, m.QuotedID, m.QuotedText, m.QuotedSender,
			m.FileInfo, m.TimeSent, m.IsOutgoing, m.IsRead, reactions); err != nil {
			return fmt.Errorf("replace message %q: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// AnyMessageExists reports whether any of the given message ids is
// already cached for the chat.
func (s *ProfileStore) AnyMessageExists(chatID string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, chatID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE chat_id = ? AND id IN (`+placeholders+`)`,
		args...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("probe message ids: %w", err)
	}
	return count > 0, nil
}

// HasMessages reports whether the chat has at least one cached message.
func (s *ProfileStore) HasMessages(chatID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count messages: %w", err)
	}
	return count > 0, nil
}

// MessageExists reports whether one (chat, id) row is cached.
func (s *ProfileStore) MessageExists(chatID, msgID string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM messages WHERE chat_id = ? AND id = ?`, chatID, msgID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe message: %w", err)
	}
	return true, nil
}

// SelectMessagesBefore returns up to limit messages of the chat strictly
// older than fromMsgID, newest first. An empty fromMsgID means "from the
// newest".
func (s *ProfileStore) SelectMessagesBefore(chatID, fromMsgID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = ?`
	args := []any{chatID}
	if fromMsgID != "" {
		query += ` AND time_sent < (SELECT time_sent FROM messages WHERE chat_id = ? AND id = ?)`
		args = append(args, chatID, fromMsgID)
	}
	query += ` ORDER BY time_sent DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select messages before %q: %w", fromMsgID, err)
	}
	return scanMessages(rows)
}

// SelectChatMessagesAsc returns the full cached history of one chat,
// oldest first. Used by the export path.
func (s *ProfileStore) SelectChatMessagesAsc(chatID string) ([]ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = ? ORDER BY time_sent ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("select chat history: %w", err)
	}
	return scanMessages(rows)
}

// SelectOneMessage returns a single message, or nil if it is not cached.
func (s *ProfileStore) SelectOneMessage(chatID, msgID string) (*ChatMessage, error) {
	row := s.db.QueryRow(
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = ? AND id = ?`, chatID, msgID)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select message %q: %w", msgID, err)
	}
	return m, nil
}

// FindMessageByText returns the newest cached message containing text and
// the chat it belongs to, or nil if none matches. An empty chatID searches
// all chats.
func (s *ProfileStore) FindMessageByText(chatID, text string) (*ChatMessage, string, error) {
	query := `SELECT chat_id, ` + messageColumns + ` FROM messages WHERE instr(text, ?) > 0`
	args := []any{text}
	if chatID != "" {
		query += ` AND chat_id = ?`
		args = append(args, chatID)
	}
	query += ` ORDER BY time_sent DESC LIMIT 1`

	row := s.db.QueryRow(query, args...)
	var foundChat string
	var m ChatMessage
	var reactions string
	err := row.Scan(&foundChat, &m.ID, &m.SenderID, &m.Text, &m.QuotedID, &m.QuotedText,
		&m.QuotedSender, &m.FileInfo, &m.TimeSent, &m.IsOutgoing, &m.IsRead, &reactions)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("find message: %w", err)
	}
	if m.Reactions, err = decodeReactions(reactions); err != nil {
		return nil, "", fmt.Errorf("decode reactions for %q: %w", m.ID, err)
	}
	return &m, foundChat, nil
}

// SelectMessageReactions returns the stored reactions of one message and
// whether the message exists at all.
func (s *ProfileStore) SelectMessageReactions(chatID, msgID string) (Reactions, bool, error) {
	var encoded string
	err := s.db.QueryRow(
		`SELECT reactions FROM messages WHERE chat_id = ? AND id = ?`, chatID, msgID).Scan(&encoded)
	if err == sql.ErrNoRows {
		return Reactions{}, false, nil
	}
	if err != nil {
		return Reactions{}, false, fmt.Errorf("select reactions: %w", err)
	}
	r, err := decodeReactions(encoded)
	if err != nil {
		return Reactions{}, false, fmt.Errorf("decode reactions for %q: %w", msgID, err)
	}
	return r, true, nil
}

// UpdateMessageReactions overwrites the reactions column of one message.
// The value is expected to be a terminal snapshot (flags false).
func (s *ProfileStore) UpdateMessageReactions(chatID, msgID string, r Reactions) error {
	encoded, err := encodeReactions(r)
	if err != nil {
		return fmt.Errorf("encode reactions: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE messages SET reactions = ? WHERE chat_id = ? AND id = ?`, encoded, chatID, msgID)
	if err != nil {
		return fmt.Errorf("update reactions: %w", err)
	}
	return nil
}

// UpdateMessageIsRead sets the read flag of one message.
func (s *ProfileStore) UpdateMessageIsRead(chatID, msgID string, isRead bool) error {
	_, err := s.db.Exec(
		`UPDATE messages SET is_read = ? WHERE chat_id = ? AND id = ?`, isRead, chatID, msgID)
	if err != nil {
		return fmt.Errorf("update is_read: %w", err)
	}
	return nil
}

// UpdateMessageFileInfo replaces the attachment descriptor of one message.
func (s *ProfileStore) UpdateMessageFileInfo(chatID, msgID, fileInfo string) error {
	_, err := s.db.Exec(
		`UPDATE messages SET file_info = ? WHERE chat_id = ? AND id = ?`, fileInfo, chatID, msgID)
	if err != nil {
		return fmt.Errorf("update file_info: %w", err)
	}
	return nil
}

// DeleteMessage removes one message row.
func (s *ProfileStore) DeleteMessage(chatID, msgID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE chat_id = ? AND id = ?`, chatID, msgID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]ChatMessage, error) {
	defer func() { _ = rows.Close() }()

	var msgs []ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*ChatMessage, error) {
	var m ChatMessage
	var reactions string
	if err := row.Scan(&m.ID, &m.SenderID, &m.Text, &m.QuotedID, &m.QuotedText,
		&m.QuotedSender, &m.FileInfo, &m.TimeSent, &m.IsOutgoing, &m.IsRead, &reactions); err != nil {
		return nil, err
	}
	var err error
	if m.Reactions, err = decodeReactions(reactions); err != nil {
		return nil, fmt.Errorf("decode reactions for %q: %w", m.ID, err)
	}
	return &m, nil
}
