// Package export writes cached chat history to flat text files, one file
// per (chat, year). It reads the profile stores directly, outside the
// cache request queue.
package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"chatvault/internal/store"
	"go.uber.org/zap"
)

// WriteProfile exports every cached chat of one profile under
// outDir/<profileID>/. Quoted references are resolved against the
// messages already walked, so a quote can only resolve to an earlier
// message; when the referenced message is not cached, the quote's own
// text snapshot is used.
func WriteProfile(st *store.ProfileStore, profileID, outDir string, logger *zap.Logger) error {
	chatIDs, err := st.ChatIDs()
	if err != nil {
		return err
	}
	contacts, err := st.SelectContacts()
	if err != nil {
		return err
	}
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = displayName(c)
	}

	profileOut := filepath.Join(outDir, profileID)
	if err := os.MkdirAll(profileOut, 0700); err != nil {
		return err
	}

	// Distinct chats can sanitize to the same file base; suffix the chat
	// id so one never truncates the other's files.
	used := make(map[string]bool, len(chatIDs))
	for _, chatID := range chatIDs {
		chatName := names[chatID]
		if chatName == "" {
			chatName = chatID
		}
		base := sanitizeFileName(chatName)
		if used[base] {
			base += "_" + sanitizeFileName(chatID)
		}
		used[base] = true

		files, err := writeChat(st, profileOut, chatID, base, names)
		if err != nil {
			return fmt.Errorf("export chat %q: %w", chatID, err)
		}
		if files > 0 {
			logger.Info("chat exported",
				zap.String("profile", profileID),
				zap.String("chat", chatID),
				zap.Int("files", files))
		}
	}
	return nil
}

func writeChat(st *store.ProfileStore, outDir, chatID, fileBase string, names map[string]string) (int, error) {
	msgs, err := st.SelectChatMessagesAsc(chatID)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	// id -> text of messages already walked; quotes resolve only backwards.
	quoted := make(map[string]string, len(msgs))

	var (
		w     *bufio.Writer
		f     *os.File
		year  int
		files int
	)
	closeCurrent := func() error {
		if f == nil {
			return nil
		}
		if err := w.Flush(); err != nil {
			_ = f.Close()
			return err
		}
		err := f.Close()
		f = nil
		return err
	}

	for i := range msgs {
		m := &msgs[i]
		t := time.UnixMilli(m.TimeSent)

		if f == nil || t.Year() != year {
			if err := closeCurrent(); err != nil {
				return files, err
			}
			year = t.Year()
			name := fileBase + "_" + strconv.Itoa(year) + ".txt"
			f, err = os.OpenFile(filepath.Join(outDir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return files, err
			}
			w = bufio.NewWriter(f)
			files++
		}

		if err := writeMessage(w, m, t, names, quoted); err != nil {
			_ = closeCurrent()
			return files, err
		}
		quoted[m.ID] = m.Text
	}
	return files, closeCurrent()
}

func writeMessage(w *bufio.Writer, m *store.ChatMessage, t time.Time, names, quoted map[string]string) error {
	sender := names[m.SenderID]
	if sender == "" {
		sender = m.SenderID
	}
	if _, err := fmt.Fprintf(w, "%s %s:\n", t.Format("2006-01-02 15:04"), sender); err != nil {
		return err
	}

	if m.QuotedID != "" || m.QuotedText != "" {
		text, ok := quoted[m.QuotedID]
		if !ok {
			text = m.QuotedText
		}
		for _, line := range strings.Split(text, "\n") {
			if _, err := fmt.Fprintf(w, "> %s\n", line); err != nil {
				return err
			}
		}
	}

	if m.Text != "" {
		if _, err := fmt.Fprintln(w, m.Text); err != nil {
			return err
		}
	}

	if m.FileInfo != "" {
		fi, err := store.DecodeFileInfo(m.FileInfo)
		if err == nil && fi.FilePath != "" {
			if _, err := fmt.Fprintf(w, "[%s]\n", filepath.Base(fi.FilePath)); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

func displayName(c store.ContactInfo) string {
	if c.Name != "" {
		return c.Name
	}
	if c.Phone != "" {
		return c.Phone
	}
	return c.ID
}

func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
