package cache

import (
	"fmt"

	"chatvault/internal/profiledir"
	"chatvault/internal/store"
	"go.uber.org/zap"
)

// AddProfile registers a profile, opening and migrating its store under
// the profile's directory and stamping the directory version for the
// surrounding application. Returns whether the store file was freshly
// (re)created, which signals the owning backend that it must reinitialize
// from the origin.
func (c *Cache) AddProfile(profileID string, checkSync bool, dirVersion int, isSetup, allowReadOnly bool) (bool, error) {
	if err := profiledir.ValidateProfileID(profileID); err != nil {
		return false, err
	}
	if err := profiledir.EnsureDir(c.baseDir, profileID); err != nil {
		return false, fmt.Errorf("create profile dir: %w", err)
	}
	if err := profiledir.WriteDirVersion(c.baseDir, profileID, dirVersion); err != nil {
		return false, fmt.Errorf("stamp profile dir: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.profiles[profileID]; ok {
		return false, fmt.Errorf("profile %q already registered", profileID)
	}

	st, created, err := store.Open(profiledir.StorePath(c.baseDir, profileID), isSetup, allowReadOnly, c.logger)
	if err != nil {
		return false, err
	}
	version, err := st.Migrate()
	if err != nil {
		_ = st.Close()
		return false, err
	}
	c.logger.Info("profile store opened",
		zap.String("profile", profileID),
		zap.Int("schema", version),
		zap.Bool("created", created),
		zap.Bool("read_only", st.ReadOnly()))

	c.profiles[profileID] = &profileEntry{
		store:     st,
		checkSync: checkSync,
		inSync:    make(map[string]bool),
	}
	return created, nil
}

// AddMessages stores a batch of messages for one chat. Reactions of
// messages that already carry a stored, non-default reaction value are
// consolidated per Consolidate, and the corrected snapshots are pushed
// through the notification path.
func (c *Cache) AddMessages(profileID, chatID string, msgs []store.ChatMessage) {
	c.enqueue(addMessagesRequest{requestBase{profileID}, chatID, msgs})
}

// AddChats stores a batch of chat metadata rows.
func (c *Cache) AddChats(profileID string, chats []store.ChatInfo) {
	c.enqueue(addChatsRequest{requestBase{profileID}, chats})
}

// AddContacts stores a batch of contacts.
func (c *Cache) AddContacts(profileID string, contacts []store.ContactInfo) {
	c.enqueue(addContactsRequest{requestBase{profileID}, contacts})
}

// UpdateMessageIsRead sets the read flag of one message.
func (c *Cache) UpdateMessageIsRead(profileID, chatID, msgID string, isRead bool) {
	c.enqueue(updateMessageReadRequest{requestBase{profileID}, chatID, msgID, isRead})
}

// UpdateMessageFileInfo replaces the attachment descriptor of one message.
func (c *Cache) UpdateMessageFileInfo(profileID, chatID, msgID, fileInfo string) {
	c.enqueue(updateFileInfoRequest{requestBase{profileID}, chatID, msgID, fileInfo})
}

// UpdateMessageReactions merges an incoming reaction snapshot into the
// stored one and notifies with the consolidated result.
func (c *Cache) UpdateMessageReactions(profileID, chatID, msgID string, reactions store.Reactions) {
	c.enqueue(updateReactionsRequest{requestBase{profileID}, chatID, msgID, reactions})
}

// UpdateChatMuted sets the muted flag of one chat.
func (c *Cache) UpdateChatMuted(profileID, chatID string, isMuted bool) {
	c.enqueue(updateMuteRequest{requestBase{profileID}, chatID, isMuted})
}

// UpdateChatPinned sets the pinned flag of one chat.
func (c *Cache) UpdateChatPinned(profileID, chatID string, isPinned bool) {
	c.enqueue(updatePinRequest{requestBase{profileID}, chatID, isPinned})
}

// DeleteOneMessage removes one message.
func (c *Cache) DeleteOneMessage(profileID, chatID, msgID string) {
	c.enqueue(deleteMessageRequest{requestBase{profileID}, chatID, msgID})
}

// DeleteChat removes a chat's metadata row and all of its messages.
func (c *Cache) DeleteChat(profileID, chatID string) {
	c.enqueue(deleteChatRequest{requestBase{profileID}, chatID})
}

// FetchChats serves chat rows through the notification path, optionally
// filtered by id. Returns false when there is nothing cached to serve.
func (c *Cache) FetchChats(profileID string, chatIDs []string, sync bool) bool {
	c.mu.Lock()
	entry := c.profiles[profileID]
	if entry == nil {
		c.mu.Unlock()
		return false
	}
	count, err := entry.store.ChatCount()
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("chat count failed", zap.String("profile", profileID), zap.Error(err))
		return false
	}
	if count == 0 {
		return false
	}
	c.submit(fetchChatsRequest{requestBase{profileID}, chatIDs}, sync)
	return true
}

// FetchContacts serves all cached contacts through the notification path.
func (c *Cache) FetchContacts(profileID string, sync bool) bool {
	c.mu.Lock()
	entry := c.profiles[profileID]
	if entry == nil {
		c.mu.Unlock()
		return false
	}
	count, err := entry.store.ContactCount()
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("contact count failed", zap.String("profile", profileID), zap.Error(err))
		return false
	}
	if count == 0 {
		return false
	}
	c.submit(fetchContactsRequest{requestBase{profileID}}, sync)
	return true
}

// FetchMessagesFrom serves up to limit messages older than fromMsgID
// (newest when empty). Returns false when nothing can be served — either
// the chat has no cached messages, or partial-sync detection is enabled
// and the chat's cached tail is not yet provably contiguous with the
// origin's, in which case the caller must fetch from the origin instead.
func (c *Cache) FetchMessagesFrom(profileID, chatID, fromMsgID string, limit int, sync bool) bool {
	c.mu.Lock()
	entry := c.profiles[profileID]
	if entry == nil {
		c.mu.Unlock()
		return false
	}
	if entry.checkSync && !entry.inSync[chatID] {
		c.mu.Unlock()
		return false
	}
	has, err := entry.store.HasMessages(chatID)
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("message count failed",
			zap.String("profile", profileID), zap.String("chat", chatID), zap.Error(err))
		return false
	}
	if !has {
		return false
	}
	c.submit(fetchMessagesFromRequest{requestBase{profileID}, chatID, fromMsgID, limit}, sync)
	return true
}

// FetchOneMessage serves a single message by id.
func (c *Cache) FetchOneMessage(profileID, chatID, msgID string, sync bool) bool {
	c.mu.Lock()
	entry := c.profiles[profileID]
	if entry == nil {
		c.mu.Unlock()
		return false
	}
	exists, err := entry.store.MessageExists(chatID, msgID)
	c.mu.Unlock()
	if err != nil {
		c.logger.Error("message probe failed",
			zap.String("profile", profileID), zap.String("chat", chatID), zap.Error(err))
		return false
	}
	if !exists {
		return false
	}
	c.submit(fetchOneMessageRequest{requestBase{profileID}, chatID, msgID}, sync)
	return true
}

// FindMessage searches cached message text (within one chat, or across
// all chats when chatID is empty) and reports the newest match through a
// FindMessageResult notification.
func (c *Cache) FindMessage(profileID, chatID, text string, sync bool) bool {
	c.mu.Lock()
	entry := c.profiles[profileID]
	c.mu.Unlock()
	if entry == nil || text == "" {
		return false
	}
	c.submit(findMessageRequest{requestBase{profileID}, chatID, text}, sync)
	return true
}
