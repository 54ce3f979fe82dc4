package cache

import (
	"fmt"

	"chatvault/internal/store"
)

// execute is the single routine all storage work funnels through, from
// the worker and from synchronous calls alike. The caller holds c.mu.
// It returns the notifications to deliver once the lock is released.
// Requests for unregistered profiles are no-ops, not errors.
func (c *Cache) execute(req request) ([]Notification, error) {
	entry := c.profiles[req.profile()]
	if entry == nil {
		return nil, nil
	}
	st := entry.store

	switch r := req.(type) {
	case addMessagesRequest:
		return c.executeAddMessages(entry, r)

	case addChatsRequest:
		return nil, st.ReplaceChats(r.chats)

	case addContactsRequest:
		return nil, st.ReplaceContacts(r.contacts)

	case fetchChatsRequest:
		chats, err := st.SelectChats(r.chatIDs)
		if err != nil {
			return nil, err
		}
		return []Notification{NewChats{ProfileID: r.profileID, Chats: chats}}, nil

	case fetchContactsRequest:
		contacts, err := st.SelectContacts()
		if err != nil {
			return nil, err
		}
		return []Notification{NewContacts{ProfileID: r.profileID, Contacts: contacts}}, nil

	case fetchMessagesFromRequest:
		msgs, err := st.SelectMessagesBefore(r.chatID, r.fromMsgID, r.limit)
		if err != nil {
			return nil, err
		}
		return []Notification{NewMessages{
			ProfileID: r.profileID,
			ChatID:    r.chatID,
			Messages:  msgs,
			FromMsgID: r.fromMsgID,
			Cached:    true,
			Sequence:  true,
		}}, nil

	case fetchOneMessageRequest:
		msg, err := st.SelectOneMessage(r.chatID, r.msgID)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, nil
		}
		return []Notification{NewMessages{
			ProfileID: r.profileID,
			ChatID:    r.chatID,
			Messages:  []store.ChatMessage{*msg},
			Cached:    true,
		}}, nil

	case findMessageRequest:
		msg, foundChat, err := st.FindMessageByText(r.chatID, r.text)
		if err != nil {
			return nil, err
		}
		result := FindMessageResult{ProfileID: r.profileID}
		if msg != nil {
			result.Found = true
			result.ChatID = foundChat
			result.MsgID = msg.ID
		}
		return []Notification{result}, nil

	case deleteMessageRequest:
		if err := st.DeleteMessage(r.chatID, r.msgID); err != nil {
			return nil, err
		}
		return []Notification{MessageDeleted{ProfileID: r.profileID, ChatID: r.chatID, MsgID: r.msgID}}, nil

	case deleteChatRequest:
		if err := st.DeleteChat(r.chatID); err != nil {
			return nil, err
		}
		return []Notification{ChatDeleted{ProfileID: r.profileID, ChatID: r.chatID}}, nil

	case updateMessageReadRequest:
		return nil, st.UpdateMessageIsRead(r.chatID, r.msgID, r.isRead)

	case updateFileInfoRequest:
		return nil, st.UpdateMessageFileInfo(r.chatID, r.msgID, r.fileInfo)

	case updateReactionsRequest:
		return c.executeUpdateReactions(entry, r)

	case updateMuteRequest:
		if err := st.UpdateChatMuted(r.chatID, r.isMuted); err != nil {
			return nil, err
		}
		return []Notification{MuteUpdated{ProfileID: r.profileID, ChatID: r.chatID, IsMuted: r.isMuted}}, nil

	case updatePinRequest:
		if err := st.UpdateChatPinned(r.chatID, r.isPinned); err != nil {
			return nil, err
		}
		return []Notification{PinUpdated{ProfileID: r.profileID, ChatID: r.chatID, IsPinned: r.isPinned}}, nil
	}

	return nil, fmt.Errorf("unhandled request kind %q", req.kind())
}

// executeAddMessages stores a message batch. Before writing, incoming ids
// are probed against the cached table: a hit proves the cached tail joins
// up with the batch the origin just sent, flipping the chat to in-sync
// for the rest of the process lifetime. Messages whose stored row already
// carries a non-default reaction value have their incoming reactions
// consolidated, and each consolidated snapshot is pushed out so stale
// displayed state gets corrected.
func (c *Cache) executeAddMessages(entry *profileEntry, r addMessagesRequest) ([]Notification, error) {
	st := entry.store

	if entry.checkSync && !entry.inSync[r.chatID] {
		ids := make([]string, len(r.messages))
		for i := range r.messages {
			ids[i] = r.messages[i].ID
		}
		hit, err := st.AnyMessageExists(r.chatID, ids)
		if err != nil {
			return nil, err
		}
		if hit {
			entry.inSync[r.chatID] = true
		}
	}

	var notifs []Notification
	for i := range r.messages {
		m := &r.messages[i]
		prior, found, err := st.SelectMessageReactions(r.chatID, m.ID)
		if err != nil {
			return nil, err
		}
		if found && !prior.IsDefault() {
			store.Consolidate(prior, &m.Reactions)
			notifs = append(notifs, ReactionsUpdated{
				ProfileID: r.profileID,
				ChatID:    r.chatID,
				MsgID:     m.ID,
				Reactions: m.Reactions,
			})
		} else {
			// Nothing stored to merge against: persist verbatim, flags
			// cleared, and stay quiet.
			m.Reactions.ClearFlags()
		}
	}

	if err := st.ReplaceMessages(r.chatID, r.messages); err != nil {
		return nil, err
	}
	return notifs, nil
}

func (c *Cache) executeUpdateReactions(entry *profileEntry, r updateReactionsRequest) ([]Notification, error) {
	st := entry.store

	prior, found, err := st.SelectMessageReactions(r.chatID, r.msgID)
	if err != nil {
		return nil, err
	}
	if !found {
		// Message not cached: nothing to update.
		return nil, nil
	}

	target := r.reactions
	if prior.IsDefault() {
		target.ClearFlags()
	} else {
		store.Consolidate(prior, &target)
	}
	if err := st.UpdateMessageReactions(r.chatID, r.msgID, target); err != nil {
		return nil, err
	}
	return []Notification{ReactionsUpdated{
		ProfileID: r.profileID,
		ChatID:    r.chatID,
		MsgID:     r.msgID,
		Reactions: target,
	}}, nil
}
