package cache

import "chatvault/internal/store"

// Notification is the tagged value delivered to the registered handler.
// The same type carries cache-originated results and caller-supplied
// pass-through notifications published via Publish.
type Notification interface {
	notification()
}

// NewChats delivers chat metadata rows served from the cache.
type NewChats struct {
	ProfileID string
	Chats     []store.ChatInfo
}

// NewContacts delivers contacts served from the cache.
type NewContacts struct {
	ProfileID string
	Contacts  []store.ContactInfo
}

// NewMessages delivers a run of messages for one chat, newest first.
// FromMsgID is the exclusive upper bound the fetch started from (empty
// means "from the newest"). Sequence is true when the run is contiguous
// history rather than a single looked-up message.
type NewMessages struct {
	ProfileID string
	ChatID    string
	Messages  []store.ChatMessage
	FromMsgID string
	Cached    bool
	Sequence  bool
}

// ReactionsUpdated pushes a consolidated reaction snapshot so previously
// displayed stale state gets corrected.
type ReactionsUpdated struct {
	ProfileID string
	ChatID    string
	MsgID     string
	Reactions store.Reactions
}

// MessageDeleted reports the removal of one message.
type MessageDeleted struct {
	ProfileID string
	ChatID    string
	MsgID     string
}

// ChatDeleted reports the removal of a chat and all of its messages.
type ChatDeleted struct {
	ProfileID string
	ChatID    string
}

// MuteUpdated reports a chat mute flag change.
type MuteUpdated struct {
	ProfileID string
	ChatID    string
	IsMuted   bool
}

// PinUpdated reports a chat pin flag change.
type PinUpdated struct {
	ProfileID string
	ChatID    string
	IsPinned  bool
}

// FindMessageResult reports the outcome of a FindMessage call.
type FindMessageResult struct {
	ProfileID string
	ChatID    string
	MsgID     string
	Found     bool
}

func (NewChats) notification()          {}
func (NewContacts) notification()       {}
func (NewMessages) notification()       {}
func (ReactionsUpdated) notification()  {}
func (MessageDeleted) notification()    {}
func (ChatDeleted) notification()       {}
func (MuteUpdated) notification()       {}
func (PinUpdated) notification()        {}
func (FindMessageResult) notification() {}
