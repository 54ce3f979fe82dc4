package cache

import "chatvault/internal/store"

// request is the closed set of operations the execution routine handles.
// Every variant carries the profile it targets; the worker consumes each
// value exactly once.
type request interface {
	kind() string
	profile() string
}

type requestBase struct {
	profileID string
}

func (r requestBase) profile() string { return r.profileID }

type addMessagesRequest struct {
	requestBase
	chatID   string
	messages []store.ChatMessage
}

func (addMessagesRequest) kind() string { return "add-messages" }

type addChatsRequest struct {
	requestBase
	chats []store.ChatInfo
}

func (addChatsRequest) kind() string { return "add-chats" }

type addContactsRequest struct {
	requestBase
	contacts []store.ContactInfo
}

func (addContactsRequest) kind() string { return "add-contacts" }

type fetchChatsRequest struct {
	requestBase
	chatIDs []string
}

func (fetchChatsRequest) kind() string { return "fetch-chats" }

type fetchContactsRequest struct {
	requestBase
}

func (fetchContactsRequest) kind() string { return "fetch-contacts" }

type fetchMessagesFromRequest struct {
	requestBase
	chatID    string
	fromMsgID string
	limit     int
}

func (fetchMessagesFromRequest) kind() string { return "fetch-messages-from" }

type fetchOneMessageRequest struct {
	requestBase
	chatID string
	msgID  string
}

func (fetchOneMessageRequest) kind() string { return "fetch-one-message" }

type findMessageRequest struct {
	requestBase
	chatID string
	text   string
}

func (findMessageRequest) kind() string { return "find-message" }

type deleteMessageRequest struct {
	requestBase
	chatID string
	msgID  string
}

func (deleteMessageRequest) kind() string { return "delete-message" }

type deleteChatRequest struct {
	requestBase
	chatID string
}

func (deleteChatRequest) kind() string { return "delete-chat" }

type updateMessageReadRequest struct {
	requestBase
	chatID string
	msgID  string
	isRead bool
}

func (updateMessageReadRequest) kind() string { return "update-message-read" }

type updateFileInfoRequest struct {
	requestBase
	chatID   string
	msgID    string
	fileInfo string
}

func (updateFileInfoRequest) kind() string { return "update-file-info" }

type updateReactionsRequest struct {
	requestBase
	chatID    string
	msgID     string
	reactions store.Reactions
}

func (updateReactionsRequest) kind() string { return "update-reactions" }

type updateMuteRequest struct {
	requestBase
	chatID  string
	isMuted bool
}

func (updateMuteRequest) kind() string { return "update-mute" }

type updatePinRequest struct {
	requestBase
	chatID   string
	isPinned bool
}

func (updatePinRequest) kind() string { return "update-pin" }
