package store

import (
	"encoding/json"
	"hash/fnv"
)

// ChatMessage is one cached message. The chat it belongs to is implicit
// in the call that carries it.
type ChatMessage struct {
	ID           string
	SenderID     string
	Text         string
	QuotedID     string
	QuotedText   string
	QuotedSender string
	FileInfo     string // opaque encoded attachment descriptor, see EncodeFileInfo
	Reactions    Reactions
	TimeSent     int64 // composite send time, see SentTime
	IsOutgoing   bool
	IsRead       bool
}

// ChatInfo is the cached metadata row for one chat.
type ChatInfo struct {
	ID              string
	IsUnread        bool
	IsUnreadMention bool
	IsMuted         bool
	IsPinned        bool
	LastMessageTime int64
}

// ContactInfo is one cached contact.
type ContactInfo struct {
	ID     string
	Name   string
	Phone  string
	IsSelf bool
}

// FileInfo describes a message attachment. The cache stores it opaquely;
// only the export path decodes it.
type FileInfo struct {
	FilePath string `json:"filePath"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// EncodeFileInfo serializes a FileInfo into the opaque string carried by
// ChatMessage.FileInfo.
func EncodeFileInfo(fi FileInfo) string {
	data, err := json.Marshal(fi)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeFileInfo parses an opaque attachment descriptor. Returns a zero
// FileInfo for an empty string.
func DecodeFileInfo(encoded string) (FileInfo, error) {
	var fi FileInfo
	if encoded == "" {
		return fi, nil
	}
	if err := json.Unmarshal([]byte(encoded), &fi); err != nil {
		return FileInfo{}, err
	}
	return fi, nil
}

// SentTime builds the composite send time for a message: server time in
// milliseconds plus a low-order tiebreak derived from the message id, so
// messages sharing the same server second still have a stable total order.
func SentTime(serverTime int64, msgID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(msgID))
	return serverTime*1000 + int64(h.Sum32()%1000)
}
