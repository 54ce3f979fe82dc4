package cache

import (
	"fmt"
	"testing"
	"time"

	"chatvault/internal/store"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T, baseDir string) (*Cache, chan Notification) {
	t.Helper()
	c := New(Config{BaseDir: baseDir, NotifyBuffer: 256}, zap.NewNop())
	t.Cleanup(c.Close)
	ch := make(chan Notification, 256)
	c.SetMessageHandler(func(n Notification) { ch <- n })
	return c, ch
}

func waitFor(t *testing.T, ch chan Notification, match func(Notification) bool) Notification {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-ch:
			if match(n) {
				return n
			}
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		}
	}
}

// barrier waits until everything enqueued before it has been executed, by
// pushing a find request through the same FIFO and waiting for its result.
func barrier(t *testing.T, c *Cache, ch chan Notification, profileID string) {
	t.Helper()
	if !c.FindMessage(profileID, "", "~~queue-barrier~~", false) {
		t.Fatal("barrier find not submitted")
	}
	waitFor(t, ch, func(n Notification) bool {
		r, ok := n.(FindMessageResult)
		return ok && r.ProfileID == profileID && !r.Found
	})
}

func TestAddProfileCreatedFlag(t *testing.T) {
	dir := t.TempDir()
	c, _ := newTestCache(t, dir)

	created, err := c.AddProfile("p1", false, 1, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("fresh profile should report created")
	}

	if _, err := c.AddProfile("p1", false, 1, false, false); err == nil {
		t.Error("duplicate registration should fail")
	}
	c.Close()

	// A second process lifetime sees the existing store.
	c2, _ := newTestCache(t, dir)
	created, err = c2.AddProfile("p1", false, 1, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("existing profile should not report created")
	}
}

func TestAddProfileRejectsBadID(t *testing.T) {
	c, _ := newTestCache(t, t.TempDir())
	for _, id := range []string{"../escape", "..", "."} {
		if _, err := c.AddProfile(id, false, 1, false, false); err == nil {
			t.Errorf("path-traversing profile id %q accepted", id)
		}
	}
}

func TestAddMessagesThenFetch(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	c.AddMessages("p1", "c1", []store.ChatMessage{
		{ID: "m1", SenderID: "u1", Text: "hello", TimeSent: 1000},
		{ID: "m2", SenderID: "u2", Text: "world", TimeSent: 2000},
	})
	barrier(t, c, ch, "p1")

	if !c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Fatal("fetch should be served from cache")
	}
	n := waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(NewMessages)
		return ok
	}).(NewMessages)

	if n.ChatID != "c1" || !n.Cached || !n.Sequence {
		t.Errorf("notification = %+v", n)
	}
	if len(n.Messages) != 2 || n.Messages[0].ID != "m2" || n.Messages[1].ID != "m1" {
		t.Errorf("messages = %+v, want m2 then m1 (newest first)", n.Messages)
	}
}

func TestFetchReturnsFalseWhenNothingCached(t *testing.T) {
	c, _ := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	if c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Error("empty chat must report nothing-to-fetch")
	}
	if c.FetchChats("p1", nil, true) {
		t.Error("empty chats table must report nothing-to-fetch")
	}
	if c.FetchContacts("p1", true) {
		t.Error("empty contacts table must report nothing-to-fetch")
	}
	if c.FetchMessagesFrom("ghost", "c1", "", 10, true) {
		t.Error("unregistered profile must report nothing-to-fetch")
	}
}

func TestSyncTrackerGatesFetches(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", true, 1, false, false); err != nil {
		t.Fatal(err)
	}

	// Cold cache: the first batch has no overlap with anything cached,
	// so the chat's tail is not provably contiguous.
	c.AddMessages("p1", "c1", []store.ChatMessage{
		{ID: "m1", TimeSent: 1000},
		{ID: "m2", TimeSent: 2000},
	})
	barrier(t, c, ch, "p1")

	if c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Fatal("out-of-sync chat must not serve from cache")
	}

	// A batch overlapping a cached id proves contiguity.
	c.AddMessages("p1", "c1", []store.ChatMessage{
		{ID: "m2", TimeSent: 2000},
		{ID: "m3", TimeSent: 3000},
	})
	barrier(t, c, ch, "p1")

	if !c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Fatal("overlapping add should flip the chat in sync")
	}
	waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(NewMessages)
		return ok
	})

	// In-sync is permanent for the process lifetime, even across
	// later non-overlapping batches.
	c.AddMessages("p1", "c1", []store.ChatMessage{{ID: "m9", TimeSent: 9000}})
	barrier(t, c, ch, "p1")
	if !c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Error("in-sync state must not regress")
	}

	// Other chats of the same profile are tracked independently.
	c.AddMessages("p1", "c2", []store.ChatMessage{{ID: "x1", TimeSent: 1000}})
	barrier(t, c, ch, "p1")
	if c.FetchMessagesFrom("p1", "c2", "", 10, true) {
		t.Error("sync state leaked across chats")
	}
}

func TestReactionConsolidationOnRepeatedAdd(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	// First insert: nothing stored to merge against, stored verbatim,
	// no reaction notification.
	c.AddMessages("p1", "c1", []store.ChatMessage{{
		ID: "m1", TimeSent: 1000,
		Reactions: store.Reactions{SenderEmojis: map[string]string{"u1": "👍"}},
	}})
	barrier(t, c, ch, "p1")

	// Re-add with an incoming update: prior value exists, so the incoming
	// reactions are consolidated and the correction is pushed out.
	c.AddMessages("p1", "c1", []store.ChatMessage{{
		ID: "m1", TimeSent: 1000,
		Reactions: store.Reactions{
			SenderEmojis:           map[string]string{"u2": "❤️"},
			NeedConsolidation:      true,
			UpdateCountFromSenders: true,
		},
	}})
	n := waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(ReactionsUpdated)
		return ok
	}).(ReactionsUpdated)

	if n.MsgID != "m1" {
		t.Fatalf("notification = %+v", n)
	}
	if len(n.Reactions.SenderEmojis) != 2 || n.Reactions.SenderEmojis["u1"] != "👍" || n.Reactions.SenderEmojis["u2"] != "❤️" {
		t.Errorf("senders = %v", n.Reactions.SenderEmojis)
	}
	if n.Reactions.EmojiCounts["👍"] != 1 || n.Reactions.EmojiCounts["❤️"] != 1 {
		t.Errorf("counts = %v", n.Reactions.EmojiCounts)
	}

	// Reaction removal through the update entry point.
	c.UpdateMessageReactions("p1", "c1", "m1", store.Reactions{
		SenderEmojis:           map[string]string{"u1": ""},
		NeedConsolidation:      true,
		UpdateCountFromSenders: true,
	})
	n = waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(ReactionsUpdated)
		return ok
	}).(ReactionsUpdated)

	if len(n.Reactions.SenderEmojis) != 1 || n.Reactions.SenderEmojis["u2"] != "❤️" {
		t.Errorf("senders after removal = %v", n.Reactions.SenderEmojis)
	}
	if len(n.Reactions.EmojiCounts) != 1 || n.Reactions.EmojiCounts["❤️"] != 1 {
		t.Errorf("counts after removal = %v", n.Reactions.EmojiCounts)
	}

	// The stored row holds the terminal snapshot.
	if !c.FetchOneMessage("p1", "c1", "m1", true) {
		t.Fatal("message should exist")
	}
	msg := waitFor(t, ch, func(n Notification) bool {
		m, ok := n.(NewMessages)
		return ok && !m.Sequence
	}).(NewMessages)
	r := msg.Messages[0].Reactions
	if r.NeedConsolidation || r.UpdateCountFromSenders || r.ReplaceCount {
		t.Error("persisted value must carry no control flags")
	}
	if r.SenderEmojis["u2"] != "❤️" {
		t.Errorf("persisted senders = %v", r.SenderEmojis)
	}
}

func TestDeleteChatRemovesEverything(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	c.AddChats("p1", []store.ChatInfo{{ID: "c1", LastMessageTime: 10}})
	c.AddMessages("p1", "c1", []store.ChatMessage{{ID: "m1", TimeSent: 1000}})
	c.DeleteChat("p1", "c1")

	waitFor(t, ch, func(n Notification) bool {
		d, ok := n.(ChatDeleted)
		return ok && d.ChatID == "c1"
	})

	if c.FetchMessagesFrom("p1", "c1", "", 10, true) {
		t.Error("deleted chat must report no data")
	}
	if c.FetchChats("p1", nil, true) {
		t.Error("no chats should remain")
	}
}

func TestMuteAndPinUpdates(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	c.AddChats("p1", []store.ChatInfo{{ID: "c1"}})
	c.UpdateChatMuted("p1", "c1", true)
	c.UpdateChatPinned("p1", "c1", true)

	waitFor(t, ch, func(n Notification) bool {
		m, ok := n.(MuteUpdated)
		return ok && m.ChatID == "c1" && m.IsMuted
	})
	waitFor(t, ch, func(n Notification) bool {
		p, ok := n.(PinUpdated)
		return ok && p.ChatID == "c1" && p.IsPinned
	})

	if !c.FetchChats("p1", []string{"c1"}, true) {
		t.Fatal("chat should be served")
	}
	n := waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(NewChats)
		return ok
	}).(NewChats)
	if len(n.Chats) != 1 || !n.Chats[0].IsMuted || !n.Chats[0].IsPinned {
		t.Errorf("chats = %+v", n.Chats)
	}
}

func TestFindMessageAcrossChats(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	c.AddMessages("p1", "c1", []store.ChatMessage{{ID: "m1", Text: "needle in here", TimeSent: 1000}})
	barrier(t, c, ch, "p1")

	if !c.FindMessage("p1", "", "needle", true) {
		t.Fatal("find not submitted")
	}
	n := waitFor(t, ch, func(n Notification) bool {
		r, ok := n.(FindMessageResult)
		return ok && r.Found
	}).(FindMessageResult)
	if n.ChatID != "c1" || n.MsgID != "m1" {
		t.Errorf("result = %+v", n)
	}

	if c.FindMessage("p1", "", "", true) {
		t.Error("empty search text must not submit")
	}
}

func TestPublishPassThrough(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())

	c.Publish(MessageDeleted{ProfileID: "origin", ChatID: "c1", MsgID: "m1"})
	n := waitFor(t, ch, func(n Notification) bool {
		_, ok := n.(MessageDeleted)
		return ok
	}).(MessageDeleted)
	if n.ProfileID != "origin" {
		t.Errorf("notification = %+v", n)
	}
}

func TestMutationsOnUnregisteredProfileAreNoOps(t *testing.T) {
	c, ch := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	c.AddMessages("ghost", "c1", []store.ChatMessage{{ID: "m1", TimeSent: 1}})
	c.DeleteChat("ghost", "c1")
	barrier(t, c, ch, "p1")
}

func TestCloseWithNonEmptyQueueDoesNotHang(t *testing.T) {
	c, _ := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 500; i++ {
		c.AddMessages("p1", "c1", []store.ChatMessage{
			{ID: fmt.Sprintf("m%d", i), TimeSent: int64(i) * 1000},
		})
	}

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Close hung with a non-empty queue")
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	c, _ := newTestCache(t, t.TempDir())
	c.Close()

	// Must not panic on the closed mailbox.
	c.Publish(MessageDeleted{ProfileID: "origin", ChatID: "c1", MsgID: "m1"})
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	c, _ := newTestCache(t, t.TempDir())
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}
	c.Close()

	// Must not panic or hang.
	c.AddMessages("p1", "c1", []store.ChatMessage{{ID: "m1", TimeSent: 1}})
}
