package tui

import (
	"strings"
	"testing"
	"time"

	"chatvault/internal/cache"
	"chatvault/internal/store"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

// testApp builds a browser over one registered profile and runs its event
// loop on a simulation screen.
func testApp(t *testing.T) *App {
	t.Helper()
	c := cache.New(cache.Config{BaseDir: t.TempDir()}, zap.NewNop())
	t.Cleanup(c.Close)
	if _, err := c.AddProfile("p1", false, 1, false, false); err != nil {
		t.Fatal(err)
	}

	a := NewApp(c, []string{"p1"})
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	a.app.SetScreen(screen)

	done := make(chan struct{})
	go func() {
		_ = a.app.Run()
		close(done)
	}()
	t.Cleanup(func() {
		a.app.Stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("event loop did not stop")
		}
	})

	onLoop(t, a, func() {})
	return a
}

// onLoop runs f on the event-loop goroutine and waits for it.
func onLoop(t *testing.T, a *App, f func()) {
	t.Helper()
	done := make(chan struct{})
	a.app.QueueUpdate(func() {
		f()
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event loop stalled")
	}
}

// Message notifications are filtered against the open chat on the event
// loop itself, so the delivery goroutine never reads UI state.
func TestMessagesForInactiveChatAreIgnored(t *testing.T) {
	a := testApp(t)

	onLoop(t, a, func() {
		a.activeChat = chatRow{profileID: "p1", chat: store.ChatInfo{ID: "c1"}}
	})

	// Delivered from a non-UI goroutine, like the cache does.
	a.handleNotification(cache.NewMessages{
		ProfileID: "p1",
		ChatID:    "c2",
		Messages:  []store.ChatMessage{{ID: "m1", Text: "other chat text", TimeSent: 1000}},
	})
	a.handleNotification(cache.NewMessages{
		ProfileID: "p1",
		ChatID:    "c1",
		Messages:  []store.ChatMessage{{ID: "m2", Text: "active chat text", TimeSent: 2000}},
	})

	var text string
	onLoop(t, a, func() { text = a.msgView.GetText(false) })

	if strings.Contains(text, "other chat text") {
		t.Error("message for an inactive chat was rendered")
	}
	if !strings.Contains(text, "active chat text") {
		t.Error("message for the open chat was not rendered")
	}
}

func TestMergeChatsSortsPinnedFirst(t *testing.T) {
	a := testApp(t)

	onLoop(t, a, func() {
		a.mergeChats("p1", []store.ChatInfo{
			{ID: "c1", LastMessageTime: 300},
			{ID: "c2", IsPinned: true, LastMessageTime: 100},
			{ID: "c3", LastMessageTime: 200},
		})
	})

	var ids []string
	onLoop(t, a, func() {
		for _, r := range a.rows {
			ids = append(ids, r.chat.ID)
		}
	})
	want := []string{"c2", "c1", "c3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}
