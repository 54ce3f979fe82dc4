// Package tui is a read-only terminal browser over the cached profiles.
package tui

import (
	"fmt"
	"sort"
	"time"

	"chatvault/internal/cache"
	"chatvault/internal/store"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const messagePageSize = 100

type chatRow struct {
	profileID string
	chat      store.ChatInfo
}

// App is the browser shell: a chat table on the left and a message pane
// on the right, both fed from the cache's notification mailbox.
type App struct {
	app      *tview.Application
	chatList *tview.Table
	msgView  *tview.TextView
	status   *tview.TextView

	cache    *cache.Cache
	profiles []string

	rows       []chatRow
	activeChat chatRow
	names      map[string]map[string]string // profile -> contact id -> name
}

// NewApp builds the browser over the given registered profiles.
func NewApp(c *cache.Cache, profiles []string) *App {
	a := &App{
		app:      tview.NewApplication(),
		chatList: tview.NewTable().SetSelectable(true, false),
		msgView:  tview.NewTextView().SetDynamicColors(true).SetWrap(true),
		status:   tview.NewTextView(),
		cache:    c,
		profiles: profiles,
		names:    make(map[string]map[string]string),
	}

	a.chatList.SetBorder(true).SetTitle(" Chats ")
	a.msgView.SetBorder(true).SetTitle(" Messages ")
	a.status.SetText(" q:quit  r:refresh  enter:open chat")

	a.chatList.SetSelectedFunc(func(row, _ int) {
		idx := row - 1
		if idx >= 0 && idx < len(a.rows) {
			a.openChat(a.rows[idx])
		}
	})
	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Rune() {
		case 'q':
			a.app.Stop()
			return nil
		case 'r':
			a.refresh()
			return nil
		}
		return ev
	})

	layout := tview.NewFlex().
		AddItem(a.chatList, 0, 1, true).
		AddItem(a.msgView, 0, 2, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(layout, 0, 1, true).
		AddItem(a.status, 1, 0, false)
	a.app.SetRoot(root, true)

	c.SetMessageHandler(a.handleNotification)
	return a
}

// Run refreshes once and enters the tview event loop. Blocks until quit.
func (a *App) Run() error {
	a.refresh()
	return a.app.Run()
}

// Stop terminates the event loop.
func (a *App) Stop() {
	a.app.Stop()
}

func (a *App) refresh() {
	for _, profileID := range a.profiles {
		a.cache.FetchContacts(profileID, false)
		a.cache.FetchChats(profileID, nil, false)
	}
}

func (a *App) openChat(row chatRow) {
	a.activeChat = row
	a.msgView.SetTitle(fmt.Sprintf(" %s ", a.displayName(row.profileID, row.chat.ID)))
	if !a.cache.FetchMessagesFrom(row.profileID, row.chat.ID, "", messagePageSize, false) {
		a.msgView.SetText("no cached history for this chat")
	}
}

// handleNotification runs on the cache's delivery goroutine; every UI
// mutation goes through QueueUpdateDraw.
func (a *App) handleNotification(n cache.Notification) {
	switch v := n.(type) {
	case cache.NewContacts:
		names := make(map[string]string, len(v.Contacts))
		for _, c := range v.Contacts {
			name := c.Name
			if name == "" {
				name = c.Phone
			}
			if name != "" {
				names[c.ID] = name
			}
		}
		a.app.QueueUpdateDraw(func() {
			a.names[v.ProfileID] = names
		})

	case cache.NewChats:
		a.app.QueueUpdateDraw(func() {
			a.mergeChats(v.ProfileID, v.Chats)
		})

	case cache.NewMessages:
		// activeChat is owned by the event-loop goroutine; compare it there.
		a.app.QueueUpdateDraw(func() {
			if v.ProfileID != a.activeChat.profileID || v.ChatID != a.activeChat.chat.ID {
				return
			}
			a.renderMessages(v.ProfileID, v.Messages)
		})

	case cache.ChatDeleted:
		a.refresh()
	}
}

func (a *App) mergeChats(profileID string, chats []store.ChatInfo) {
	kept := a.rows[:0]
	for _, r := range a.rows {
		if r.profileID != profileID {
			kept = append(kept, r)
		}
	}
	a.rows = kept
	for _, c := range chats {
		a.rows = append(a.rows, chatRow{profileID: profileID, chat: c})
	}
	sort.SliceStable(a.rows, func(i, j int) bool {
		if a.rows[i].chat.IsPinned != a.rows[j].chat.IsPinned {
			return a.rows[i].chat.IsPinned
		}
		return a.rows[i].chat.LastMessageTime > a.rows[j].chat.LastMessageTime
	})
	a.renderChatList()
}

func (a *App) renderChatList() {
	a.chatList.Clear()
	a.chatList.SetCell(0, 0, header(" Chat"))
	a.chatList.SetCell(0, 1, header(" Profile"))
	a.chatList.SetCell(0, 2, header(" Last Activity"))

	for i, r := range a.rows {
		name := a.displayName(r.profileID, r.chat.ID)
		if r.chat.IsPinned {
			name = "* " + name
		}
		if r.chat.IsUnread {
			name = name + " (unread)"
		}
		a.chatList.SetCell(i+1, 0, tview.NewTableCell(" "+name).SetMaxWidth(30).SetExpansion(1))
		a.chatList.SetCell(i+1, 1, tview.NewTableCell(" "+r.profileID).SetMaxWidth(16))
		a.chatList.SetCell(i+1, 2, tview.NewTableCell(" "+formatTime(r.chat.LastMessageTime)).SetMaxWidth(12))
	}
}

func (a *App) renderMessages(profileID string, msgs []store.ChatMessage) {
	a.msgView.Clear()
	// Fetches arrive newest first; render oldest first.
	for i := len(msgs) - 1; i >= 0; i-- {
		m := &msgs[i]
		sender := a.displayName(profileID, m.SenderID)
		fmt.Fprintf(a.msgView, "[yellow]%s[-] [green]%s[-]\n", formatTime(m.TimeSent), tview.Escape(sender))
		if m.QuotedText != "" {
			fmt.Fprintf(a.msgView, "  > %s\n", tview.Escape(m.QuotedText))
		}
		fmt.Fprintf(a.msgView, "%s\n", tview.Escape(m.Text))
		if len(m.Reactions.EmojiCounts) > 0 {
			fmt.Fprintf(a.msgView, "  %s\n", formatReactions(m.Reactions))
		}
		fmt.Fprintln(a.msgView)
	}
	a.msgView.ScrollToEnd()
}

func (a *App) displayName(profileID, id string) string {
	if name := a.names[profileID][id]; name != "" {
		return name
	}
	return id
}

func formatReactions(r store.Reactions) string {
	emojis := make([]string, 0, len(r.EmojiCounts))
	for emoji := range r.EmojiCounts {
		emojis = append(emojis, emoji)
	}
	sort.Strings(emojis)
	out := ""
	for _, emoji := range emojis {
		out += fmt.Sprintf("%s %d  ", emoji, r.EmojiCounts[emoji])
	}
	return out
}

func formatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms)
	if t.Year() == time.Now().Year() {
		return t.Format("Jan 02 15:04")
	}
	return t.Format("2006-01-02")
}

func header(text string) *tview.TableCell {
	return tview.NewTableCell(text).
		SetSelectable(false).
		SetTextColor(tview.Styles.SecondaryTextColor)
}
