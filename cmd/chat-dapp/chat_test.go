package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

func pressEnter(m chatModel, text string) (chatModel, tea.Cmd) {
	m.input.SetValue(text)
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func runCmd(t *testing.T, m chatModel, cmd tea.Cmd) chatModel {
	t.Helper()
	if cmd == nil {
		return m
	}
	if msg := cmd(); msg != nil {
		m, _ = m.Update(msg)
	}
	return m
}

func TestChatAddFriendCommand(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")
	bob := registerUser(t, url, "bob")

	m := newChatModel(alice, url)
	m.setSize(100, 30)

	m, cmd := pressEnter(m, "/add "+string(bob.Address())+" bobby")
	m = runCmd(t, m, cmd)

	snap := alice.Snapshot()
	if len(snap.Friends) != 1 || snap.Friends[0].Name != "bobby" {
		t.Fatalf("expected bobby in friend list, got %+v", snap.Friends)
	}
	if snap.SelectedFriend != bob.Address() {
		t.Fatalf("expected new friend to be selected")
	}
	if !strings.Contains(m.notice, "added bobby") {
		t.Fatalf("expected confirmation notice, got %q", m.notice)
	}
}

func TestChatSendAndRenderMessages(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")
	bob := registerUser(t, url, "bob")
	if err := alice.AddFriend(context.Background(), bob.Address(), "bobby"); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	alice.SetSelectedFriend(bob.Address())

	m := newChatModel(alice, url)
	m.setSize(100, 30)
	m.applySnapshot(alice.Snapshot())

	m, cmd := pressEnter(m, "hello bob")
	m = runCmd(t, m, cmd)
	m.applySnapshot(alice.Snapshot())

	view := m.renderMessages()
	if !strings.Contains(view, "you") || !strings.Contains(view, "hello bob") {
		t.Fatalf("expected own message in view, got %q", view)
	}
}

func TestChatSendWithoutSelectionIsANotice(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")

	m := newChatModel(alice, url)
	m.setSize(100, 30)

	m, cmd := pressEnter(m, "hello void")
	if cmd != nil {
		t.Fatalf("expected no command without a selected conversation")
	}
	if !strings.Contains(m.notice, "/add") {
		t.Fatalf("expected hint about /add, got %q", m.notice)
	}
}

func TestChatEditAndDeleteCommands(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")
	bob := registerUser(t, url, "bob")
	if err := alice.AddFriend(context.Background(), bob.Address(), "bobby"); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	alice.SetSelectedFriend(bob.Address())
	alice.SendMessage(context.Background(), bob.Address(), "first")
	alice.SendMessage(context.Background(), bob.Address(), "second")

	m := newChatModel(alice, url)
	m.setSize(100, 30)
	m.applySnapshot(alice.Snapshot())

	m, cmd := pressEnter(m, "/edit 0 first, corrected")
	m = runCmd(t, m, cmd)
	if !strings.Contains(m.notice, "edited") {
		t.Fatalf("expected edit confirmation, got %q", m.notice)
	}

	m, cmd = pressEnter(m, "/delete 1")
	m = runCmd(t, m, cmd)
	if !strings.Contains(m.notice, "deleted") {
		t.Fatalf("expected delete confirmation, got %q", m.notice)
	}

	msgs := alice.Snapshot().Messages[bob.Address()]
	if len(msgs) != 2 {
		t.Fatalf("expected both entries to survive, got %d", len(msgs))
	}
	if msgs[0].Body != "first, corrected" || !msgs[0].IsEdited {
		t.Fatalf("expected edit applied, got %+v", msgs[0])
	}
	if !msgs[1].IsDeleted {
		t.Fatalf("expected tombstone, got %+v", msgs[1])
	}
}

func TestChatCommandUsageErrors(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")

	m := newChatModel(alice, url)
	m.setSize(100, 30)

	cases := []struct{ input, want string }{
		{"/add onlyaddr", "usage: /add"},
		{"/name", "usage: /name"},
		{"/edit nope text", "usage: /edit"},
		{"/delete", "usage: /delete"},
		{"/bogus", "unknown command"},
	}
	for _, tc := range cases {
		var cmd tea.Cmd
		m, cmd = pressEnter(m, tc.input)
		if cmd != nil {
			t.Fatalf("%s: expected no command", tc.input)
		}
		if !strings.Contains(m.notice, tc.want) {
			t.Fatalf("%s: expected %q in notice, got %q", tc.input, tc.want, m.notice)
		}
	}
}

func TestChatUsersCommandListsRegistrations(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")
	registerUser(t, url, "bob")

	m := newChatModel(alice, url)
	m.setSize(100, 30)

	m, cmd := pressEnter(m, "/users")
	m = runCmd(t, m, cmd)
	if !strings.Contains(m.notice, "2 registered") {
		t.Fatalf("expected both users counted, got %q", m.notice)
	}
	if !strings.Contains(m.notice, "alice") || !strings.Contains(m.notice, "bob") {
		t.Fatalf("expected names in notice, got %q", m.notice)
	}
}

func TestChatCycleFriendWrapsAround(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")
	bob := registerUser(t, url, "bob")
	carol := registerUser(t, url, "carol")
	if err := alice.AddFriend(context.Background(), bob.Address(), "bob"); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	if err := alice.AddFriend(context.Background(), carol.Address(), "carol"); err != nil {
		t.Fatalf("add friend: %v", err)
	}
	alice.SetSelectedFriend(bob.Address())

	m := newChatModel(alice, url)
	m.setSize(100, 30)
	m.applySnapshot(alice.Snapshot())

	m2, cmd := m.cycleFriend(1)
	runCmd(t, m2, cmd)
	if alice.Snapshot().SelectedFriend != carol.Address() {
		t.Fatalf("expected selection to advance to carol")
	}

	m2.applySnapshot(alice.Snapshot())
	m3, cmd := m2.cycleFriend(1)
	runCmd(t, m3, cmd)
	if alice.Snapshot().SelectedFriend != bob.Address() {
		t.Fatalf("expected selection to wrap back to bob")
	}
}

func TestChatSidebarShowsUnread(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")

	m := newChatModel(alice, url)
	m.setSize(100, 30)

	snap := alice.Snapshot()
	snap.Friends = []chat.Friend{{PubKey: "0xfeed", Name: "bobby"}}
	snap.Unread = map[chat.Address]int{"0xfeed": 3}
	m.applySnapshot(snap)

	sidebar := m.renderSidebar()
	if !strings.Contains(sidebar, "bobby") || !strings.Contains(sidebar, "(3)") {
		t.Fatalf("expected unread badge in sidebar, got %q", sidebar)
	}
}

func TestChatEscClearsError(t *testing.T) {
	url := startTestGateway(t)
	alice := registerUser(t, url, "alice")

	m := newChatModel(alice, url)
	m.setSize(100, 30)
	m.notice = "stale"

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.notice != "" {
		t.Fatalf("expected notice cleared")
	}
	if alice.Snapshot().Err != "" {
		t.Fatalf("expected session error cleared")
	}
}

func TestShortAddress(t *testing.T) {
	if got := shortAddress("0xabc"); got != "0xabc" {
		t.Fatalf("short addresses stay intact, got %q", got)
	}
	long := chat.Address("0x0123456789abcdef0123456789abcdef")
	got := shortAddress(long)
	if !strings.HasPrefix(got, "0x012345") || !strings.HasSuffix(got, "cdef") {
		t.Fatalf("unexpected truncation %q", got)
	}
}
