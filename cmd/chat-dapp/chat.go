package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/chatstate"
	"github.com/Lwan2205/chat-dapp/internal/session"
)

const sidebarWidth = 28

// feedConnectedMsg reports the outcome of the websocket feed dial.
type feedConnectedMsg struct {
	err error
}

// noticeMsg is a local status line, e.g. the result of a slash command.
type noticeMsg struct {
	text string
}

type chatModel struct {
	sess       *session.Session
	gatewayURL string

	snapshot chatstate.State
	notice   string

	viewport viewport.Model
	input    textinput.Model
	ready    bool

	width  int
	height int
}

func newChatModel(sess *session.Session, gatewayURL string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "message, or /help"
	ti.CharLimit = chat.MaxMessageLen
	return chatModel{
		sess:       sess,
		gatewayURL: gatewayURL,
		snapshot:   sess.Snapshot(),
		input:      ti,
	}
}

func (m *chatModel) enter() tea.Cmd {
	sess := m.sess
	url := m.gatewayURL
	focus := m.input.Focus()
	connect := func() tea.Msg {
		return feedConnectedMsg{err: sess.ConnectFeed(context.Background(), url)}
	}
	return tea.Batch(focus, connect)
}

func (m *chatModel) setSize(w, h int) {
	m.width = w
	m.height = h
	vpWidth := w - sidebarWidth - 3
	if vpWidth < 20 {
		vpWidth = 20
	}
	vpHeight := h - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}
	m.input.Width = vpWidth - 4
	m.refreshViewport()
}

func (m *chatModel) applySnapshot(st chatstate.State) {
	m.snapshot = st
	m.refreshViewport()
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m chatModel) Update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.notice = ""
			if strings.HasPrefix(text, "/") {
				return m.handleCommand(text)
			}
			return m.sendMessage(text)
		case "tab":
			return m.cycleFriend(1)
		case "shift+tab":
			return m.cycleFriend(-1)
		case "esc":
			m.notice = ""
			m.sess.ClearError()
			return m, nil
		}

	case feedConnectedMsg:
		if msg.err != nil {
			m.notice = "event feed unavailable: " + msg.err.Error()
		}
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// cycleFriend moves the conversation selection forward or backward through
// the friend list and pulls that conversation's history.
func (m chatModel) cycleFriend(dir int) (chatModel, tea.Cmd) {
	friends := m.snapshot.Friends
	if len(friends) == 0 {
		return m, nil
	}
	idx := 0
	for i, f := range friends {
		if f.PubKey == m.snapshot.SelectedFriend {
			idx = (i + dir + len(friends)) % len(friends)
			break
		}
	}
	target := friends[idx].PubKey
	sess := m.sess
	return m, func() tea.Msg {
		sess.SetSelectedFriend(target)
		if err := sess.FetchMessages(context.Background(), target); err != nil {
			return noticeMsg{text: err.Error()}
		}
		return nil
	}
}

func (m chatModel) sendMessage(body string) (chatModel, tea.Cmd) {
	friend := m.snapshot.SelectedFriend
	if friend == "" {
		m.notice = "no conversation selected, add a friend with /add"
		return m, nil
	}
	sess := m.sess
	return m, func() tea.Msg {
		sess.SendMessage(context.Background(), friend, body)
		return nil
	}
}

func (m chatModel) handleCommand(text string) (chatModel, tea.Cmd) {
	parts := strings.Fields(text)
	cmd, args := parts[0], parts[1:]
	sess := m.sess
	friend := m.snapshot.SelectedFriend

	switch cmd {
	case "/help":
		m.notice = "/add <address> <name>  /name <newname>  /edit <index> <text>  /delete <index>  /users  /quit"
		return m, nil

	case "/quit":
		return m, tea.Quit

	case "/add":
		if len(args) < 2 {
			m.notice = "usage: /add <address> <name>"
			return m, nil
		}
		addr := chat.Address(args[0])
		name := strings.Join(args[1:], " ")
		return m, func() tea.Msg {
			if err := sess.AddFriend(context.Background(), addr, name); err != nil {
				return nil
			}
			sess.SetSelectedFriend(addr)
			if err := sess.FetchMessages(context.Background(), addr); err != nil {
				return nil
			}
			return noticeMsg{text: "added " + name}
		}

	case "/name":
		if len(args) == 0 {
			m.notice = "usage: /name <newname>"
			return m, nil
		}
		name := strings.Join(args, " ")
		return m, func() tea.Msg {
			if err := sess.UpdateProfile(context.Background(), name); err != nil {
				return nil
			}
			return noticeMsg{text: "username updated"}
		}

	case "/edit":
		if len(args) < 2 {
			m.notice = "usage: /edit <index> <text>"
			return m, nil
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || friend == "" {
			m.notice = "usage: /edit <index> <text>"
			return m, nil
		}
		body := strings.Join(args[1:], " ")
		return m, func() tea.Msg {
			if err := sess.EditMessage(context.Background(), friend, idx, body); err != nil {
				return nil
			}
			return noticeMsg{text: fmt.Sprintf("message %d edited", idx)}
		}

	case "/delete":
		if len(args) != 1 {
			m.notice = "usage: /delete <index>"
			return m, nil
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil || friend == "" {
			m.notice = "usage: /delete <index>"
			return m, nil
		}
		return m, func() tea.Msg {
			if err := sess.DeleteMessage(context.Background(), friend, idx); err != nil {
				return nil
			}
			return noticeMsg{text: fmt.Sprintf("message %d deleted", idx)}
		}

	case "/users":
		return m, func() tea.Msg {
			if err := sess.FetchAllUsers(context.Background()); err != nil {
				return nil
			}
			users := sess.Snapshot().AllUsers
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Name)
			}
			return noticeMsg{text: fmt.Sprintf("%d registered: %s", len(users), strings.Join(names, ", "))}
		}
	}

	m.notice = "unknown command " + cmd + ", try /help"
	return m, nil
}

func (m chatModel) renderMessages() string {
	friend := m.snapshot.SelectedFriend
	if friend == "" {
		return subtleStyle.Render("No conversation selected.\nAdd a friend with /add <address> <name>, then tab through the sidebar.")
	}
	msgs := m.snapshot.Messages[friend]
	if len(msgs) == 0 {
		return subtleStyle.Render("No messages yet. Say hi.")
	}

	self := m.sess.Address()
	var b strings.Builder
	for i, msg := range msgs {
		sender := m.friendName(msg.Sender)
		style := peerMsgStyle
		if msg.Sender == self {
			sender = "you"
			style = ownMsgStyle
		}
		body := msg.Body
		if msg.IsDeleted {
			body = tombstoneStyle.Render(body)
		} else if msg.IsEdited {
			body += subtleStyle.Render(" (edited)")
		}
		fmt.Fprintf(&b, "%s %s %s\n", subtleStyle.Render(fmt.Sprintf("[%d]", i)), style.Render(sender+":"), body)
	}
	return b.String()
}

func (m chatModel) friendName(addr chat.Address) string {
	for _, f := range m.snapshot.Friends {
		if f.PubKey == addr {
			return f.Name
		}
	}
	return shortAddress(addr)
}

func (m chatModel) renderSidebar() string {
	var b strings.Builder
	b.WriteString(sidebarTitleStyle.Render("Friends"))
	b.WriteString("\n")
	if len(m.snapshot.Friends) == 0 {
		b.WriteString(subtleStyle.Render("(none yet)"))
	}
	for _, f := range m.snapshot.Friends {
		line := f.Name
		if n := m.snapshot.Unread[f.PubKey]; n > 0 {
			line += " " + unreadStyle.Render(fmt.Sprintf("(%d)", n))
		}
		if f.PubKey == m.snapshot.SelectedFriend {
			line = selectedFriendStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(b.String())
}

func (m chatModel) header() string {
	user := "unregistered"
	if m.snapshot.CurrentUser != nil {
		user = m.snapshot.CurrentUser.Name
	}
	status := errorStyle.Render("offline")
	if m.snapshot.Connected {
		status = connectedStyle.Render("online")
	}
	return headerStyle.Render(fmt.Sprintf(" chat-dapp  %s (%s)  %s", user, shortAddress(m.sess.Address()), status))
}

func (m chatModel) statusLine() string {
	if m.snapshot.Err != "" {
		return errorStyle.Render(m.snapshot.Err + "  (esc to dismiss)")
	}
	if m.notice != "" {
		return subtleStyle.Render(m.notice)
	}
	if m.snapshot.Loading {
		return subtleStyle.Render("working...")
	}
	return subtleStyle.Render("tab: next chat  /help: commands  ctrl+q: quit")
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}
	main := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), " ", m.renderSidebar())
	return strings.Join([]string{
		m.header(),
		separator(m.width),
		main,
		separator(m.width),
		m.input.View(),
		m.statusLine(),
	}, "\n")
}
