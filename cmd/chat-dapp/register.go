package main

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/chatstate"
	"github.com/Lwan2205/chat-dapp/internal/session"
)

// registeredMsg tells the root model the account now exists on the ledger.
type registeredMsg struct{}

type registerFailedMsg struct {
	reason string
}

type registerModel struct {
	sess  *session.Session
	input textinput.Model

	submitting bool
	errText    string

	width  int
	height int
}

func newRegisterModel(sess *session.Session) registerModel {
	ti := textinput.New()
	ti.Placeholder = "username"
	ti.CharLimit = chat.MaxUsernameLen
	ti.Width = 32
	return registerModel{sess: sess, input: ti}
}

func (m *registerModel) focus() tea.Cmd {
	return m.input.Focus()
}

func (m *registerModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *registerModel) applySnapshot(st chatstate.State) {
	if st.Err != "" {
		m.errText = st.Err
	}
}

func (m registerModel) submit() tea.Cmd {
	sess := m.sess
	name := m.input.Value()
	return func() tea.Msg {
		if err := sess.CreateUser(context.Background(), name); err != nil {
			return registerFailedMsg{reason: err.Error()}
		}
		return registeredMsg{}
	}
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.submitting {
			if err := chat.ValidateUsername(m.input.Value()); err != nil {
				m.errText = err.Error()
				return m, nil
			}
			m.submitting = true
			m.errText = ""
			return m, m.submit()
		}

	case registerFailedMsg:
		m.submitting = false
		m.errText = msg.reason
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m registerModel) View() string {
	title := titleStyle.Render("chat-dapp")
	subtitle := subtleStyle.Render("wallet " + shortAddress(m.sess.Address()))
	prompt := "Pick a username to register on the ledger:"
	body := title + "\n" + subtitle + "\n\n" + prompt + "\n\n" + m.input.View()
	if m.submitting {
		body += "\n\n" + subtleStyle.Render("waiting for confirmation...")
	}
	if m.errText != "" {
		body += "\n\n" + errorStyle.Render(m.errText)
	}
	return centerBlock(body, m.width, m.height)
}
