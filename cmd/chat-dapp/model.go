package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Lwan2205/chat-dapp/internal/chatstate"
	"github.com/Lwan2205/chat-dapp/internal/session"
)

type appState int

const (
	stateStarting appState = iota
	stateRegister
	stateChat
)

// initDoneMsg reports the outcome of the startup lookup against the ledger.
type initDoneMsg struct {
	registered bool
	err        error
}

// stateChangedMsg carries a fresh chat state snapshot from the session store.
type stateChangedMsg struct {
	snapshot chatstate.State
}

type rootModel struct {
	state    appState
	register registerModel
	chat     chatModel

	sess    *session.Session
	stateCh chan chatstate.State

	width  int
	height int
}

func newRootModel(sess *session.Session, gatewayURL string) rootModel {
	stateCh := make(chan chatstate.State, 8)
	sess.Store().OnChange(func(st chatstate.State) {
		pushState(stateCh, st)
	})
	return rootModel{
		state:    stateStarting,
		register: newRegisterModel(sess),
		chat:     newChatModel(sess, gatewayURL),
		sess:     sess,
		stateCh:  stateCh,
	}
}

// pushState never blocks the store's notify path: when the channel is full
// the oldest snapshot is discarded, the latest one always lands.
func pushState(ch chan chatstate.State, st chatstate.State) {
	for {
		select {
		case ch <- st:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func waitForState(ch chan chatstate.State) tea.Cmd {
	return func() tea.Msg {
		return stateChangedMsg{snapshot: <-ch}
	}
}

func (m rootModel) Init() tea.Cmd {
	sess := m.sess
	initialize := func() tea.Msg {
		err := sess.Initialize(context.Background())
		return initDoneMsg{registered: sess.Snapshot().CurrentUser != nil, err: err}
	}
	return tea.Batch(initialize, waitForState(m.stateCh))
}

func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.register.setSize(msg.Width, msg.Height)
		m.chat.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case initDoneMsg:
		if msg.registered {
			m.state = stateChat
			return m, m.chat.enter()
		}
		m.state = stateRegister
		return m, m.register.focus()

	case registeredMsg:
		m.state = stateChat
		return m, m.chat.enter()

	case stateChangedMsg:
		m.chat.applySnapshot(msg.snapshot)
		m.register.applySnapshot(msg.snapshot)
		return m, waitForState(m.stateCh)
	}

	var cmd tea.Cmd
	switch m.state {
	case stateRegister:
		m.register, cmd = m.register.Update(msg)
	case stateChat:
		m.chat, cmd = m.chat.Update(msg)
	}
	return m, cmd
}

func (m rootModel) View() string {
	switch m.state {
	case stateRegister:
		return m.register.View()
	case stateChat:
		return m.chat.View()
	default:
		return centerText("connecting to gateway...", m.width, m.height)
	}
}
