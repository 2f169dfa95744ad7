// Package chatstate holds the render-ready mirror of the ledger. State only
// changes through the closed set of transitions in transitions.go, each a
// pure function from old state to new state; all I/O stays in the session
// layer that decides which transition to apply.
package chatstate

import "github.com/Lwan2205/chat-dapp/internal/chat"

// State is the root aggregate: everything the presentation layer reads.
// Conversations are keyed by the other party's address.
type State struct {
	CurrentUser    *chat.User
	AllUsers       []chat.User
	Friends        []chat.Friend
	Messages       map[chat.Address][]chat.Message
	SelectedFriend chat.Address
	Loading        bool
	Err            string
	Connected      bool
	Unread         map[chat.Address]int
}

// NewState returns the empty initial state.
func NewState() State {
	return State{
		Messages: map[chat.Address][]chat.Message{},
		Unread:   map[chat.Address]int{},
	}
}

// Clone returns a deep copy. Transitions never mutate shared backing
// storage, so snapshots handed out by the store stay stable.
func (s State) Clone() State {
	out := s
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	out.AllUsers = append([]chat.User(nil), s.AllUsers...)
	out.Friends = append([]chat.Friend(nil), s.Friends...)
	out.Messages = make(map[chat.Address][]chat.Message, len(s.Messages))
	for addr, msgs := range s.Messages {
		out.Messages[addr] = append([]chat.Message(nil), msgs...)
	}
	out.Unread = make(map[chat.Address]int, len(s.Unread))
	for addr, n := range s.Unread {
		out.Unread[addr] = n
	}
	return out
}

// conversation returns the message sequence for one friend, never nil.
func (s State) conversation(friend chat.Address) []chat.Message {
	return s.Messages[friend]
}

// withConversation returns a copy of s with one conversation replaced.
// The Messages map is copied so the old state stays intact.
func (s State) withConversation(friend chat.Address, msgs []chat.Message) State {
	out := s
	out.Messages = make(map[chat.Address][]chat.Message, len(s.Messages)+1)
	for addr, m := range s.Messages {
		out.Messages[addr] = m
	}
	out.Messages[friend] = msgs
	return out
}

// withUnread returns a copy of s with one unread counter replaced.
func (s State) withUnread(friend chat.Address, n int) State {
	out := s
	out.Unread = make(map[chat.Address]int, len(s.Unread)+1)
	for addr, c := range s.Unread {
		out.Unread[addr] = c
	}
	out.Unread[friend] = n
	return out
}
