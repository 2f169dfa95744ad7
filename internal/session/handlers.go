package session

import (
	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/chatstate"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
)

// bindEventHandlers installs the corrective transitions driven by the
// contract's event stream. The feed carries every event on the ledger;
// handlers filter down to the ones involving the local user.
func (s *Session) bindEventHandlers() {
	s.registry.OnMessageSent(s.handleMessageSent)
	s.registry.OnMessageEdited(s.handleMessageEdited)
	s.registry.OnMessageDeleted(s.handleMessageDeleted)
	s.registry.OnFriendAdded(s.handleFriendAdded)
	s.registry.OnUserRegistered(s.handleUserRegistered)
}

func (s *Session) handleMessageSent(ev ledger.MessageSent) {
	me := s.Address()
	if ev.Sender != me && ev.Recipient != me {
		return
	}
	friend := ev.Sender
	if ev.Sender == me {
		friend = ev.Recipient
	}
	msg := chat.Message{
		ID:        ev.ID,
		Body:      ev.Body,
		Timestamp: ev.Timestamp,
		Sender:    ev.Sender,
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		// AddMessage upserts by id, so the echo of our own optimistic
		// append collapses into the existing entry.
		st = chatstate.AddMessage(st, friend, msg)
		if ev.Recipient == me && st.SelectedFriend != friend {
			st = chatstate.IncrementUnread(st, friend)
		}
		return st
	})
}

func (s *Session) handleMessageEdited(ev ledger.MessageEdited) {
	me := s.Address()
	if ev.Sender != me && ev.Recipient != me {
		return
	}
	friend := ev.Sender
	if ev.Sender == me {
		friend = ev.Recipient
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		existing, ok := findByID(st.Messages[friend], ev.ID)
		if !ok {
			return st
		}
		existing.Body = ev.NewBody
		existing.IsEdited = true
		existing.EditedAt = ev.EditedAt
		return chatstate.UpdateMessage(st, friend, ev.ID, existing)
	})
}

func (s *Session) handleMessageDeleted(ev ledger.MessageDeleted) {
	// The event names no recipient, so locate the conversation holding
	// the id. Ids are globally unique, so at most one matches.
	s.store.Apply(func(st chatstate.State) chatstate.State {
		for friend, msgs := range st.Messages {
			if _, ok := findByID(msgs, ev.ID); ok {
				return chatstate.DeleteMessage(st, friend, ev.ID, ev.DeletedAt)
			}
		}
		return st
	})
}

func (s *Session) handleFriendAdded(ev ledger.FriendAdded) {
	if ev.User != s.Address() {
		return
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		// The optimistic append from our own addFriend call may already
		// be present; AddFriend itself is append-one, so dedupe here.
		for _, f := range st.Friends {
			if f.PubKey == ev.Friend {
				return st
			}
		}
		return chatstate.AddFriend(st, chat.Friend{PubKey: ev.Friend, Name: ev.FriendName})
	})
}

func (s *Session) handleUserRegistered(ev ledger.UserRegistered) {
	s.store.Apply(func(st chatstate.State) chatstate.State {
		for _, u := range st.AllUsers {
			if u.PubKey == ev.User {
				return st
			}
		}
		return chatstate.AddUser(st, chat.User{
			Name:      ev.Username,
			PubKey:    ev.User,
			CreatedAt: ev.Timestamp,
		})
	})
}

func findByID(msgs []chat.Message, id uint64) (chat.Message, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return chat.Message{}, false
}
