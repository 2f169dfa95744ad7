package chatstate

import "github.com/Lwan2205/chat-dapp/internal/chat"

// SetCurrentUser replaces the local account.
func SetCurrentUser(s State, u chat.User) State {
	s.CurrentUser = &u
	return s
}

// SetAllUsers replaces the known-users collection.
func SetAllUsers(s State, users []chat.User) State {
	s.AllUsers = append([]chat.User(nil), users...)
	return s
}

// AddUser appends one user to the known-users collection.
func AddUser(s State, u chat.User) State {
	s.AllUsers = append(append([]chat.User(nil), s.AllUsers...), u)
	return s
}

// SetFriends replaces the friend list.
func SetFriends(s State, friends []chat.Friend) State {
	s.Friends = append([]chat.Friend(nil), friends...)
	return s
}

// AddFriend appends one friend to the friend list.
func AddFriend(s State, f chat.Friend) State {
	s.Friends = append(append([]chat.Friend(nil), s.Friends...), f)
	return s
}

// SetMessages replaces the entire message sequence for one conversation.
func SetMessages(s State, friend chat.Address, msgs []chat.Message) State {
	copied := make([]chat.Message, len(msgs))
	copy(copied, msgs)
	return s.withConversation(friend, copied)
}

// AddMessage upserts one message into one conversation, keyed by the
// ledger-assigned id. An id already present is replaced in place rather
// than appended again, so the optimistic copy of a local send and the
// echo of its own MessageSent event collapse into a single entry.
func AddMessage(s State, friend chat.Address, msg chat.Message) State {
	old := s.conversation(friend)
	for i, m := range old {
		if m.ID == msg.ID {
			msgs := append([]chat.Message(nil), old...)
			msgs[i] = msg
			return s.withConversation(friend, msgs)
		}
	}
	return s.withConversation(friend, append(append([]chat.Message(nil), old...), msg))
}

// UpdateMessage replaces the message whose id matches within one
// conversation. An absent id is a silent no-op.
func UpdateMessage(s State, friend chat.Address, id uint64, msg chat.Message) State {
	old := s.conversation(friend)
	for i, m := range old {
		if m.ID == id {
			msgs := append([]chat.Message(nil), old...)
			msgs[i] = msg
			return s.withConversation(friend, msgs)
		}
	}
	return s
}

// DeleteMessage marks the message whose id matches as deleted, replacing
// its body with the fixed tombstone. The message keeps its id and
// position. An absent id is a silent no-op; a second application leaves
// the state unchanged.
func DeleteMessage(s State, friend chat.Address, id uint64, deletedAt int64) State {
	old := s.conversation(friend)
	for i, m := range old {
		if m.ID == id {
			if m.IsDeleted {
				return s
			}
			msgs := append([]chat.Message(nil), old...)
			msgs[i] = m.Tombstone(deletedAt)
			return s.withConversation(friend, msgs)
		}
	}
	return s
}

// SetSelectedFriend changes which conversation is active. The zero
// Address means none.
func SetSelectedFriend(s State, friend chat.Address) State {
	s.SelectedFriend = friend
	return s
}

// IncrementUnread bumps the unread counter for one conversation.
func IncrementUnread(s State, friend chat.Address) State {
	return s.withUnread(friend, s.Unread[friend]+1)
}

// ResetUnread zeroes the unread counter for one conversation.
func ResetUnread(s State, friend chat.Address) State {
	return s.withUnread(friend, 0)
}

// SetLoading sets the round-trip-in-progress flag.
func SetLoading(s State, loading bool) State {
	s.Loading = loading
	return s
}

// SetError replaces the user-visible error string. Empty means none.
func SetError(s State, msg string) State {
	s.Err = msg
	return s
}

// SetConnected sets the session connectivity flag.
func SetConnected(s State, connected bool) State {
	s.Connected = connected
	return s
}

// ResetAll returns to the empty initial state.
func ResetAll(State) State {
	return NewState()
}
