// Package session is the facade the presentation layer talks to. It owns
// the ledger contract client, the event registry and the state store, and
// decides which store transition to apply when. Operations update the
// store optimistically on confirmation; the echoed contract events apply
// the same (or corrective) transitions, so the store converges on the
// ledger either way.
package session

import (
	"context"
	"time"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/chatstate"
	"github.com/Lwan2205/chat-dapp/internal/events"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/securelog"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

// Fixed user-visible error strings, one per action. Underlying errors are
// logged, never shown raw.
const (
	errInit          = "Failed to initialize chat"
	errCreateUser    = "Failed to create user"
	errUpdateProfile = "Failed to update profile"
	errFetchUser     = "Failed to fetch user info"
	errFetchUsers    = "Failed to fetch users"
	errAddFriend     = "Failed to add friend"
	errFetchFriends  = "Failed to fetch friends"
	errSendMessage   = "Failed to send message"
	errFetchMessages = "Failed to fetch messages"
	errEditMessage   = "Failed to edit message"
	errDeleteMessage = "Failed to delete message"
)

// Session binds one wallet identity to one gateway-backed contract and
// mirrors the ledger into a state store. Construct once at startup and
// close on shutdown.
type Session struct {
	contract ledger.Contract
	wallet   *wallet.Wallet
	store    *chatstate.Store
	registry *events.Registry
	stream   *events.Stream

	now func() int64
}

// New builds a session. The event listeners are bound immediately; frames
// only flow once a feed is attached.
func New(contract ledger.Contract, w *wallet.Wallet) *Session {
	s := &Session{
		contract: contract,
		wallet:   w,
		store:    chatstate.NewStore(),
		registry: events.NewRegistry(),
		now:      func() int64 { return time.Now().Unix() },
	}
	s.bindEventHandlers()
	return s
}

// Store exposes the state store for change subscriptions.
func (s *Session) Store() *chatstate.Store {
	return s.store
}

// Snapshot returns the current view state.
func (s *Session) Snapshot() chatstate.State {
	return s.store.Snapshot()
}

// Address returns the local wallet identity.
func (s *Session) Address() chat.Address {
	if s.wallet == nil {
		return ""
	}
	return s.wallet.Address()
}

// ConnectFeed dials the gateway event feed and pumps frames into the
// registry until the stream closes.
func (s *Session) ConnectFeed(ctx context.Context, gatewayURL string) error {
	stream, err := events.Dial(ctx, gatewayURL)
	if err != nil {
		return err
	}
	s.stream = stream
	ch := make(chan events.Frame, 64)
	go stream.ReadLoop(ch)
	go s.pump(ch)
	return nil
}

// AttachFrames pumps an externally produced frame channel into the
// registry. Used by tests and alternative transports.
func (s *Session) AttachFrames(ch <-chan events.Frame) {
	go s.pump(ch)
}

func (s *Session) pump(ch <-chan events.Frame) {
	for frame := range ch {
		s.registry.Dispatch(frame)
	}
}

// Close tears down every event listener and the feed. The store keeps its
// last state for final rendering.
func (s *Session) Close() {
	s.registry.RemoveAll()
	if s.stream != nil {
		s.stream.Close()
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetConnected(st, false)
	})
}

// fail records the fixed user-visible error string for an action and logs
// the underlying cause.
func (s *Session) fail(op, userMsg string, err error) {
	securelog.Error(op, err)
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetError(st, userMsg)
	})
}

func (s *Session) setLoading(v bool) {
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetLoading(st, v)
	})
}

// Initialize loads the current account and its friend and user lists if
// the wallet is already registered on the ledger.
func (s *Session) Initialize(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	exists, err := s.contract.CheckUserExists(ctx, s.Address())
	if err != nil {
		s.fail("session.initialize", errInit, err)
		return err
	}
	if !exists {
		return nil
	}

	name, err := s.contract.GetUsername(ctx, s.Address())
	if err != nil {
		s.fail("session.initialize", errInit, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetCurrentUser(st, chat.User{
			Name:      name,
			PubKey:    s.Address(),
			CreatedAt: s.now(),
		})
	})

	friends, err := s.contract.GetFriends(ctx)
	if err != nil {
		s.fail("session.initialize", errInit, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetFriends(st, friends)
	})

	users, err := s.contract.GetAllAppUsers(ctx)
	if err != nil {
		s.fail("session.initialize", errInit, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		st = chatstate.SetAllUsers(st, users)
		return chatstate.SetConnected(st, true)
	})
	return nil
}

// CreateUser registers the wallet on the ledger and optimistically sets
// the current account.
func (s *Session) CreateUser(ctx context.Context, username string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.contract.CreateUser(ctx, username); err != nil {
		s.fail("session.createUser", errCreateUser, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		st = chatstate.SetCurrentUser(st, chat.User{
			Name:      username,
			PubKey:    s.Address(),
			CreatedAt: s.now(),
		})
		return chatstate.SetConnected(st, true)
	})
	return nil
}

// UpdateProfile renames the current account.
func (s *Session) UpdateProfile(ctx context.Context, newName string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.contract.UpdateProfile(ctx, newName); err != nil {
		s.fail("session.updateProfile", errUpdateProfile, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		if st.CurrentUser == nil {
			return st
		}
		u := *st.CurrentUser
		u.Name = newName
		return chatstate.SetCurrentUser(st, u)
	})
	return nil
}

// FetchCurrentUser refreshes the current account from the ledger.
func (s *Session) FetchCurrentUser(ctx context.Context) error {
	exists, err := s.contract.CheckUserExists(ctx, s.Address())
	if err != nil {
		s.fail("session.fetchCurrentUser", errFetchUser, err)
		return err
	}
	if !exists {
		return nil
	}
	name, err := s.contract.GetUsername(ctx, s.Address())
	if err != nil {
		s.fail("session.fetchCurrentUser", errFetchUser, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetCurrentUser(st, chat.User{
			Name:      name,
			PubKey:    s.Address(),
			CreatedAt: s.now(),
		})
	})
	return nil
}

// FetchAllUsers refreshes the known-users collection.
func (s *Session) FetchAllUsers(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	users, err := s.contract.GetAllAppUsers(ctx)
	if err != nil {
		s.fail("session.fetchAllUsers", errFetchUsers, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetAllUsers(st, users)
	})
	return nil
}

// AddFriend records a friendship on the ledger and appends the friend
// optimistically.
func (s *Session) AddFriend(ctx context.Context, friend chat.Address, name string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.contract.AddFriend(ctx, friend, name); err != nil {
		s.fail("session.addFriend", errAddFriend, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.AddFriend(st, chat.Friend{PubKey: friend, Name: name})
	})
	return nil
}

// FetchFriends refreshes the friend list.
func (s *Session) FetchFriends(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	friends, err := s.contract.GetFriends(ctx)
	if err != nil {
		s.fail("session.fetchFriends", errFetchFriends, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetFriends(st, friends)
	})
	return nil
}

// CheckFriendship reports whether the local user and friend are already
// friends on the ledger. Failures read as "not friends".
func (s *Session) CheckFriendship(ctx context.Context, friend chat.Address) bool {
	if s.Snapshot().CurrentUser == nil {
		return false
	}
	friends, err := s.contract.AlreadyFriends(ctx, s.Address(), friend)
	if err != nil {
		securelog.Error("session.checkFriendship", err)
		return false
	}
	return friends
}

// SendMessage submits a message and optimistically appends it once the
// ledger confirms. The result is nil on failure (the error string is
// already in the store); a non-nil result with IDKnown false means the
// send took effect but the confirmation carried no id.
func (s *Session) SendMessage(ctx context.Context, friend chat.Address, body string) *ledger.SendResult {
	res, err := s.contract.SendMessage(ctx, friend, body)
	if err != nil {
		s.fail("session.sendMessage", errSendMessage, err)
		return nil
	}
	if res.IDKnown {
		msg := chat.Message{
			ID:        res.ID,
			Body:      body,
			Timestamp: s.now(),
			Sender:    s.Address(),
		}
		s.store.Apply(func(st chatstate.State) chatstate.State {
			return chatstate.AddMessage(st, friend, msg)
		})
	}
	return &res
}

// FetchMessages replaces one conversation from the ledger and clears its
// unread counter.
func (s *Session) FetchMessages(ctx context.Context, friend chat.Address) error {
	s.setLoading(true)
	defer s.setLoading(false)

	msgs, err := s.contract.ReadMessages(ctx, friend)
	if err != nil {
		s.fail("session.fetchMessages", errFetchMessages, err)
		return err
	}
	s.store.Apply(func(st chatstate.State) chatstate.State {
		st = chatstate.SetMessages(st, friend, msgs)
		return chatstate.ResetUnread(st, friend)
	})
	return nil
}

// EditMessage edits the message at index within one conversation. The
// contract addresses messages by conversation index; the store transition
// is keyed by the stable message id found at that index.
func (s *Session) EditMessage(ctx context.Context, friend chat.Address, index int, newBody string) error {
	if err := s.contract.EditMessage(ctx, friend, index, newBody); err != nil {
		s.fail("session.editMessage", errEditMessage, err)
		return err
	}
	snap := s.Snapshot()
	msgs := snap.Messages[friend]
	if index < 0 || index >= len(msgs) {
		return nil
	}
	edited := msgs[index]
	edited.Body = newBody
	edited.IsEdited = true
	edited.EditedAt = s.now()
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.UpdateMessage(st, friend, edited.ID, edited)
	})
	return nil
}

// DeleteMessage soft-deletes the message at index within one conversation.
func (s *Session) DeleteMessage(ctx context.Context, friend chat.Address, index int) error {
	if err := s.contract.DeleteMessage(ctx, friend, index); err != nil {
		s.fail("session.deleteMessage", errDeleteMessage, err)
		return err
	}
	snap := s.Snapshot()
	msgs := snap.Messages[friend]
	if index < 0 || index >= len(msgs) {
		return nil
	}
	id := msgs[index].ID
	deletedAt := s.now()
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.DeleteMessage(st, friend, id, deletedAt)
	})
	return nil
}

// SetSelectedFriend switches the active conversation and clears its
// unread counter.
func (s *Session) SetSelectedFriend(friend chat.Address) {
	s.store.Apply(func(st chatstate.State) chatstate.State {
		st = chatstate.SetSelectedFriend(st, friend)
		if friend != "" {
			st = chatstate.ResetUnread(st, friend)
		}
		return st
	})
}

// ClearError clears the user-visible error string.
func (s *Session) ClearError() {
	s.store.Apply(func(st chatstate.State) chatstate.State {
		return chatstate.SetError(st, "")
	})
}
