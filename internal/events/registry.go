package events

import (
	"sync"

	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/securelog"
)

// Registry keeps at most one listener per notification kind. Registering
// a kind that already has a listener replaces it, so a re-subscribe can
// never cause duplicate delivery. Listener failures are logged and
// swallowed; one broken callback must not stall delivery for the rest.
type Registry struct {
	mu  sync.Mutex
	seq uint64

	messageSent    listener[ledger.MessageSent]
	messageEdited  listener[ledger.MessageEdited]
	messageDeleted listener[ledger.MessageDeleted]
	friendAdded    listener[ledger.FriendAdded]
	userRegistered listener[ledger.UserRegistered]
}

type listener[T any] struct {
	fn    func(T)
	token uint64
}

// Handle identifies one registration. Cancel deregisters it; cancelling a
// handle that was already replaced or removed is a no-op.
type Handle struct {
	reg   *Registry
	kind  ledger.Kind
	token uint64
}

// Cancel removes the registration the handle refers to, if it is still
// the active one for its kind.
func (h Handle) Cancel() {
	if h.reg == nil {
		return
	}
	h.reg.mu.Lock()
	defer h.reg.mu.Unlock()
	switch h.kind {
	case ledger.KindMessageSent:
		if h.reg.messageSent.token == h.token {
			h.reg.messageSent = listener[ledger.MessageSent]{}
		}
	case ledger.KindMessageEdited:
		if h.reg.messageEdited.token == h.token {
			h.reg.messageEdited = listener[ledger.MessageEdited]{}
		}
	case ledger.KindMessageDeleted:
		if h.reg.messageDeleted.token == h.token {
			h.reg.messageDeleted = listener[ledger.MessageDeleted]{}
		}
	case ledger.KindFriendAdded:
		if h.reg.friendAdded.token == h.token {
			h.reg.friendAdded = listener[ledger.FriendAdded]{}
		}
	case ledger.KindUserRegistered:
		if h.reg.userRegistered.token == h.token {
			h.reg.userRegistered = listener[ledger.UserRegistered]{}
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) nextToken() uint64 {
	r.seq++
	return r.seq
}

// OnMessageSent installs the MessageSent listener, replacing any previous
// one.
func (r *Registry) OnMessageSent(fn func(ledger.MessageSent)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.nextToken()
	r.messageSent = listener[ledger.MessageSent]{fn: fn, token: tok}
	return Handle{reg: r, kind: ledger.KindMessageSent, token: tok}
}

// OnMessageEdited installs the MessageEdited listener, replacing any
// previous one.
func (r *Registry) OnMessageEdited(fn func(ledger.MessageEdited)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.nextToken()
	r.messageEdited = listener[ledger.MessageEdited]{fn: fn, token: tok}
	return Handle{reg: r, kind: ledger.KindMessageEdited, token: tok}
}

// OnMessageDeleted installs the MessageDeleted listener, replacing any
// previous one.
func (r *Registry) OnMessageDeleted(fn func(ledger.MessageDeleted)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.nextToken()
	r.messageDeleted = listener[ledger.MessageDeleted]{fn: fn, token: tok}
	return Handle{reg: r, kind: ledger.KindMessageDeleted, token: tok}
}

// OnFriendAdded installs the FriendAdded listener, replacing any previous
// one.
func (r *Registry) OnFriendAdded(fn func(ledger.FriendAdded)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.nextToken()
	r.friendAdded = listener[ledger.FriendAdded]{fn: fn, token: tok}
	return Handle{reg: r, kind: ledger.KindFriendAdded, token: tok}
}

// OnUserRegistered installs the UserRegistered listener, replacing any
// previous one.
func (r *Registry) OnUserRegistered(fn func(ledger.UserRegistered)) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok := r.nextToken()
	r.userRegistered = listener[ledger.UserRegistered]{fn: fn, token: tok}
	return Handle{reg: r, kind: ledger.KindUserRegistered, token: tok}
}

// RemoveAll deregisters every listener for every kind. Partial teardown
// is not supported.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messageSent = listener[ledger.MessageSent]{}
	r.messageEdited = listener[ledger.MessageEdited]{}
	r.messageDeleted = listener[ledger.MessageDeleted]{}
	r.friendAdded = listener[ledger.FriendAdded]{}
	r.userRegistered = listener[ledger.UserRegistered]{}
}

// Dispatch decodes one frame and delivers it to the registered listener
// for its kind, if any. Decode failures and listener panics are logged
// and swallowed.
func (r *Registry) Dispatch(frame Frame) {
	switch frame.Kind {
	case ledger.KindMessageSent:
		ev, err := decodeMessageSent(frame.Data)
		if err != nil {
			securelog.Error("events.decodeMessageSent", err)
			return
		}
		deliver(r, frame.Kind, ev, func() func(ledger.MessageSent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.messageSent.fn
		})
	case ledger.KindMessageEdited:
		ev, err := decodeMessageEdited(frame.Data)
		if err != nil {
			securelog.Error("events.decodeMessageEdited", err)
			return
		}
		deliver(r, frame.Kind, ev, func() func(ledger.MessageEdited) {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.messageEdited.fn
		})
	case ledger.KindMessageDeleted:
		ev, err := decodeMessageDeleted(frame.Data)
		if err != nil {
			securelog.Error("events.decodeMessageDeleted", err)
			return
		}
		deliver(r, frame.Kind, ev, func() func(ledger.MessageDeleted) {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.messageDeleted.fn
		})
	case ledger.KindFriendAdded:
		ev, err := decodeFriendAdded(frame.Data)
		if err != nil {
			securelog.Error("events.decodeFriendAdded", err)
			return
		}
		deliver(r, frame.Kind, ev, func() func(ledger.FriendAdded) {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.friendAdded.fn
		})
	case ledger.KindUserRegistered:
		ev, err := decodeUserRegistered(frame.Data)
		if err != nil {
			securelog.Error("events.decodeUserRegistered", err)
			return
		}
		deliver(r, frame.Kind, ev, func() func(ledger.UserRegistered) {
			r.mu.Lock()
			defer r.mu.Unlock()
			return r.userRegistered.fn
		})
	}
}

func deliver[T any](_ *Registry, kind ledger.Kind, ev T, lookup func() func(T)) {
	fn := lookup()
	if fn == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			securelog.Recovered("events.dispatch."+string(kind), v)
		}
	}()
	fn(ev)
}
