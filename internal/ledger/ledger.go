// Package ledger defines the fixed function and event interface of the
// external chat contract. Everything durable lives behind this interface;
// the rest of the client only mirrors it.
package ledger

import (
	"context"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

// SendResult carries the ledger-assigned id of a confirmed message. The
// confirmation record does not always contain the id, so "unknown" is a
// distinct flag rather than a reserved id value.
type SendResult struct {
	ID      uint64
	IDKnown bool
}

// Contract is the ledger capability surface. Mutating calls return only
// after the ledger confirms finalization.
type Contract interface {
	// User management.
	CreateUser(ctx context.Context, name string) error
	UpdateProfile(ctx context.Context, newName string) error
	GetUsername(ctx context.Context, addr chat.Address) (string, error)
	CheckUserExists(ctx context.Context, addr chat.Address) (bool, error)
	GetAllAppUsers(ctx context.Context) ([]chat.User, error)
	GetUserCount(ctx context.Context) (int, error)

	// Friend management.
	AddFriend(ctx context.Context, friend chat.Address, name string) error
	AlreadyFriends(ctx context.Context, a, b chat.Address) (bool, error)
	GetFriends(ctx context.Context) ([]chat.Friend, error)
	GetFriendCount(ctx context.Context) (int, error)
	GetFriendByIndex(ctx context.Context, index int) (chat.Friend, error)

	// Messaging.
	SendMessage(ctx context.Context, friend chat.Address, body string) (SendResult, error)
	EditMessage(ctx context.Context, friend chat.Address, index int, newBody string) error
	DeleteMessage(ctx context.Context, friend chat.Address, index int) error
	ReadMessages(ctx context.Context, friend chat.Address) ([]chat.Message, error)
	GetMessage(ctx context.Context, friend chat.Address, index int) (chat.Message, error)
	GetMessageCount(ctx context.Context, friend chat.Address) (int, error)
	GetGlobalMessageID(ctx context.Context) (uint64, error)
}
