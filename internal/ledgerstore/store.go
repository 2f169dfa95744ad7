// Package ledgerstore persists the chat ledger state for a gateway node:
// registered users, friendship edges and per-conversation message logs.
// The chain engine is the only writer; the query API reads directly.
package ledgerstore

import (
	"context"
	"errors"
	"strings"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

var ErrNotFound = errors.New("not found")

// PairKey identifies one conversation regardless of which side asks.
type PairKey string

// Pair returns the canonical key for the conversation between a and b.
func Pair(a, b chat.Address) PairKey {
	x := strings.ToLower(string(a))
	y := strings.ToLower(string(b))
	if x > y {
		x, y = y, x
	}
	return PairKey(x + "|" + y)
}

type Store interface {
	Close(ctx context.Context) error
	Migrate(ctx context.Context) error

	CreateUser(ctx context.Context, u chat.User) error
	GetUser(ctx context.Context, addr chat.Address) (chat.User, error)
	UpdateUsername(ctx context.Context, addr chat.Address, name string) error
	ListUsers(ctx context.Context) ([]chat.User, error)
	CountUsers(ctx context.Context) (int, error)

	// AddFriend records f in owner's friend list. Friendship symmetry is
	// the engine's job; the store keeps plain adjacency lists.
	AddFriend(ctx context.Context, owner chat.Address, f chat.Friend) error
	ListFriends(ctx context.Context, owner chat.Address) ([]chat.Friend, error)
	AreFriends(ctx context.Context, a, b chat.Address) (bool, error)

	AppendMessage(ctx context.Context, pair PairKey, m chat.Message) error
	// UpdateMessage replaces the message at a conversation index.
	UpdateMessage(ctx context.Context, pair PairKey, index int, m chat.Message) error
	ListMessages(ctx context.Context, pair PairKey) ([]chat.Message, error)
	GetMessage(ctx context.Context, pair PairKey, index int) (chat.Message, error)
	CountMessages(ctx context.Context, pair PairKey) (int, error)

	// NextMessageID allocates the next value of the global monotonic
	// message counter, starting at 1.
	NextMessageID(ctx context.Context) (uint64, error)
	// GlobalMessageID returns the last allocated id, 0 before any send.
	GlobalMessageID(ctx context.Context) (uint64, error)
}
