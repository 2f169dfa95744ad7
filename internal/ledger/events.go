package ledger

import "github.com/Lwan2205/chat-dapp/internal/chat"

// Kind identifies one of the contract's notification types.
type Kind string

const (
	KindMessageSent    Kind = "MessageSent"
	KindMessageEdited  Kind = "MessageEdited"
	KindMessageDeleted Kind = "MessageDeleted"
	KindFriendAdded    Kind = "FriendAdded"
	KindUserRegistered Kind = "UserRegistered"
)

// MessageSent is emitted once per confirmed sendMessage.
type MessageSent struct {
	ID        uint64
	Sender    chat.Address
	Recipient chat.Address
	Body      string
	Timestamp int64
}

// MessageEdited is emitted once per confirmed editMessage.
type MessageEdited struct {
	ID        uint64
	Sender    chat.Address
	Recipient chat.Address
	NewBody   string
	EditedAt  int64
}

// MessageDeleted is emitted once per confirmed deleteMessage. The contract
// does not include the recipient, so consumers locate the conversation by
// message id.
type MessageDeleted struct {
	ID        uint64
	Sender    chat.Address
	DeletedAt int64
}

// FriendAdded is emitted twice per addFriend, once for each side of the
// symmetric relationship.
type FriendAdded struct {
	User       chat.Address
	Friend     chat.Address
	FriendName string
	Timestamp  int64
}

// UserRegistered is emitted once per createUser.
type UserRegistered struct {
	User      chat.Address
	Username  string
	Timestamp int64
}
