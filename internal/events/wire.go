// Package events subscribes to the gateway's notification feed and fans
// frames out to strongly-typed per-kind listeners. It never reorders or
// deduplicates: frames reach listeners in the order the transport emits
// them.
package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
)

// Frame is one notification as it crosses the wire.
type Frame struct {
	Kind ledger.Kind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// wireUint accepts a JSON number or a decimal string. The gateway encodes
// ledger counters as strings since they are uint256-sized on chain;
// listeners only ever see plain integers.
type wireUint uint64

func (n *wireUint) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("events: parse numeric field %q: %w", s, err)
	}
	*n = wireUint(v)
	return nil
}

type wireMessageSent struct {
	MessageID wireUint `json:"message_id"`
	Sender    string   `json:"sender"`
	Recipient string   `json:"recipient"`
	Message   string   `json:"message"`
	Timestamp wireUint `json:"timestamp"`
}

type wireMessageEdited struct {
	MessageID  wireUint `json:"message_id"`
	Sender     string   `json:"sender"`
	Recipient  string   `json:"recipient"`
	NewMessage string   `json:"new_message"`
	EditedAt   wireUint `json:"edited_at"`
}

type wireMessageDeleted struct {
	MessageID wireUint `json:"message_id"`
	Sender    string   `json:"sender"`
	DeletedAt wireUint `json:"deleted_at"`
}

type wireFriendAdded struct {
	User       string   `json:"user"`
	Friend     string   `json:"friend"`
	FriendName string   `json:"friend_name"`
	Timestamp  wireUint `json:"timestamp"`
}

type wireUserRegistered struct {
	User      string   `json:"user"`
	Username  string   `json:"username"`
	Timestamp wireUint `json:"timestamp"`
}

func decodeMessageSent(data json.RawMessage) (ledger.MessageSent, error) {
	var w wireMessageSent
	if err := json.Unmarshal(data, &w); err != nil {
		return ledger.MessageSent{}, err
	}
	return ledger.MessageSent{
		ID:        uint64(w.MessageID),
		Sender:    chat.Address(w.Sender),
		Recipient: chat.Address(w.Recipient),
		Body:      w.Message,
		Timestamp: int64(w.Timestamp),
	}, nil
}

func decodeMessageEdited(data json.RawMessage) (ledger.MessageEdited, error) {
	var w wireMessageEdited
	if err := json.Unmarshal(data, &w); err != nil {
		return ledger.MessageEdited{}, err
	}
	return ledger.MessageEdited{
		ID:        uint64(w.MessageID),
		Sender:    chat.Address(w.Sender),
		Recipient: chat.Address(w.Recipient),
		NewBody:   w.NewMessage,
		EditedAt:  int64(w.EditedAt),
	}, nil
}

func decodeMessageDeleted(data json.RawMessage) (ledger.MessageDeleted, error) {
	var w wireMessageDeleted
	if err := json.Unmarshal(data, &w); err != nil {
		return ledger.MessageDeleted{}, err
	}
	return ledger.MessageDeleted{
		ID:        uint64(w.MessageID),
		Sender:    chat.Address(w.Sender),
		DeletedAt: int64(w.DeletedAt),
	}, nil
}

func decodeFriendAdded(data json.RawMessage) (ledger.FriendAdded, error) {
	var w wireFriendAdded
	if err := json.Unmarshal(data, &w); err != nil {
		return ledger.FriendAdded{}, err
	}
	return ledger.FriendAdded{
		User:       chat.Address(w.User),
		Friend:     chat.Address(w.Friend),
		FriendName: w.FriendName,
		Timestamp:  int64(w.Timestamp),
	}, nil
}

func decodeUserRegistered(data json.RawMessage) (ledger.UserRegistered, error) {
	var w wireUserRegistered
	if err := json.Unmarshal(data, &w); err != nil {
		return ledger.UserRegistered{}, err
	}
	return ledger.UserRegistered{
		User:      chat.Address(w.User),
		Username:  w.Username,
		Timestamp: int64(w.Timestamp),
	}, nil
}
