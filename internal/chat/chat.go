// Package chat defines the domain model shared by the ledger client, the
// synchronization state store and the gateway: users, friends, messages and
// the input constraints the contract enforces.
package chat

import "strings"

const (
	// MaxUsernameLen is the longest display name the contract accepts.
	MaxUsernameLen = 50
	// MaxMessageLen is the longest message body the contract accepts.
	MaxMessageLen = 1000
	// DeletedBody replaces the body of a soft-deleted message.
	DeletedBody = "[This message was deleted]"
)

// Address is an opaque ledger identity (0x-prefixed hex).
type Address string

// User is a registered account. The identity is immutable; the display
// name can change via a profile update.
type User struct {
	Name      string  `json:"name"`
	PubKey    Address `json:"pub_key"`
	CreatedAt int64   `json:"created_at"`
}

// Friend is one entry in a user's friend list.
type Friend struct {
	PubKey Address `json:"pub_key"`
	Name   string  `json:"name"`
}

// Message is one entry in a conversation. IDs are assigned by the ledger
// from a global counter, so they are unique across all conversations.
// A deleted message keeps its id and position; only the body and flags
// change.
type Message struct {
	ID        uint64  `json:"id"`
	Body      string  `json:"body"`
	Timestamp int64   `json:"timestamp"`
	Sender    Address `json:"sender"`
	IsDeleted bool    `json:"is_deleted"`
	IsEdited  bool    `json:"is_edited"`
	EditedAt  int64   `json:"edited_at"`
}

// Tombstone returns a copy of m marked deleted with the fixed placeholder
// body.
func (m Message) Tombstone(deletedAt int64) Message {
	m.Body = DeletedBody
	m.IsDeleted = true
	m.EditedAt = deletedAt
	return m
}

// ValidateUsername checks the display-name constraints locally, before any
// ledger round trip.
func ValidateUsername(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "username", Reason: "cannot be empty"}
	}
	if len(name) > MaxUsernameLen {
		return &ValidationError{Field: "username", Reason: "too long (max 50 chars)"}
	}
	return nil
}

// ValidateMessageBody checks the message-body constraints locally, before
// any ledger round trip.
func ValidateMessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Field: "message", Reason: "cannot be empty"}
	}
	if len(body) > MaxMessageLen {
		return &ValidationError{Field: "message", Reason: "too long (max 1000 chars)"}
	}
	return nil
}
