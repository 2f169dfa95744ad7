package ledgerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

const (
	addrA = chat.Address("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB = chat.Address("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	addrC = chat.Address("0xcccccccccccccccccccccccccccccccccccccccc")
)

func TestPairIsCanonical(t *testing.T) {
	if Pair(addrA, addrB) != Pair(addrB, addrA) {
		t.Fatal("pair key depends on argument order")
	}
	if Pair(addrA, addrB) == Pair(addrA, addrC) {
		t.Fatal("distinct pairs share a key")
	}
	upper := chat.Address("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if Pair(upper, addrB) != Pair(addrA, addrB) {
		t.Fatal("pair key is case sensitive")
	}
}

// storeSuite exercises the Store contract against any implementation.
func storeSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		if _, err := s.GetUser(ctx, addrA); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetUser before create: %v, want ErrNotFound", err)
		}
		if err := s.CreateUser(ctx, chat.User{Name: "alice", PubKey: addrA, CreatedAt: 100}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if err := s.CreateUser(ctx, chat.User{Name: "bob", PubKey: addrB, CreatedAt: 200}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		u, err := s.GetUser(ctx, addrA)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if u.Name != "alice" || u.CreatedAt != 100 {
			t.Fatalf("unexpected user: %#v", u)
		}

		if err := s.UpdateUsername(ctx, addrA, "alicia"); err != nil {
			t.Fatalf("UpdateUsername: %v", err)
		}
		u, _ = s.GetUser(ctx, addrA)
		if u.Name != "alicia" {
			t.Fatalf("name after update = %q", u.Name)
		}
		if err := s.UpdateUsername(ctx, addrC, "x"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateUsername for unknown user: %v, want ErrNotFound", err)
		}

		users, err := s.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		if len(users) != 2 || users[0].PubKey != addrA || users[1].PubKey != addrB {
			t.Fatalf("unexpected user list: %#v", users)
		}
		n, err := s.CountUsers(ctx)
		if err != nil || n != 2 {
			t.Fatalf("CountUsers = %d, %v", n, err)
		}
	})

	t.Run("friends", func(t *testing.T) {
		ok, err := s.AreFriends(ctx, addrA, addrB)
		if err != nil || ok {
			t.Fatalf("AreFriends before add = %v, %v", ok, err)
		}
		if err := s.AddFriend(ctx, addrA, chat.Friend{PubKey: addrB, Name: "bob"}); err != nil {
			t.Fatalf("AddFriend: %v", err)
		}
		if err := s.AddFriend(ctx, addrB, chat.Friend{PubKey: addrA, Name: "alicia"}); err != nil {
			t.Fatalf("AddFriend reverse: %v", err)
		}

		ok, err = s.AreFriends(ctx, addrA, addrB)
		if err != nil || !ok {
			t.Fatalf("AreFriends after add = %v, %v", ok, err)
		}
		friends, err := s.ListFriends(ctx, addrA)
		if err != nil {
			t.Fatalf("ListFriends: %v", err)
		}
		if len(friends) != 1 || friends[0].PubKey != addrB || friends[0].Name != "bob" {
			t.Fatalf("unexpected friends: %#v", friends)
		}
	})

	t.Run("messages", func(t *testing.T) {
		pair := Pair(addrA, addrB)

		id, err := s.GlobalMessageID(ctx)
		if err != nil || id != 0 {
			t.Fatalf("GlobalMessageID before sends = %d, %v", id, err)
		}

		first, err := s.NextMessageID(ctx)
		if err != nil || first != 1 {
			t.Fatalf("first NextMessageID = %d, %v", first, err)
		}
		second, err := s.NextMessageID(ctx)
		if err != nil || second != 2 {
			t.Fatalf("second NextMessageID = %d, %v", second, err)
		}

		if err := s.AppendMessage(ctx, pair, chat.Message{ID: first, Body: "hi", Timestamp: 10, Sender: addrA}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		if err := s.AppendMessage(ctx, pair, chat.Message{ID: second, Body: "yo", Timestamp: 20, Sender: addrB}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}

		msgs, err := s.ListMessages(ctx, pair)
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		if len(msgs) != 2 || msgs[0].ID != 1 || msgs[1].ID != 2 {
			t.Fatalf("unexpected messages: %#v", msgs)
		}

		m, err := s.GetMessage(ctx, pair, 1)
		if err != nil {
			t.Fatalf("GetMessage: %v", err)
		}
		if m.Body != "yo" || m.Sender != addrB {
			t.Fatalf("unexpected message at index 1: %#v", m)
		}
		if _, err := s.GetMessage(ctx, pair, 5); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetMessage out of range: %v, want ErrNotFound", err)
		}

		m, err = s.GetMessage(ctx, pair, 0)
		if err != nil {
			t.Fatalf("GetMessage: %v", err)
		}
		tomb := m.Tombstone(30)
		if err := s.UpdateMessage(ctx, pair, 0, tomb); err != nil {
			t.Fatalf("UpdateMessage: %v", err)
		}
		m, _ = s.GetMessage(ctx, pair, 0)
		if !m.IsDeleted || m.Body != chat.DeletedBody || m.ID != first {
			t.Fatalf("unexpected tombstone: %#v", m)
		}
		if err := s.UpdateMessage(ctx, pair, 5, tomb); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UpdateMessage out of range: %v, want ErrNotFound", err)
		}

		n, err := s.CountMessages(ctx, pair)
		if err != nil || n != 2 {
			t.Fatalf("CountMessages = %d, %v", n, err)
		}
		n, err = s.CountMessages(ctx, Pair(addrA, addrC))
		if err != nil || n != 0 {
			t.Fatalf("CountMessages for empty pair = %d, %v", n, err)
		}

		id, err = s.GlobalMessageID(ctx)
		if err != nil || id != 2 {
			t.Fatalf("GlobalMessageID after sends = %d, %v", id, err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, NewMemoryStore())
}
