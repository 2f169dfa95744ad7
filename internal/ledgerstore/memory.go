package ledgerstore

import (
	"context"
	"sort"
	"sync"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the ledger state in process memory. Used by dev
// nodes and tests; state is lost on shutdown.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[chat.Address]chat.User
	friends   map[chat.Address][]chat.Friend
	messages  map[PairKey][]chat.Message
	messageID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[chat.Address]chat.User),
		friends:  make(map[chat.Address][]chat.Friend),
		messages: make(map[PairKey][]chat.Message),
	}
}

func (s *MemoryStore) Close(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u chat.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.PubKey] = u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, addr chat.Address) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[addr]
	if !ok {
		return chat.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdateUsername(_ context.Context, addr chat.Address, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[addr]
	if !ok {
		return ErrNotFound
	}
	u.Name = name
	s.users[addr] = u
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) AddFriend(_ context.Context, owner chat.Address, f chat.Friend) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[owner] = append(s.friends[owner], f)
	return nil
}

func (s *MemoryStore) ListFriends(_ context.Context, owner chat.Address) ([]chat.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Friend(nil), s.friends[owner]...), nil
}

func (s *MemoryStore) AreFriends(_ context.Context, a, b chat.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.friends[a] {
		if f.PubKey == b {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, pair PairKey, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[pair] = append(s.messages[pair], m)
	return nil
}

func (s *MemoryStore) UpdateMessage(_ context.Context, pair PairKey, index int, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[pair]
	if index < 0 || index >= len(msgs) {
		return ErrNotFound
	}
	msgs[index] = m
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, pair PairKey) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message(nil), s.messages[pair]...), nil
}

func (s *MemoryStore) GetMessage(_ context.Context, pair PairKey, index int) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[pair]
	if index < 0 || index >= len(msgs) {
		return chat.Message{}, ErrNotFound
	}
	return msgs[index], nil
}

func (s *MemoryStore) CountMessages(_ context.Context, pair PairKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[pair]), nil
}

func (s *MemoryStore) NextMessageID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageID++
	return s.messageID, nil
}

func (s *MemoryStore) GlobalMessageID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageID, nil
}
