package ledgerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists the ledger in Postgres so a gateway node keeps
// its chain state across restarts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("db url is required")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	_ = ctx
	return s.db.Close()
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return NewMigrator(s.db, migrationsFS).Up(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, u chat.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (pub_key, name, created_at)
		VALUES ($1, $2, $3)`, u.PubKey, u.Name, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, addr chat.Address) (chat.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT pub_key, name, created_at
		FROM users WHERE pub_key = $1`, addr)
	var u chat.User
	if err := row.Scan(&u.PubKey, &u.Name, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat.User{}, ErrNotFound
		}
		return chat.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUsername(ctx context.Context, addr chat.Address, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = $2 WHERE pub_key = $1`, addr, name)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]chat.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pub_key, name, created_at
		FROM users ORDER BY created_at, pub_key`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []chat.User
	for rows.Next() {
		var u chat.User
		if err := rows.Scan(&u.PubKey, &u.Name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) AddFriend(ctx context.Context, owner chat.Address, f chat.Friend) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO friends (owner, friend, name)
		VALUES ($1, $2, $3)`, owner, f.PubKey, f.Name)
	if err != nil {
		return fmt.Errorf("insert friend: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFriends(ctx context.Context, owner chat.Address) ([]chat.Friend, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT friend, name
		FROM friends WHERE owner = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []chat.Friend
	for rows.Next() {
		var f chat.Friend
		if err := rows.Scan(&f.PubKey, &f.Name); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AreFriends(ctx context.Context, a, b chat.Address) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM friends
		WHERE owner = $1 AND friend = $2`, a, b).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, pair PairKey, m chat.Message) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO messages
		(pair, idx, id, sender, body, ts, is_deleted, is_edited, edited_at)
		SELECT $1, COUNT(*), $2, $3, $4, $5, $6, $7, $8 FROM messages WHERE pair = $1`,
		pair, m.ID, m.Sender, m.Body, m.Timestamp, m.IsDeleted, m.IsEdited, m.EditedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, pair PairKey, index int, m chat.Message) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages
		SET body = $3, ts = $4, is_deleted = $5, is_edited = $6, edited_at = $7
		WHERE pair = $1 AND idx = $2`,
		pair, index, m.Body, m.Timestamp, m.IsDeleted, m.IsEdited, m.EditedAt)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, pair PairKey) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, sender, body, ts, is_deleted, is_edited, edited_at
		FROM messages WHERE pair = $1 ORDER BY idx`, pair)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Body, &m.Timestamp, &m.IsDeleted, &m.IsEdited, &m.EditedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, pair PairKey, index int) (chat.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, sender, body, ts, is_deleted, is_edited, edited_at
		FROM messages WHERE pair = $1 AND idx = $2`, pair, index)
	var m chat.Message
	if err := row.Scan(&m.ID, &m.Sender, &m.Body, &m.Timestamp, &m.IsDeleted, &m.IsEdited, &m.EditedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chat.Message{}, ErrNotFound
		}
		return chat.Message{}, fmt.Errorf("select message: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) CountMessages(ctx context.Context, pair PairKey) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE pair = $1`, pair).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) NextMessageID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx, `UPDATE counters SET value = value + 1
		WHERE name = 'message_id' RETURNING value`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocate message id: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GlobalMessageID(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = 'message_id'`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("read message id: %w", err)
	}
	return id, nil
}
