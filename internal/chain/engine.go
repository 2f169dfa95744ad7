// Package chain executes signed chat transactions against the ledger
// store. It is the single writer: every mutation is validated, applied,
// given a receipt, and announced on the event feed. Reads go through the
// store directly.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/ledgerstore"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

// Rejection reasons recorded on receipts. They travel to clients
// verbatim, so keep them stable.
const (
	ReasonNotRegistered     = "user not registered"
	ReasonAlreadyRegistered = "user already registered"
	ReasonFriendNotFound    = "friend not registered"
	ReasonSelfFriend        = "cannot add yourself"
	ReasonAlreadyFriends    = "already friends"
	ReasonNotFriends        = "not friends"
	ReasonIndexOutOfRange   = "message index out of range"
	ReasonNotSender         = "only the sender can modify a message"
	ReasonMessageDeleted    = "message already deleted"
)

// ErrBadEnvelope covers malformed or wrongly signed transactions. These
// never reach the ledger and get no receipt.
var ErrBadEnvelope = errors.New("bad transaction envelope")

// Receipt is the finalization record for one transaction.
type Receipt struct {
	TxHash       string
	Status       string
	Reason       string
	MessageID    uint64
	HasMessageID bool
	Timestamp    int64
}

// rejection carries a receipt reason through the op handlers.
type rejection struct{ reason string }

func (r rejection) Error() string { return r.reason }

func reject(reason string) error { return rejection{reason: reason} }

// Emitter receives ledger events as they are confirmed.
type Emitter interface {
	Emit(kind ledger.Kind, data any)
}

// NopEmitter drops events. Useful for tests and offline tools.
type NopEmitter struct{}

func (NopEmitter) Emit(ledger.Kind, any) {}

// Engine validates and applies transactions in submission order.
type Engine struct {
	store ledgerstore.Store
	emit  Emitter
	now   func() int64

	mu       sync.Mutex
	receipts map[string]Receipt
	nonces   map[string]string
}

func NewEngine(store ledgerstore.Store, emit Emitter) *Engine {
	if emit == nil {
		emit = NopEmitter{}
	}
	return &Engine{
		store:    store,
		emit:     emit,
		now:      func() int64 { return time.Now().Unix() },
		receipts: make(map[string]Receipt),
		nonces:   make(map[string]string),
	}
}

// Receipt returns the finalization record for a transaction hash.
func (e *Engine) Receipt(txHash string) (Receipt, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.receipts[txHash]
	return r, ok
}

// Submit verifies env, executes it, and returns the transaction hash.
// Ledger-rule violations finalize as rejected receipts; a non-nil error
// means the envelope itself was unusable. Resubmitting a nonce returns
// the original transaction's hash without re-executing.
func (e *Engine) Submit(ctx context.Context, env ledger.TxEnvelope) (string, error) {
	sender, err := verifyEnvelope(env)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if hash, ok := e.nonces[env.Nonce]; ok {
		return hash, nil
	}

	txHash := uuid.NewString()
	receipt := Receipt{TxHash: txHash, Status: ledger.TxConfirmed, Timestamp: e.now()}

	msgID, hasID, err := e.execute(ctx, sender, env.Op, env.Args)
	var rej rejection
	switch {
	case err == nil:
		receipt.MessageID = msgID
		receipt.HasMessageID = hasID
	case errors.As(err, &rej):
		receipt.Status = ledger.TxRejected
		receipt.Reason = rej.reason
	default:
		// Store failure: the transaction never finalized.
		return "", err
	}

	e.receipts[txHash] = receipt
	e.nonces[env.Nonce] = txHash
	return txHash, nil
}

func verifyEnvelope(env ledger.TxEnvelope) (chat.Address, error) {
	if env.Op == "" || env.Nonce == "" || env.PublicKey == "" || env.Signature == "" {
		return "", fmt.Errorf("%w: missing fields", ErrBadEnvelope)
	}
	sender, ok := wallet.Verify(env.PublicKey, env.Signature, ledger.SigningBytes(env.Op, env.Nonce, env.Args))
	if !ok {
		return "", fmt.Errorf("%w: signature does not verify", ErrBadEnvelope)
	}
	return sender, nil
}

func (e *Engine) execute(ctx context.Context, sender chat.Address, op string, args json.RawMessage) (uint64, bool, error) {
	switch op {
	case ledger.OpCreateUser:
		var a createUserArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		return 0, false, e.createUser(ctx, sender, a)
	case ledger.OpUpdateProfile:
		var a updateProfileArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		return 0, false, e.updateProfile(ctx, sender, a)
	case ledger.OpAddFriend:
		var a addFriendArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		return 0, false, e.addFriend(ctx, sender, a)
	case ledger.OpSendMessage:
		var a sendMessageArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		id, err := e.sendMessage(ctx, sender, a)
		return id, err == nil, err
	case ledger.OpEditMessage:
		var a editMessageArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		return 0, false, e.editMessage(ctx, sender, a)
	case ledger.OpDeleteMessage:
		var a deleteMessageArgs
		if err := decodeArgs(args, &a); err != nil {
			return 0, false, err
		}
		return 0, false, e.deleteMessage(ctx, sender, a)
	default:
		return 0, false, fmt.Errorf("%w: unknown op %q", ErrBadEnvelope, op)
	}
}

func decodeArgs(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode args: %v", ErrBadEnvelope, err)
	}
	return nil
}

type createUserArgs struct {
	Username string `json:"username"`
}

type updateProfileArgs struct {
	NewName string `json:"new_name"`
}

type addFriendArgs struct {
	Friend chat.Address `json:"friend"`
	Name   string       `json:"name"`
}

type sendMessageArgs struct {
	Friend  chat.Address `json:"friend"`
	Message string       `json:"message"`
}

type editMessageArgs struct {
	Friend     chat.Address `json:"friend"`
	Index      int          `json:"index"`
	NewMessage string       `json:"new_message"`
}

type deleteMessageArgs struct {
	Friend chat.Address `json:"friend"`
	Index  int          `json:"index"`
}

func (e *Engine) createUser(ctx context.Context, sender chat.Address, a createUserArgs) error {
	if err := chat.ValidateUsername(a.Username); err != nil {
		return reject(err.Error())
	}
	if _, err := e.store.GetUser(ctx, sender); err == nil {
		return reject(ReasonAlreadyRegistered)
	} else if !errors.Is(err, ledgerstore.ErrNotFound) {
		return err
	}

	now := e.now()
	if err := e.store.CreateUser(ctx, chat.User{Name: a.Username, PubKey: sender, CreatedAt: now}); err != nil {
		return err
	}
	e.emit.Emit(ledger.KindUserRegistered, userRegisteredPayload{
		User:      string(sender),
		Username:  a.Username,
		Timestamp: now,
	})
	return nil
}

func (e *Engine) updateProfile(ctx context.Context, sender chat.Address, a updateProfileArgs) error {
	if err := chat.ValidateUsername(a.NewName); err != nil {
		return reject(err.Error())
	}
	if err := e.store.UpdateUsername(ctx, sender, a.NewName); err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonNotRegistered)
		}
		return err
	}
	return nil
}

func (e *Engine) addFriend(ctx context.Context, sender chat.Address, a addFriendArgs) error {
	if err := chat.ValidateUsername(a.Name); err != nil {
		return reject(err.Error())
	}
	if a.Friend == sender {
		return reject(ReasonSelfFriend)
	}
	me, err := e.store.GetUser(ctx, sender)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonNotRegistered)
		}
		return err
	}
	if _, err := e.store.GetUser(ctx, a.Friend); err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonFriendNotFound)
		}
		return err
	}
	already, err := e.store.AreFriends(ctx, sender, a.Friend)
	if err != nil {
		return err
	}
	if already {
		return reject(ReasonAlreadyFriends)
	}

	// Friendship is symmetric: the counterpart sees the sender under the
	// sender's registered name.
	if err := e.store.AddFriend(ctx, sender, chat.Friend{PubKey: a.Friend, Name: a.Name}); err != nil {
		return err
	}
	if err := e.store.AddFriend(ctx, a.Friend, chat.Friend{PubKey: sender, Name: me.Name}); err != nil {
		return err
	}
	now := e.now()
	e.emit.Emit(ledger.KindFriendAdded, friendAddedPayload{
		User:       string(sender),
		Friend:     string(a.Friend),
		FriendName: a.Name,
		Timestamp:  now,
	})
	// One event per direction, so the counterpart's feed picks up the
	// new friendship without a refetch.
	e.emit.Emit(ledger.KindFriendAdded, friendAddedPayload{
		User:       string(a.Friend),
		Friend:     string(sender),
		FriendName: me.Name,
		Timestamp:  now,
	})
	return nil
}

func (e *Engine) sendMessage(ctx context.Context, sender chat.Address, a sendMessageArgs) (uint64, error) {
	if err := chat.ValidateMessageBody(a.Message); err != nil {
		return 0, reject(err.Error())
	}
	if err := e.requireFriends(ctx, sender, a.Friend); err != nil {
		return 0, err
	}

	id, err := e.store.NextMessageID(ctx)
	if err != nil {
		return 0, err
	}
	now := e.now()
	msg := chat.Message{ID: id, Body: a.Message, Timestamp: now, Sender: sender}
	if err := e.store.AppendMessage(ctx, ledgerstore.Pair(sender, a.Friend), msg); err != nil {
		return 0, err
	}
	e.emit.Emit(ledger.KindMessageSent, messageSentPayload{
		MessageID: counter(id),
		Sender:    string(sender),
		Recipient: string(a.Friend),
		Message:   a.Message,
		Timestamp: now,
	})
	return id, nil
}

func (e *Engine) editMessage(ctx context.Context, sender chat.Address, a editMessageArgs) error {
	if err := chat.ValidateMessageBody(a.NewMessage); err != nil {
		return reject(err.Error())
	}
	if err := e.requireFriends(ctx, sender, a.Friend); err != nil {
		return err
	}

	pair := ledgerstore.Pair(sender, a.Friend)
	msg, err := e.store.GetMessage(ctx, pair, a.Index)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonIndexOutOfRange)
		}
		return err
	}
	if msg.Sender != sender {
		return reject(ReasonNotSender)
	}
	if msg.IsDeleted {
		return reject(ReasonMessageDeleted)
	}

	now := e.now()
	msg.Body = a.NewMessage
	msg.IsEdited = true
	msg.EditedAt = now
	if err := e.store.UpdateMessage(ctx, pair, a.Index, msg); err != nil {
		return err
	}
	e.emit.Emit(ledger.KindMessageEdited, messageEditedPayload{
		MessageID:  counter(msg.ID),
		Sender:     string(sender),
		Recipient:  string(a.Friend),
		NewMessage: a.NewMessage,
		EditedAt:   now,
	})
	return nil
}

func (e *Engine) deleteMessage(ctx context.Context, sender chat.Address, a deleteMessageArgs) error {
	if err := e.requireFriends(ctx, sender, a.Friend); err != nil {
		return err
	}

	pair := ledgerstore.Pair(sender, a.Friend)
	msg, err := e.store.GetMessage(ctx, pair, a.Index)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonIndexOutOfRange)
		}
		return err
	}
	if msg.Sender != sender {
		return reject(ReasonNotSender)
	}
	if msg.IsDeleted {
		return reject(ReasonMessageDeleted)
	}

	now := e.now()
	if err := e.store.UpdateMessage(ctx, pair, a.Index, msg.Tombstone(now)); err != nil {
		return err
	}
	e.emit.Emit(ledger.KindMessageDeleted, messageDeletedPayload{
		MessageID: counter(msg.ID),
		Sender:    string(sender),
		DeletedAt: now,
	})
	return nil
}

// requireFriends checks that sender is registered and friends with
// friend, returning a rejection otherwise.
func (e *Engine) requireFriends(ctx context.Context, sender, friend chat.Address) error {
	if _, err := e.store.GetUser(ctx, sender); err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			return reject(ReasonNotRegistered)
		}
		return err
	}
	ok, err := e.store.AreFriends(ctx, sender, friend)
	if err != nil {
		return err
	}
	if !ok {
		return reject(ReasonNotFriends)
	}
	return nil
}
