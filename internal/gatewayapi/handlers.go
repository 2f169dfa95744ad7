// Package gatewayapi is the HTTP surface of a gateway node: transaction
// submission and receipts, ledger queries, the websocket event feed, and
// node health. Response shapes mirror the chain's conventions, so ledger
// counters are encoded as decimal strings.
package gatewayapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Lwan2205/chat-dapp/internal/chain"
	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/ledgerstore"
	"github.com/Lwan2205/chat-dapp/internal/securelog"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	engine  *chain.Engine
	store   ledgerstore.Store
	feed    http.HandlerFunc
	started time.Time

	// subscribers reports the live feed connection count for /status.
	subscribers func() int64
}

// FeedProvider is the websocket side of the gateway; the event hub
// implements it.
type FeedProvider interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
	SubscriberCount() int64
}

func NewHandler(engine *chain.Engine, store ledgerstore.Store, feed FeedProvider) *Handler {
	return &Handler{
		engine:      engine,
		store:       store,
		feed:        feed.HandleWS,
		started:     time.Now(),
		subscribers: feed.SubscriberCount,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/events", h.feed)
	mux.HandleFunc("/tx", h.handleSubmitTx)
	mux.HandleFunc("/tx/", h.handleReceipt)
	mux.HandleFunc("/users", h.handleListUsers)
	mux.HandleFunc("/users/count", h.handleUserCount)
	mux.HandleFunc("/users/", h.handleUser)
	mux.HandleFunc("/friends", h.handleListFriends)
	mux.HandleFunc("/friends/count", h.handleFriendCount)
	mux.HandleFunc("/friends/check", h.handleFriendshipCheck)
	mux.HandleFunc("/friends/", h.handleFriendByIndex)
	mux.HandleFunc("/messages", h.handleListMessages)
	mux.HandleFunc("/messages/count", h.handleMessageCount)
	mux.HandleFunc("/messages/global-id", h.handleGlobalMessageID)
	mux.HandleFunc("/messages/", h.handleMessageByIndex)
}

// Wire shapes. Counter fields cross as decimal strings.

type txSubmitResponse struct {
	TxHash string `json:"tx_hash"`
}

type receiptResponse struct {
	TxHash    string `json:"tx_hash"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type usernameResponse struct {
	Username string `json:"username"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type userResponse struct {
	Name      string `json:"name"`
	PubKey    string `json:"pub_key"`
	CreatedAt string `json:"created_at"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
}

type countResponse struct {
	Count int `json:"count"`
}

type friendResponse struct {
	PubKey string `json:"pub_key"`
	Name   string `json:"name"`
}

type listFriendsResponse struct {
	Friends []friendResponse `json:"friends"`
}

type friendshipResponse struct {
	Friends bool `json:"friends"`
}

type messageResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
	IsDeleted bool   `json:"is_deleted"`
	IsEdited  bool   `json:"is_edited"`
	EditedAt  string `json:"edited_at"`
}

type listMessagesResponse struct {
	Messages []messageResponse `json:"messages"`
}

type globalIDResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	Users          int     `json:"users"`
	GlobalMsgID    string  `json:"global_message_id"`
	FeedSubscribed int64   `json:"feed_subscribers"`
	CPUPercent     float64 `json:"cpu_percent"`
	RSSBytes       uint64  `json:"rss_bytes"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	users, err := h.store.CountUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	globalID, err := h.store.GlobalMessageID(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := statusResponse{
		UptimeSeconds:  int64(time.Since(h.started).Seconds()),
		Users:          users,
		GlobalMsgID:    formatCounter(globalID),
		FeedSubscribed: h.subscribers(),
	}
	// Process stats are best effort.
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if percent, err := proc.CPUPercent(); err == nil {
			resp.CPUPercent = percent
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			resp.RSSBytes = mem.RSS
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSubmitTx(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var env ledger.TxEnvelope
	if err := decodeJSON(w, r, &env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := h.engine.Submit(r.Context(), env)
	if err != nil {
		if errors.Is(err, chain.ErrBadEnvelope) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, txSubmitResponse{TxHash: hash})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	hash := strings.TrimPrefix(r.URL.Path, "/tx/")
	if hash == "" || strings.Contains(hash, "/") {
		writeError(w, http.StatusBadRequest, errors.New("transaction hash is required"))
		return
	}
	receipt, ok := h.engine.Receipt(hash)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown transaction"))
		return
	}
	resp := receiptResponse{
		TxHash:    receipt.TxHash,
		Status:    receipt.Status,
		Reason:    receipt.Reason,
		Timestamp: receipt.Timestamp,
	}
	if receipt.HasMessageID {
		resp.MessageID = formatCounter(receipt.MessageID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := listUsersResponse{Users: make([]userResponse, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, userResponse{
			Name:      u.Name,
			PubKey:    string(u.PubKey),
			CreatedAt: strconv.FormatInt(u.CreatedAt, 10),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUserCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	n, err := h.store.CountUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// handleUser serves /users/{addr}/name and /users/{addr}/exists.
func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, errors.New("unknown resource"))
		return
	}
	rawAddr, err := url.PathUnescape(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr := chat.Address(rawAddr)

	switch parts[1] {
	case "name":
		u, err := h.store.GetUser(r.Context(), addr)
		if err != nil {
			if errors.Is(err, ledgerstore.ErrNotFound) {
				writeError(w, http.StatusNotFound, errors.New("user not found"))
				return
			}
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, usernameResponse{Username: u.Name})
	case "exists":
		_, err := h.store.GetUser(r.Context(), addr)
		if err != nil && !errors.Is(err, ledgerstore.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, existsResponse{Exists: err == nil})
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown resource"))
	}
}

func (h *Handler) handleListFriends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	caller, ok := requireParam(w, r, "caller")
	if !ok {
		return
	}
	friends, err := h.store.ListFriends(r.Context(), chat.Address(caller))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := listFriendsResponse{Friends: make([]friendResponse, 0, len(friends))}
	for _, f := range friends {
		resp.Friends = append(resp.Friends, friendResponse{PubKey: string(f.PubKey), Name: f.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFriendCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	caller, ok := requireParam(w, r, "caller")
	if !ok {
		return
	}
	friends, err := h.store.ListFriends(r.Context(), chat.Address(caller))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: len(friends)})
}

func (h *Handler) handleFriendshipCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	a, ok := requireParam(w, r, "a")
	if !ok {
		return
	}
	b, ok := requireParam(w, r, "b")
	if !ok {
		return
	}
	friends, err := h.store.AreFriends(r.Context(), chat.Address(a), chat.Address(b))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, friendshipResponse{Friends: friends})
}

func (h *Handler) handleFriendByIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	caller, ok := requireParam(w, r, "caller")
	if !ok {
		return
	}
	index, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/friends/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("friend index must be an integer"))
		return
	}
	friends, err := h.store.ListFriends(r.Context(), chat.Address(caller))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if index < 0 || index >= len(friends) {
		writeError(w, http.StatusNotFound, errors.New("friend index out of range"))
		return
	}
	f := friends[index]
	writeJSON(w, http.StatusOK, friendResponse{PubKey: string(f.PubKey), Name: f.Name})
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pair, ok := requirePair(w, r)
	if !ok {
		return
	}
	msgs, err := h.store.ListMessages(r.Context(), pair)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := listMessagesResponse{Messages: make([]messageResponse, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, encodeMessage(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMessageCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pair, ok := requirePair(w, r)
	if !ok {
		return
	}
	n, err := h.store.CountMessages(r.Context(), pair)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *Handler) handleGlobalMessageID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := h.store.GlobalMessageID(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, globalIDResponse{ID: formatCounter(id)})
}

func (h *Handler) handleMessageByIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pair, ok := requirePair(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/messages/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("message index must be an integer"))
		return
	}
	msg, err := h.store.GetMessage(r.Context(), pair, index)
	if err != nil {
		if errors.Is(err, ledgerstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("message index out of range"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeMessage(msg))
}

func encodeMessage(m chat.Message) messageResponse {
	return messageResponse{
		ID:        formatCounter(m.ID),
		Message:   m.Body,
		Timestamp: strconv.FormatInt(m.Timestamp, 10),
		Sender:    string(m.Sender),
		IsDeleted: m.IsDeleted,
		IsEdited:  m.IsEdited,
		EditedAt:  strconv.FormatInt(m.EditedAt, 10),
	}
}

func formatCounter(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		writeError(w, http.StatusBadRequest, errors.New(name+" parameter is required"))
		return "", false
	}
	return v, true
}

func requirePair(w http.ResponseWriter, r *http.Request) (ledgerstore.PairKey, bool) {
	caller, ok := requireParam(w, r, "caller")
	if !ok {
		return "", false
	}
	friend, ok := requireParam(w, r, "friend")
	if !ok {
		return "", false
	}
	return ledgerstore.Pair(chat.Address(caller), chat.Address(friend)), true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("multiple json objects are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	securelog.Error("gatewayapi", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
