package ledgerclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
)

var _ ledger.Contract = (*Client)(nil)

// Argument payloads for the mutating operations. Field names are part of
// the signed envelope and must match what the gateway verifies.

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

// Read responses. Ledger counters cross the wire as decimal strings.

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

func parseCounter(op, field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse %s %q: %w", op, field, s, err)
	}
	return v, nil
}

func (c *Client) CreateUser(ctx context.Context, name string) error {
	if err := chat.ValidateUsername(name); err != nil {
		return err
	}
	_, err := c.submitTx(ctx, ledger.OpCreateUser, createUserArgs{Username: name})
	return err
}

func (c *Client) UpdateProfile(ctx context.Context, newName string) error {
	if err := chat.ValidateUsername(newName); err != nil {
		return err
	}
	_, err := c.submitTx(ctx, ledger.OpUpdateProfile, updateProfileArgs{NewName: newName})
	return err
}

func (c *Client) GetUsername(ctx context.Context, addr chat.Address) (string, error) {
	var resp usernameResponse
	err := c.doJSON(ctx, "get_username", http.MethodGet, "/users/"+url.PathEscape(string(addr))+"/name", nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Username, nil
}

func (c *Client) CheckUserExists(ctx context.Context, addr chat.Address) (bool, error) {
	var resp existsResponse
	err := c.doJSON(ctx, "check_user_exists", http.MethodGet, "/users/"+url.PathEscape(string(addr))+"/exists", nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) GetAllAppUsers(ctx context.Context) ([]chat.User, error) {
	var resp listUsersResponse
	if err := c.doJSON(ctx, "get_all_users", http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	users := make([]chat.User, 0, len(resp.Users))
	for _, u := range resp.Users {
		createdAt, err := parseCounter("get_all_users", "created_at", u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, chat.User{
			Name:      u.Name,
			PubKey:    chat.Address(u.PubKey),
			CreatedAt: int64(createdAt),
		})
	}
	return users, nil
}

func (c *Client) GetUserCount(ctx context.Context) (int, error) {
	var resp countResponse
	if err := c.doJSON(ctx, "get_user_count", http.MethodGet, "/users/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) AddFriend(ctx context.Context, friend chat.Address, name string) error {
	_, err := c.submitTx(ctx, ledger.OpAddFriend, addFriendArgs{Friend: friend, Name: name})
	return err
}

func (c *Client) AlreadyFriends(ctx context.Context, a, b chat.Address) (bool, error) {
	query := url.Values{}
	query.Set("a", string(a))
	query.Set("b", string(b))
	var resp friendshipResponse
	err := c.doJSON(ctx, "already_friends", http.MethodGet, "/friends/check?"+query.Encode(), nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Friends, nil
}

func (c *Client) GetFriends(ctx context.Context) ([]chat.Friend, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	var resp listFriendsResponse
	if err := c.doJSON(ctx, "get_friends", http.MethodGet, "/friends?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	friends := make([]chat.Friend, 0, len(resp.Friends))
	for _, f := range resp.Friends {
		friends = append(friends, chat.Friend{PubKey: chat.Address(f.PubKey), Name: f.Name})
	}
	return friends, nil
}

func (c *Client) GetFriendCount(ctx context.Context) (int, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return 0, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	var resp countResponse
	if err := c.doJSON(ctx, "get_friend_count", http.MethodGet, "/friends/count?"+query.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) GetFriendByIndex(ctx context.Context, index int) (chat.Friend, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return chat.Friend{}, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	var resp friendResponse
	path := "/friends/" + strconv.Itoa(index) + "?" + query.Encode()
	if err := c.doJSON(ctx, "get_friend_by_index", http.MethodGet, path, nil, &resp); err != nil {
		return chat.Friend{}, err
	}
	return chat.Friend{PubKey: chat.Address(resp.PubKey), Name: resp.Name}, nil
}

func (c *Client) SendMessage(ctx context.Context, friend chat.Address, body string) (ledger.SendResult, error) {
	if err := chat.ValidateMessageBody(body); err != nil {
		return ledger.SendResult{}, err
	}
	receipt, err := c.submitTx(ctx, ledger.OpSendMessage, sendMessageArgs{Friend: friend, Message: body})
	if err != nil {
		return ledger.SendResult{}, err
	}
	if receipt.MessageID == "" {
		// Confirmation without an id: the send took effect but the id is
		// unknown. Not an error.
		return ledger.SendResult{}, nil
	}
	id, err := parseCounter(ledger.OpSendMessage, "message_id", receipt.MessageID)
	if err != nil {
		return ledger.SendResult{}, nil
	}
	return ledger.SendResult{ID: id, IDKnown: true}, nil
}

func (c *Client) EditMessage(ctx context.Context, friend chat.Address, index int, newBody string) error {
	if err := chat.ValidateMessageBody(newBody); err != nil {
		return err
	}
	_, err := c.submitTx(ctx, ledger.OpEditMessage, editMessageArgs{Friend: friend, Index: index, NewMessage: newBody})
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, friend chat.Address, index int) error {
	_, err := c.submitTx(ctx, ledger.OpDeleteMessage, deleteMessageArgs{Friend: friend, Index: index})
	return err
}

func (c *Client) ReadMessages(ctx context.Context, friend chat.Address) ([]chat.Message, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	query.Set("friend", string(friend))
	var resp listMessagesResponse
	if err := c.doJSON(ctx, "read_messages", http.MethodGet, "/messages?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		decoded, err := decodeMessage("read_messages", m)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, decoded)
	}
	return msgs, nil
}

func (c *Client) GetMessage(ctx context.Context, friend chat.Address, index int) (chat.Message, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return chat.Message{}, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	query.Set("friend", string(friend))
	var resp messageResponse
	path := "/messages/" + strconv.Itoa(index) + "?" + query.Encode()
	if err := c.doJSON(ctx, "get_message", http.MethodGet, path, nil, &resp); err != nil {
		return chat.Message{}, err
	}
	return decodeMessage("get_message", resp)
}

func (c *Client) GetMessageCount(ctx context.Context, friend chat.Address) (int, error) {
	caller, err := c.callerAddr()
	if err != nil {
		return 0, err
	}
	query := url.Values{}
	query.Set("caller", string(caller))
	query.Set("friend", string(friend))
	var resp countResponse
	if err := c.doJSON(ctx, "get_message_count", http.MethodGet, "/messages/count?"+query.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) GetGlobalMessageID(ctx context.Context) (uint64, error) {
	var resp globalIDResponse
	if err := c.doJSON(ctx, "get_global_message_id", http.MethodGet, "/messages/global-id", nil, &resp); err != nil {
		return 0, err
	}
	return parseCounter("get_global_message_id", "id", resp.ID)
}

func decodeMessage(op string, m messageResponse) (chat.Message, error) {
	id, err := parseCounter(op, "id", m.ID)
	if err != nil {
		return chat.Message{}, err
	}
	ts, err := parseCounter(op, "timestamp", m.Timestamp)
	if err != nil {
		return chat.Message{}, err
	}
	editedAt, err := parseCounter(op, "edited_at", m.EditedAt)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        id,
		Body:      m.Message,
		Timestamp: int64(ts),
		Sender:    chat.Address(m.Sender),
		IsDeleted: m.IsDeleted,
		IsEdited:  m.IsEdited,
		EditedAt:  int64(editedAt),
	}, nil
}
