package chain

import "strconv"

// Event payloads as they appear on the feed. Ledger counters are encoded
// as decimal strings since they are uint256-sized on chain.

type counter uint64

func (c counter) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(c), 10))), nil
}

type messageSentPayload struct {
	MessageID counter `json:"message_id"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Message   string  `json:"message"`
	Timestamp int64   `json:"timestamp"`
}

type messageEditedPayload struct {
	MessageID  counter `json:"message_id"`
	Sender     string  `json:"sender"`
	Recipient  string  `json:"recipient"`
	NewMessage string  `json:"new_message"`
	EditedAt   int64   `json:"edited_at"`
}

type messageDeletedPayload struct {
	MessageID counter `json:"message_id"`
	Sender    string  `json:"sender"`
	DeletedAt int64   `json:"deleted_at"`
}

type friendAddedPayload struct {
	User       string `json:"user"`
	Friend     string `json:"friend"`
	FriendName string `json:"friend_name"`
	Timestamp  int64  `json:"timestamp"`
}

type userRegisteredPayload struct {
	User      string `json:"user"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}
