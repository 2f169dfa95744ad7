package ledger

import "encoding/json"

// Operation names for state-mutating transactions. They appear inside
// signed envelopes, so both sides must agree on them exactly.
const (
	OpCreateUser    = "create_user"
	OpUpdateProfile = "update_profile"
	OpAddFriend     = "add_friend"
	OpSendMessage   = "send_message"
	OpEditMessage   = "edit_message"
	OpDeleteMessage = "delete_message"
)

// Transaction receipt statuses.
const (
	TxPending   = "pending"
	TxConfirmed = "confirmed"
	TxRejected  = "rejected"
)

// TxEnvelope is a signed state-mutating request. The signature covers
// op, nonce and the raw argument bytes.
type TxEnvelope struct {
	Op        string          `json:"op"`
	Nonce     string          `json:"nonce"`
	Args      json.RawMessage `json:"args"`
	PublicKey string          `json:"public_key"`
	Signature string          `json:"signature"`
}

// SigningBytes is the canonical byte string a transaction signature
// covers. The gateway recomputes it for verification.
func SigningBytes(op, nonce string, args []byte) []byte {
	return []byte(op + "\n" + nonce + "\n" + string(args))
}
