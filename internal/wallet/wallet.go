// Package wallet holds the local signing identity. Addresses are derived
// from the Ed25519 public key with Keccak-256, last 20 bytes, 0x-hex, so
// the gateway can recover and verify the caller identity from any signed
// envelope.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/Lwan2205/chat-dapp/internal/chat"
)

// Wallet is an Ed25519 keypair plus its derived ledger address.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	addr chat.Address
}

// New generates a fresh wallet from crypto/rand.
func New() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("wallet: generate key: %w", err)
	}
	return &Wallet{priv: priv, pub: pub, addr: AddressFromPublicKey(pub)}, nil
}

// fromPrivateKey rebuilds a wallet from a stored private key.
func fromPrivateKey(priv ed25519.PrivateKey) (*Wallet, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: bad private key length %d", len(priv))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{priv: priv, pub: pub, addr: AddressFromPublicKey(pub)}, nil
}

// Address returns the derived ledger identity.
func (w *Wallet) Address() chat.Address {
	return w.addr
}

// PublicKeyHex returns the hex-encoded public key carried in transaction
// envelopes.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.pub)
}

// Sign signs data and returns the hex-encoded signature.
func (w *Wallet) Sign(data []byte) string {
	return hex.EncodeToString(ed25519.Sign(w.priv, data))
}

// AddressFromPublicKey derives the ledger address for a public key.
func AddressFromPublicKey(pub ed25519.PublicKey) chat.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	sum := h.Sum(nil)
	return chat.Address("0x" + hex.EncodeToString(sum[len(sum)-20:]))
}

// Verify checks a hex signature over data against a hex public key and
// reports the derived address on success.
func Verify(pubHex, sigHex string, data []byte) (chat.Address, bool) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return "", false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return "", false
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return "", false
	}
	return AddressFromPublicKey(ed25519.PublicKey(pub)), true
}
