package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type storedKey struct {
	PrivateKey string `json:"private_key"`
}

// DefaultPath is where the wallet key lives when no explicit path is
// configured.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chat-dapp", "wallet_key.json"), nil
}

// LoadOrCreate loads the wallet at path, creating and persisting a new
// one when the file does not exist or cannot be parsed.
func LoadOrCreate(path string) (*Wallet, error) {
	if w, err := Load(path); err == nil {
		return w, nil
	}

	w, err := New()
	if err != nil {
		return nil, err
	}
	if path != "" {
		_ = Save(path, w)
	}
	return w, nil
}

// Load reads a wallet key file.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stored storedKey
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("wallet: parse key file: %w", err)
	}
	priv, err := hex.DecodeString(stored.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode key file: %w", err)
	}
	return fromPrivateKey(ed25519.PrivateKey(priv))
}

// Save writes the wallet key file with owner-only permissions.
func Save(path string, w *Wallet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("wallet: create key dir: %w", err)
	}
	data, err := json.Marshal(storedKey{PrivateKey: hex.EncodeToString(w.priv)})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("wallet: write key file: %w", err)
	}
	return nil
}
