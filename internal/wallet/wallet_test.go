package wallet

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAddressShape(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr := string(w.Address())
	if !strings.HasPrefix(addr, "0x") {
		t.Fatalf("address missing 0x prefix: %q", addr)
	}
	if len(addr) != 2+40 {
		t.Fatalf("address length = %d, want 42", len(addr))
	}
}

func TestSignAndVerify(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte("envelope bytes")
	sig := w.Sign(data)

	addr, ok := Verify(w.PublicKeyHex(), sig, data)
	if !ok {
		t.Fatal("valid signature rejected")
	}
	if addr != w.Address() {
		t.Fatalf("recovered address %q, want %q", addr, w.Address())
	}

	if _, ok := Verify(w.PublicKeyHex(), sig, []byte("tampered")); ok {
		t.Fatal("tampered payload accepted")
	}
	if _, ok := Verify("zz", sig, data); ok {
		t.Fatal("garbage public key accepted")
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, _ := New()
	b, _ := New()
	data := []byte("payload")
	sig := a.Sign(data)
	if _, ok := Verify(b.PublicKeyHex(), sig, data); ok {
		t.Fatal("signature verified against the wrong key")
	}
}

func TestLoadOrCreateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet_key.json")

	first, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	second, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate again: %v", err)
	}
	if first.Address() != second.Address() {
		t.Fatalf("identity not stable across loads: %q vs %q",
			first.Address(), second.Address())
	}
}

func TestLoadOrCreateReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet_key.json")
	if err := os.WriteFile(path, []byte("{garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	w, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if w.Address() == "" {
		t.Fatal("no wallet created over corrupt file")
	}
}
