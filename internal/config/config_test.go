package config

import (
	"testing"
)

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("CHATDAPP_LISTEN_ADDR", ":9000")
	t.Setenv("CHATDAPP_DB_URL", "postgres://user@localhost/chatdapp")
	t.Setenv("CHATDAPP_TLS_CERT", "/tmp/cert.pem")
	t.Setenv("CHATDAPP_TLS_KEY", "/tmp/key.pem")

	cfg := LoadServerFromEnv()
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DBURL != "postgres://user@localhost/chatdapp" {
		t.Fatalf("DBURL = %q", cfg.DBURL)
	}
	if cfg.TLSCertPath != "/tmp/cert.pem" {
		t.Fatalf("TLSCertPath = %q", cfg.TLSCertPath)
	}
	if cfg.TLSKeyPath != "/tmp/key.pem" {
		t.Fatalf("TLSKeyPath = %q", cfg.TLSKeyPath)
	}
}

func TestLoadServerFromEnv_Defaults(t *testing.T) {
	t.Setenv("CHATDAPP_LISTEN_ADDR", "")
	t.Setenv("CHATDAPP_DB_URL", "")

	cfg := LoadServerFromEnv()
	if cfg.ListenAddr != ":8545" {
		t.Fatalf("default ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DBURL != "" {
		t.Fatalf("DBURL = %q, want empty for in-memory store", cfg.DBURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestServerValidate_TLSMismatch(t *testing.T) {
	cfg := Server{ListenAddr: ":8545", TLSCertPath: "/tmp/cert.pem"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for tls mismatch")
	}

	cfg.TLSCertPath = ""
	cfg.TLSKeyPath = "/tmp/key.pem"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for tls mismatch")
	}
}

func TestLoadClientFromEnv(t *testing.T) {
	t.Setenv("CHATDAPP_GATEWAY_URL", "http://node.example:8545")
	t.Setenv("CHATDAPP_WALLET_PATH", "/tmp/wallet.json")

	cfg := LoadClientFromEnv()
	if cfg.GatewayURL != "http://node.example:8545" {
		t.Fatalf("GatewayURL = %q", cfg.GatewayURL)
	}
	if cfg.WalletPath != "/tmp/wallet.json" {
		t.Fatalf("WalletPath = %q", cfg.WalletPath)
	}
}

func TestLoadClientFromEnv_Defaults(t *testing.T) {
	t.Setenv("CHATDAPP_GATEWAY_URL", "")
	t.Setenv("CHATDAPP_WALLET_PATH", "")

	cfg := LoadClientFromEnv()
	if cfg.GatewayURL != defaultGatewayURL {
		t.Fatalf("default GatewayURL = %q", cfg.GatewayURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
