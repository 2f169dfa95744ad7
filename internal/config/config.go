package config

import (
	"errors"
	"os"
)

const defaultGatewayURL = "http://localhost:8545"

// Server configures the gateway node.
type Server struct {
	ListenAddr  string
	DBURL       string
	TLSCertPath string
	TLSKeyPath  string
}

// Client configures the chat client.
type Client struct {
	GatewayURL string
	WalletPath string
}

func LoadServerFromEnv() Server {
	cfg := Server{
		ListenAddr:  ":8545",
		DBURL:       os.Getenv("CHATDAPP_DB_URL"),
		TLSCertPath: os.Getenv("CHATDAPP_TLS_CERT"),
		TLSKeyPath:  os.Getenv("CHATDAPP_TLS_KEY"),
	}
	if v := os.Getenv("CHATDAPP_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	return cfg
}

func (c Server) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if (c.TLSCertPath == "") != (c.TLSKeyPath == "") {
		return errors.New("both tls cert and key are required when enabling tls")
	}
	return nil
}

// LoadClientFromEnv reads the client configuration. An empty wallet path
// means the platform default location.
func LoadClientFromEnv() Client {
	cfg := Client{
		GatewayURL: defaultGatewayURL,
		WalletPath: os.Getenv("CHATDAPP_WALLET_PATH"),
	}
	if v := os.Getenv("CHATDAPP_GATEWAY_URL"); v != "" {
		cfg.GatewayURL = v
	}
	return cfg
}

func (c Client) Validate() error {
	if c.GatewayURL == "" {
		return errors.New("gateway url is required")
	}
	return nil
}
