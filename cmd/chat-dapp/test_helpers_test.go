package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lwan2205/chat-dapp/internal/chain"
	"github.com/Lwan2205/chat-dapp/internal/eventhub"
	"github.com/Lwan2205/chat-dapp/internal/gatewayapi"
	"github.com/Lwan2205/chat-dapp/internal/ledgerclient"
	"github.com/Lwan2205/chat-dapp/internal/ledgerstore"
	"github.com/Lwan2205/chat-dapp/internal/session"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

// startTestGateway runs a full in-process gateway node: memory-backed
// ledger, execution engine, websocket event feed and the HTTP surface.
func startTestGateway(t *testing.T) string {
	t.Helper()

	store := ledgerstore.NewMemoryStore()
	hub := eventhub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	engine := chain.NewEngine(store, hub)
	mux := http.NewServeMux()
	gatewayapi.NewHandler(engine, store, hub).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv.URL
}

func newTestSession(t *testing.T, gatewayURL string) *session.Session {
	t.Helper()
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	sess := session.New(ledgerclient.New(gatewayURL, w), w)
	t.Cleanup(sess.Close)
	return sess
}

// registerUser creates an account on the gateway and returns its session.
func registerUser(t *testing.T, gatewayURL, name string) *session.Session {
	t.Helper()
	sess := newTestSession(t, gatewayURL)
	if err := sess.CreateUser(context.Background(), name); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return sess
}
