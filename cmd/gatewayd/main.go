// gatewayd runs a chat ledger gateway node: it executes signed
// transactions, serves ledger queries, and broadcasts confirmed events
// over websocket. With no database configured it runs as an in-memory
// dev node.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lwan2205/chat-dapp/internal/chain"
	"github.com/Lwan2205/chat-dapp/internal/config"
	"github.com/Lwan2205/chat-dapp/internal/eventhub"
	"github.com/Lwan2205/chat-dapp/internal/gatewayapi"
	"github.com/Lwan2205/chat-dapp/internal/ledgerstore"
	"github.com/Lwan2205/chat-dapp/internal/securelog"
)

func main() {
	if err := run(); err != nil {
		securelog.Error("gatewayd.run", err)
		log.Printf("fatal: gateway error")
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadServerFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	var store ledgerstore.Store
	if cfg.DBURL != "" {
		storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pg, err := ledgerstore.NewPostgresStore(storeCtx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.Migrate(migrateCtx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		store = pg
	} else {
		log.Printf("no db url configured, ledger state is in-memory")
		store = ledgerstore.NewMemoryStore()
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := eventhub.NewHub()
	go hub.Run(ctx)

	engine := chain.NewEngine(store, hub)

	mux := http.NewServeMux()
	gatewayapi.NewHandler(engine, store, hub).Register(mux)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
			log.Printf("listening with TLS on %s", cfg.ListenAddr)
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}

		log.Printf("listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err = <-errCh
	case err = <-errCh:
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway failed: %w", err)
	}
	return nil
}
