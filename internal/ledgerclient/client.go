// Package ledgerclient implements ledger.Contract against a gateway node
// over HTTP. Mutating calls submit a signed transaction envelope and then
// poll the receipt endpoint until the ledger reports finalization; reads
// are plain queries. No timeout is enforced on finalization beyond the
// caller's context.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lwan2205/chat-dapp/internal/chat"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

const (
	queryTimeout = 10 * time.Second
	pollInterval = 250 * time.Millisecond
)

// Client talks to one gateway node on behalf of one wallet.
type Client struct {
	gatewayURL string
	wallet     *wallet.Wallet

	// queryClient bounds read round trips; txClient must not time out
	// while waiting for finalization.
	queryClient *http.Client
	txClient    *http.Client

	mu        sync.Mutex
	connected bool
}

// New returns a client for gatewayURL signing with w. A nil wallet is
// allowed; every call will then fail with chat.ErrNoSession.
func New(gatewayURL string, w *wallet.Wallet) *Client {
	return &Client{
		gatewayURL:  gatewayURL,
		wallet:      w,
		queryClient: &http.Client{Timeout: queryTimeout},
		txClient:    &http.Client{},
	}
}

// callerAddr returns the wallet address used for caller-scoped reads.
func (c *Client) callerAddr() (chat.Address, error) {
	if c.wallet == nil {
		return "", chat.ErrNoSession
	}
	return c.wallet.Address(), nil
}

// ensureSession lazily establishes the gateway session once and caches
// it for the lifetime of the client.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.wallet == nil {
		return chat.ErrNoSession
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gatewayURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.queryClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", chat.ErrNoSession, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: gateway returned %d", chat.ErrNoSession, resp.StatusCode)
	}
	c.connected = true
	return nil
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, payload, out any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.gatewayURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.queryClient
	if method != http.MethodGet {
		client = c.txClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return &chat.RemoteError{Op: op, Reason: apiErr.Error}
		}
		return &chat.RemoteError{Op: op, Reason: fmt.Sprintf("gateway returned %d", resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

type txSubmitResponse struct {
	TxHash string `json:"tx_hash"`
}

type receiptResponse struct {
	TxHash    string `json:"tx_hash"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// submitTx submits one mutating operation and blocks until the ledger
// confirms or rejects it.
func (c *Client) submitTx(ctx context.Context, op string, args any) (receiptResponse, error) {
	if err := c.ensureSession(ctx); err != nil {
		return receiptResponse{}, err
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		return receiptResponse{}, err
	}
	nonce := uuid.NewString()
	env := ledger.TxEnvelope{
		Op:        op,
		Nonce:     nonce,
		Args:      rawArgs,
		PublicKey: c.wallet.PublicKeyHex(),
		Signature: c.wallet.Sign(ledger.SigningBytes(op, nonce, rawArgs)),
	}

	var submitted txSubmitResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/tx", env, &submitted); err != nil {
		return receiptResponse{}, err
	}

	return c.awaitReceipt(ctx, op, submitted.TxHash)
}

// awaitReceipt polls until the transaction leaves the pending state.
func (c *Client) awaitReceipt(ctx context.Context, op, txHash string) (receiptResponse, error) {
	for {
		var receipt receiptResponse
		if err := c.doJSON(ctx, op, http.MethodGet, "/tx/"+txHash, nil, &receipt); err != nil {
			return receiptResponse{}, err
		}
		switch receipt.Status {
		case ledger.TxConfirmed:
			return receipt, nil
		case ledger.TxRejected:
			return receiptResponse{}, &chat.RemoteError{Op: op, Reason: receipt.Reason}
		}
		select {
		case <-ctx.Done():
			return receiptResponse{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
