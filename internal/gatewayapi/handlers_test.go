package gatewayapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/Lwan2205/chat-dapp/internal/chain"
	"github.com/Lwan2205/chat-dapp/internal/ledger"
	"github.com/Lwan2205/chat-dapp/internal/ledgerstore"
	"github.com/Lwan2205/chat-dapp/internal/wallet"
)

type stubFeed struct{}

func (stubFeed) HandleWS(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (stubFeed) SubscriberCount() int64 { return 0 }

type testGateway struct {
	srv    *httptest.Server
	store  *ledgerstore.MemoryStore
	engine *chain.Engine
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	store := ledgerstore.NewMemoryStore()
	engine := chain.NewEngine(store, chain.NopEmitter{})

	mux := http.NewServeMux()
	NewHandler(engine, store, stubFeed{}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testGateway{srv: srv, store: store, engine: engine}
}

func (g *testGateway) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(g.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 400 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode GET %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (g *testGateway) submit(t *testing.T, w *wallet.Wallet, op string, args any) receiptResponse {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	nonce := uuid.NewString()
	env := ledger.TxEnvelope{
		Op:        op,
		Nonce:     nonce,
		Args:      raw,
		PublicKey: w.PublicKeyHex(),
		Signature: w.Sign(ledger.SigningBytes(op, nonce, raw)),
	}
	body, _ := json.Marshal(env)
	resp, err := http.Post(g.srv.URL+"/tx", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /tx: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /tx status = %d", resp.StatusCode)
	}
	var submitted txSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}

	var receipt receiptResponse
	if code := g.get(t, "/tx/"+submitted.TxHash, &receipt); code != http.StatusOK {
		t.Fatalf("GET /tx/%s status = %d", submitted.TxHash, code)
	}
	return receipt
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New()
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	return w
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t)
	var resp map[string]string
	if code := g.get(t, "/health", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp["status"] != "ok" {
		t.Fatalf("body = %v", resp)
	}
}

func TestStatus(t *testing.T) {
	g := newTestGateway(t)
	var resp statusResponse
	if code := g.get(t, "/status", &resp); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.GlobalMsgID != "0" {
		t.Fatalf("global message id = %q", resp.GlobalMsgID)
	}
}

func TestSubmitAndReceipt(t *testing.T) {
	g := newTestGateway(t)
	alice := newWallet(t)

	receipt := g.submit(t, alice, ledger.OpCreateUser, map[string]string{"username": "alice"})
	if receipt.Status != ledger.TxConfirmed {
		t.Fatalf("status = %s (%s)", receipt.Status, receipt.Reason)
	}

	// Ledger rejections still finalize with receipts.
	receipt = g.submit(t, alice, ledger.OpCreateUser, map[string]string{"username": "alice"})
	if receipt.Status != ledger.TxRejected || receipt.Reason != chain.ReasonAlreadyRegistered {
		t.Fatalf("duplicate registration: %s (%s)", receipt.Status, receipt.Reason)
	}
}

func TestSubmitBadSignatureIsRejectedAtTheDoor(t *testing.T) {
	g := newTestGateway(t)
	alice, mallory := newWallet(t), newWallet(t)

	raw, _ := json.Marshal(map[string]string{"username": "alice"})
	nonce := uuid.NewString()
	env := ledger.TxEnvelope{
		Op:        ledger.OpCreateUser,
		Nonce:     nonce,
		Args:      raw,
		PublicKey: alice.PublicKeyHex(),
		Signature: mallory.Sign(ledger.SigningBytes(ledger.OpCreateUser, nonce, raw)),
	}
	body, _ := json.Marshal(env)
	resp, err := http.Post(g.srv.URL+"/tx", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /tx: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReceiptUnknownHash(t *testing.T) {
	g := newTestGateway(t)
	if code := g.get(t, "/tx/"+uuid.NewString(), nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestUserQueries(t *testing.T) {
	g := newTestGateway(t)
	alice := newWallet(t)
	g.submit(t, alice, ledger.OpCreateUser, map[string]string{"username": "alice"})
	addr := string(alice.Address())

	var name usernameResponse
	if code := g.get(t, "/users/"+addr+"/name", &name); code != http.StatusOK {
		t.Fatalf("name status = %d", code)
	}
	if name.Username != "alice" {
		t.Fatalf("username = %q", name.Username)
	}

	var exists existsResponse
	g.get(t, "/users/"+addr+"/exists", &exists)
	if !exists.Exists {
		t.Fatal("registered user reported missing")
	}
	g.get(t, "/users/0xdeadbeef/exists", &exists)
	if exists.Exists {
		t.Fatal("unknown user reported present")
	}
	if code := g.get(t, "/users/0xdeadbeef/name", nil); code != http.StatusNotFound {
		t.Fatalf("unknown user name status = %d, want 404", code)
	}

	var users listUsersResponse
	g.get(t, "/users", &users)
	if len(users.Users) != 1 || users.Users[0].PubKey != addr {
		t.Fatalf("users = %#v", users.Users)
	}

	var count countResponse
	g.get(t, "/users/count", &count)
	if count.Count != 1 {
		t.Fatalf("count = %d", count.Count)
	}
}

func TestFriendQueries(t *testing.T) {
	g := newTestGateway(t)
	alice, bob := newWallet(t), newWallet(t)
	g.submit(t, alice, ledger.OpCreateUser, map[string]string{"username": "alice"})
	g.submit(t, bob, ledger.OpCreateUser, map[string]string{"username": "bob"})
	g.submit(t, alice, ledger.OpAddFriend, map[string]string{"friend": string(bob.Address()), "name": "bobby"})

	caller := string(alice.Address())

	var friends listFriendsResponse
	g.get(t, "/friends?caller="+caller, &friends)
	if len(friends.Friends) != 1 || friends.Friends[0].Name != "bobby" {
		t.Fatalf("friends = %#v", friends.Friends)
	}

	var count countResponse
	g.get(t, "/friends/count?caller="+caller, &count)
	if count.Count != 1 {
		t.Fatalf("count = %d", count.Count)
	}

	var byIndex friendResponse
	if code := g.get(t, "/friends/0?caller="+caller, &byIndex); code != http.StatusOK {
		t.Fatalf("friend by index status = %d", code)
	}
	if byIndex.PubKey != string(bob.Address()) {
		t.Fatalf("friend by index = %#v", byIndex)
	}
	if code := g.get(t, "/friends/5?caller="+caller, nil); code != http.StatusNotFound {
		t.Fatalf("out of range status = %d", code)
	}

	var check friendshipResponse
	g.get(t, "/friends/check?a="+caller+"&b="+string(bob.Address()), &check)
	if !check.Friends {
		t.Fatal("friendship not reported")
	}

	if code := g.get(t, "/friends", nil); code != http.StatusBadRequest {
		t.Fatalf("missing caller status = %d", code)
	}
}

func TestMessageQueries(t *testing.T) {
	g := newTestGateway(t)
	alice, bob := newWallet(t), newWallet(t)
	g.submit(t, alice, ledger.OpCreateUser, map[string]string{"username": "alice"})
	g.submit(t, bob, ledger.OpCreateUser, map[string]string{"username": "bob"})
	g.submit(t, alice, ledger.OpAddFriend, map[string]string{"friend": string(bob.Address()), "name": "bob"})

	receipt := g.submit(t, alice, ledger.OpSendMessage, map[string]string{"friend": string(bob.Address()), "message": "hi"})
	if receipt.Status != ledger.TxConfirmed || receipt.MessageID != "1" {
		t.Fatalf("send receipt: %#v", receipt)
	}

	pairQuery := "?caller=" + string(alice.Address()) + "&friend=" + string(bob.Address())

	var msgs listMessagesResponse
	g.get(t, "/messages"+pairQuery, &msgs)
	if len(msgs.Messages) != 1 || msgs.Messages[0].ID != "1" || msgs.Messages[0].Message != "hi" {
		t.Fatalf("messages = %#v", msgs.Messages)
	}

	// The counterpart reads the same conversation.
	reverseQuery := "?caller=" + string(bob.Address()) + "&friend=" + string(alice.Address())
	g.get(t, "/messages"+reverseQuery, &msgs)
	if len(msgs.Messages) != 1 {
		t.Fatalf("reverse view = %#v", msgs.Messages)
	}

	var count countResponse
	g.get(t, "/messages/count"+pairQuery, &count)
	if count.Count != 1 {
		t.Fatalf("count = %d", count.Count)
	}

	var byIndex messageResponse
	if code := g.get(t, "/messages/0"+pairQuery, &byIndex); code != http.StatusOK {
		t.Fatalf("message by index status = %d", code)
	}
	if byIndex.Sender != string(alice.Address()) {
		t.Fatalf("message by index = %#v", byIndex)
	}
	if code := g.get(t, "/messages/9"+pairQuery, nil); code != http.StatusNotFound {
		t.Fatalf("out of range status = %d", code)
	}

	var global globalIDResponse
	g.get(t, "/messages/global-id", &global)
	if global.ID != "1" {
		t.Fatalf("global id = %q", global.ID)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	g := newTestGateway(t)
	resp, err := http.Post(g.srv.URL+"/users", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /users: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, g.srv.URL+"/tx", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /tx: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp2.StatusCode)
	}
}

func TestConversationIsolation(t *testing.T) {
	g := newTestGateway(t)
	alice, bob, carol := newWallet(t), newWallet(t), newWallet(t)
	for i, w := range []*wallet.Wallet{alice, bob, carol} {
		g.submit(t, w, ledger.OpCreateUser, map[string]string{"username": []string{"alice", "bob", "carol"}[i]})
	}
	g.submit(t, alice, ledger.OpAddFriend, map[string]string{"friend": string(bob.Address()), "name": "bob"})
	g.submit(t, alice, ledger.OpAddFriend, map[string]string{"friend": string(carol.Address()), "name": "carol"})
	g.submit(t, alice, ledger.OpSendMessage, map[string]string{"friend": string(bob.Address()), "message": "for bob"})
	g.submit(t, alice, ledger.OpSendMessage, map[string]string{"friend": string(carol.Address()), "message": "for carol"})

	var msgs listMessagesResponse
	g.get(t, "/messages?caller="+string(carol.Address())+"&friend="+string(alice.Address()), &msgs)
	if len(msgs.Messages) != 1 || msgs.Messages[0].Message != "for carol" {
		t.Fatalf("carol's view = %#v", msgs.Messages)
	}
}
