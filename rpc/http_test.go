package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"collectvault/core"
	"collectvault/native/assets"
	"collectvault/state"
	"collectvault/storage"
)

const (
	testToken   = "secret-token"
	testDeposit = 1_000
	testFee     = 250
)

type testServer struct {
	server *Server
	node   *core.Node
	admin  [20]byte
	now    int64
	http   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)

	ts := &testServer{admin: fillAddr(0xAD), now: 1_000}
	ts.node = core.NewNode(state.NewManager(db), core.Params{
		Admin:         ts.admin,
		RecordDeposit: testDeposit,
		AuditFee:      testFee,
	})
	ts.node.SetNowFunc(func() int64 { return ts.now })

	ts.server = NewServer(ts.node)
	ts.server.SetAuthToken(testToken)
	ts.http = httptest.NewServer(ts.server.Handler())
	t.Cleanup(ts.http.Close)
	return ts
}

func fillAddr(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func (ts *testServer) call(t *testing.T, authed bool, method string, params ...interface{}) (*RPCResponse, int) {
	t.Helper()
	rawParams := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		raw, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal param: %v", err)
		}
		rawParams = append(rawParams, raw)
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, ts.http.URL, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+testToken)
	}
	httpResp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer httpResp.Body.Close()

	resp := &RPCResponse{}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, httpResp.StatusCode
}

// mintTo mints a fresh asset via the node, hands it to owner and funds the
// record deposit.
func (ts *testServer) mintTo(t *testing.T, owner [20]byte, uri string) [32]byte {
	t.Helper()
	colID := assets.CollectionID("rpc-test")
	if _, err := ts.node.CreateCollection(ts.admin, "rpc-test"); err != nil && !errors.Is(err, assets.ErrCollectionExists) {
		t.Fatalf("create collection: %v", err)
	}
	minted, err := ts.node.MintAsset(ts.admin, colID, uri)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if owner != ts.admin {
		if err := ts.node.TransferAsset(minted.ID, ts.admin, owner); err != nil {
			t.Fatalf("transfer: %v", err)
		}
	}
	if err := ts.node.Credit(owner, testDeposit); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return minted.ID
}

func TestRequiresBearerToken(t *testing.T) {
	ts := newTestServer(t)
	resp, status := ts.call(t, false, "vault_openLoan", map[string]interface{}{})
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeUnauthorized)
	}
}

func TestMethodNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, status := ts.call(t, true, "vault_unknown")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeMethodNotFound)
	}
}

func TestOpenLoanRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	owner := fillAddr(0x01)
	asset := ts.mintTo(t, owner, "ipfs://watch-1")

	resp, status := ts.call(t, true, "vault_openLoan", loanOpenParams{
		Asset:     formatAssetID(asset),
		Owner:     formatAddress(owner),
		Principal: 100,
		Interest:  5,
		Duration:  86_400,
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("status = %d, error = %+v", status, resp.Error)
	}

	getResp, status := ts.call(t, true, "vault_getLoan", assetParams{Asset: formatAssetID(asset)})
	if status != http.StatusOK || getResp.Error != nil {
		t.Fatalf("get: status = %d, error = %+v", status, getResp.Error)
	}
	var rec loanJSON
	raw, _ := json.Marshal(getResp.Result)
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if rec.Principal != 100 || rec.Interest != 5 || rec.Active {
		t.Fatalf("loan = %+v", rec)
	}
	if rec.Owner != formatAddress(owner) {
		t.Fatalf("owner = %s, want %s", rec.Owner, formatAddress(owner))
	}
}

func TestInvalidDurationMapsToInvalidParams(t *testing.T) {
	ts := newTestServer(t)
	owner := fillAddr(0x01)
	asset := ts.mintTo(t, owner, "ipfs://watch-1")

	resp, status := ts.call(t, true, "vault_openLoan", loanOpenParams{
		Asset:     formatAssetID(asset),
		Owner:     formatAddress(owner),
		Principal: 100,
		Interest:  5,
		Duration:  0,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if resp.Error == nil || resp.Error.Code != codeVaultInvalidParams {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeVaultInvalidParams)
	}
}

func TestMissingLoanMapsToNotFound(t *testing.T) {
	ts := newTestServer(t)
	owner := fillAddr(0x01)

	resp, status := ts.call(t, true, "vault_repayLoan", assetActorParams{
		Asset:  formatAssetID([32]byte{0xFF}),
		Caller: formatAddress(owner),
	})
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
	if resp.Error == nil || resp.Error.Code != codeVaultNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeVaultNotFound)
	}
}

func TestDuplicateLoanMapsToConflict(t *testing.T) {
	ts := newTestServer(t)
	owner := fillAddr(0x01)
	asset := ts.mintTo(t, owner, "ipfs://watch-1")

	params := loanOpenParams{
		Asset:     formatAssetID(asset),
		Owner:     formatAddress(owner),
		Principal: 100,
		Interest:  5,
		Duration:  86_400,
	}
	if resp, status := ts.call(t, true, "vault_openLoan", params); status != http.StatusOK || resp.Error != nil {
		t.Fatalf("first open: status = %d, error = %+v", status, resp.Error)
	}
	if err := ts.node.Credit(owner, testDeposit); err != nil {
		t.Fatalf("credit: %v", err)
	}
	resp, status := ts.call(t, true, "vault_openLoan", params)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want %d", status, http.StatusConflict)
	}
	if resp.Error == nil || resp.Error.Code != codeVaultConflict {
		t.Fatalf("error = %+v, want code %d", resp.Error, codeVaultConflict)
	}
}

func TestAssetsFlowOverRPC(t *testing.T) {
	ts := newTestServer(t)

	resp, status := ts.call(t, true, "assets_createCollection", collectionCreateParams{
		Caller: formatAddress(ts.admin),
		Name:   "watches",
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("create: status = %d, error = %+v", status, resp.Error)
	}
	var col collectionJSON
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &col); err != nil {
		t.Fatalf("decode collection: %v", err)
	}

	mintResp, status := ts.call(t, true, "assets_mint", mintParams{
		Caller:     formatAddress(ts.admin),
		Collection: col.ID,
		URI:        "ipfs://watch-1",
	})
	if status != http.StatusOK || mintResp.Error != nil {
		t.Fatalf("mint: status = %d, error = %+v", status, mintResp.Error)
	}
	var minted assetJSON
	raw, _ = json.Marshal(mintResp.Result)
	if err := json.Unmarshal(raw, &minted); err != nil {
		t.Fatalf("decode asset: %v", err)
	}
	if minted.Sequence != 1 || minted.Owner != formatAddress(ts.admin) {
		t.Fatalf("asset = %+v", minted)
	}

	// Non-admin mint maps to forbidden.
	forbidden, status := ts.call(t, true, "assets_mint", mintParams{
		Caller:     formatAddress(fillAddr(0x01)),
		Collection: col.ID,
		URI:        "ipfs://watch-2",
	})
	if status != http.StatusForbidden || forbidden.Error == nil || forbidden.Error.Code != codeAssetsForbidden {
		t.Fatalf("status = %d, error = %+v", status, forbidden.Error)
	}
}

func TestAuditFlowOverRPC(t *testing.T) {
	ts := newTestServer(t)
	requester := fillAddr(0x01)
	asset := ts.mintTo(t, requester, "ipfs://watch-1")
	if err := ts.node.Credit(requester, testFee); err != nil {
		t.Fatalf("credit: %v", err)
	}
	ts.node.Audits().SetIDFunc(func() string { return "req-1" })

	resp, status := ts.call(t, true, "audit_request", auditRequestParams{
		Asset:     formatAssetID(asset),
		Requester: formatAddress(requester),
	})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("request: status = %d, error = %+v", status, resp.Error)
	}

	snapResp, status := ts.call(t, true, "audit_provideSnapshot", auditSnapshotParams{
		Caller:    formatAddress(ts.admin),
		RequestID: "req-1",
		ImageURLs: []string{"https://img/1"},
	})
	if status != http.StatusOK || snapResp.Error != nil {
		t.Fatalf("snapshot: status = %d, error = %+v", status, snapResp.Error)
	}

	listResp, status := ts.call(t, true, "audit_getSnapshots", assetParams{Asset: formatAssetID(asset)})
	if status != http.StatusOK || listResp.Error != nil {
		t.Fatalf("list: status = %d, error = %+v", status, listResp.Error)
	}
	var snaps []auditSnapshotJSON
	raw, _ := json.Marshal(listResp.Result)
	if err := json.Unmarshal(raw, &snaps); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Sequence != 1 {
		t.Fatalf("snapshots = %+v", snaps)
	}
}

func TestGetBalance(t *testing.T) {
	ts := newTestServer(t)
	addr := fillAddr(0x01)
	if err := ts.node.Credit(addr, 777); err != nil {
		t.Fatalf("credit: %v", err)
	}

	resp, status := ts.call(t, true, "vault_getBalance", balanceParams{Address: formatAddress(addr)})
	if status != http.StatusOK || resp.Error != nil {
		t.Fatalf("status = %d, error = %+v", status, resp.Error)
	}
	var result balanceResult
	raw, _ := json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Balance != "777" {
		t.Fatalf("balance = %s, want 777", result.Balance)
	}
}

func TestRejectsMalformedAssetID(t *testing.T) {
	ts := newTestServer(t)
	resp, status := ts.call(t, true, "vault_getLoan", assetParams{Asset: "0x1234"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if resp.Error == nil || resp.Error.Code != codeVaultInvalidParams {
		t.Fatalf("error = %+v", resp.Error)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	ts := newTestServer(t)
	body := bytes.Repeat([]byte("a"), maxRequestBytes+1)
	resp, err := http.Post(ts.http.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusRequestEntityTooLarge)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(fmt.Sprintf("%s/metrics", ts.http.URL))
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
