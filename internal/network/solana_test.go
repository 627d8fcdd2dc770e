package network

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gov-txengine-sol/internal/logic/core"
	"gov-txengine-sol/internal/testutil"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	solTypes "github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     any               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode 按方法名返回预设的 result / error
type fakeNode struct {
	mu       sync.Mutex
	results  map[string]string
	errors   map[string]string
	requests []rpcRequest
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	node := &fakeNode{results: map[string]string{}, errors: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		node.mu.Lock()
		node.requests = append(node.requests, req)
		result, hasResult := node.results[req.Method]
		rpcErr, hasErr := node.errors[req.Method]
		node.mu.Unlock()

		id, _ := json.Marshal(req.ID)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case hasErr:
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":`+string(id)+`,"error":`+rpcErr+`}`)
		case hasResult:
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":`+string(id)+`,"result":`+result+`}`)
		default:
			_, _ = io.WriteString(w, `{"jsonrpc":"2.0","id":`+string(id)+`,"error":{"code":-32601,"message":"Method not found"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *fakeNode) last(method string) rpcRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.requests) - 1; i >= 0; i-- {
		if n.requests[i].Method == method {
			return n.requests[i]
		}
	}
	return rpcRequest{}
}

func newTestNetwork(t *testing.T, srv *httptest.Server) *SolanaNetwork {
	n, err := NewSolanaNetwork(SolanaOption{
		Endpoint:       srv.URL,
		Timeout:        2 * time.Second,
		SkipPreflight:  true,
		SendMaxRetries: 3,
	})
	require.NoError(t, err)
	return n
}

func TestSolanaNetwork_SendRawTransaction(t *testing.T) {
	node, srv := newFakeNode(t)
	node.results["sendTransaction"] = `"5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"`
	network := newTestNetwork(t, srv)

	sig, err := network.SendRawTransaction(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", sig)

	req := node.last("sendTransaction")
	require.Len(t, req.Params, 2)
	assert.JSONEq(t, `"AQID"`, string(req.Params[0]))
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(req.Params[1], &cfg))
	assert.Equal(t, "base64", cfg["encoding"])
	assert.Equal(t, true, cfg["skipPreflight"])
	assert.Equal(t, float64(3), cfg["maxRetries"])
}

func TestSolanaNetwork_SendPreflightError(t *testing.T) {
	node, srv := newFakeNode(t)
	node.errors["sendTransaction"] = `{"code":-32002,"message":"Transaction simulation failed","data":{"err":"x","logs":["Program log: Error: not enough votes"]}}`
	network := newTestNetwork(t, srv)

	_, err := network.SendRawTransaction(context.Background(), []byte{1})
	require.Error(t, err)
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32002, rpcErr.Code)
	assert.Equal(t, []string{"Program log: Error: not enough votes"}, rpcErr.Logs())
	assert.Contains(t, err.Error(), "not enough votes")
}

func TestSolanaNetwork_RecentFeeSamples(t *testing.T) {
	node, srv := newFakeNode(t)
	node.results["getRecentPrioritizationFees"] = `[{"slot":10,"prioritizationFee":0},{"slot":11,"prioritizationFee":5000}]`
	network := newTestNetwork(t, srv)

	accounts := make([]common.PublicKey, 0, 130)
	for i := 0; i < 130; i++ {
		accounts = append(accounts, solTypes.NewAccount().PublicKey)
	}

	samples, err := network.RecentFeeSamples(context.Background(), accounts)
	require.NoError(t, err)
	assert.Equal(t, []core.FeeSample{{Slot: 10, Fee: 0}, {Slot: 11, Fee: 5000}}, samples)

	var sent []string
	require.NoError(t, json.Unmarshal(node.last("getRecentPrioritizationFees").Params[0], &sent))
	assert.Len(t, sent, maxFeeAccounts)
	assert.Equal(t, accounts[0].ToBase58(), sent[0])
}

func TestSolanaNetwork_SimulateTransaction(t *testing.T) {
	node, srv := newFakeNode(t)
	node.results["simulateTransaction"] = `{"context":{"slot":5},"value":{"err":{"InstructionError":[1,{"Custom":6001}]},"logs":["Program log: Error: voting ended"],"accounts":null,"unitsConsumed":1200}}`
	network := newTestNetwork(t, srv)

	res, err := network.SimulateTransaction(context.Background(), testutil.SignedTx(solTypes.NewAccount(), 1).Tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"InstructionError":[1,{"Custom":6001}]}`, res.Err)
	assert.Equal(t, []string{"Program log: Error: voting ended"}, res.Logs)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(node.last("simulateTransaction").Params[1], &cfg))
	assert.Equal(t, false, cfg["sigVerify"])
	assert.Equal(t, true, cfg["replaceRecentBlockhash"])
}

func TestSolanaNetwork_SimulateSuccess(t *testing.T) {
	node, srv := newFakeNode(t)
	node.results["simulateTransaction"] = `{"context":{"slot":5},"value":{"err":null,"logs":[]}}`
	network := newTestNetwork(t, srv)

	res, err := network.SimulateTransaction(context.Background(), testutil.SignedTx(solTypes.NewAccount(), 1).Tx)
	require.NoError(t, err)
	assert.Empty(t, res.Err)
}

func TestSolanaNetwork_LatestCheckpoint(t *testing.T) {
	node, srv := newFakeNode(t)
	node.results["getLatestBlockhash"] = `{"context":{"slot":100},"value":{"blockhash":"` + testutil.TestBlockhash + `","lastValidBlockHeight":250}}`
	network := newTestNetwork(t, srv)

	cp, err := network.LatestCheckpoint(context.Background(), core.CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, core.Checkpoint{Blockhash: testutil.TestBlockhash, LastValidBlockHeight: 250}, cp)
}

func TestSolanaNetwork_GetSignatureStatus(t *testing.T) {
	node, srv := newFakeNode(t)
	network := newTestNetwork(t, srv)

	node.results["getSignatureStatuses"] = `{"context":{"slot":100},"value":[null]}`
	status, err := network.GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	assert.Nil(t, status, "节点未见到的交易返回 nil")

	node.results["getSignatureStatuses"] = `{"context":{"slot":100},"value":[{"slot":99,"confirmations":3,"err":null,"confirmationStatus":"confirmed"}]}`
	status, err = network.GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	assert.Equal(t, &core.SignatureStatus{Slot: 99, Confirmations: 3}, status)

	node.results["getSignatureStatuses"] = `{"context":{"slot":100},"value":[{"slot":98,"confirmations":null,"err":{"InstructionError":[0,"InvalidAccountData"]},"confirmationStatus":"finalized"}]}`
	status, err = network.GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	assert.True(t, status.Finalized)
	assert.JSONEq(t, `{"InstructionError":[0,"InvalidAccountData"]}`, status.Err)
}

func TestConvertSignatureStatus(t *testing.T) {
	one := uint64(1)
	processed := rpc.CommitmentProcessed

	assert.Nil(t, convertSignatureStatus(nil))
	assert.Equal(t, &core.SignatureStatus{Slot: 7, Confirmations: 1},
		convertSignatureStatus(&rpc.SignatureStatus{Slot: 7, Confirmations: &one, ConfirmationStatus: &processed}))
	assert.Equal(t, &core.SignatureStatus{Slot: 7, Finalized: true},
		convertSignatureStatus(&rpc.SignatureStatus{Slot: 7}))
}

func TestErrorDetail(t *testing.T) {
	assert.Equal(t, "", errorDetail(nil))
	assert.Equal(t, "AccountInUse", errorDetail("AccountInUse"))
	assert.Equal(t, `{"InstructionError":[0,{"Custom":1}]}`, errorDetail(map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}))
}

func TestDecodeResult(t *testing.T) {
	var out string
	assert.NoError(t, decodeResult([]byte(`{"jsonrpc":"2.0","id":1,"result":"ok"}`), &out))
	assert.Equal(t, "ok", out)

	err := decodeResult([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"Node is behind"}}`), &out)
	var rpcErr *RpcError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "rpc error -32005: Node is behind", rpcErr.Error())

	assert.Error(t, decodeResult([]byte(`not json`), &out))
	assert.Error(t, decodeResult([]byte(`{"jsonrpc":"2.0","id":1}`), &out))
}

func TestNewSolanaNetwork_EmptyEndpoint(t *testing.T) {
	_, err := NewSolanaNetwork(SolanaOption{})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
