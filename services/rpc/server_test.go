package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly"
	"github.com/horizenofficial/sctemplate/services/blockchain"
	"github.com/horizenofficial/sctemplate/services/mempool"
	"github.com/horizenofficial/sctemplate/settings"
	"github.com/horizenofficial/sctemplate/stores/sidechain/memory"
	"github.com/horizenofficial/sctemplate/ulogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScID = model.TestScID(7)

type testResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
	ID     interface{}         `json:"id"`
}

type testNode struct {
	ctx    context.Context
	chain  *blockchain.Blockchain
	pool   *mempool.Mempool
	server *RPCServer
}

func newTestNode(t *testing.T) *testNode {
	t.Helper()

	ctx := context.Background()
	logger := ulogger.TestLogger{}
	tSettings := settings.NewSettings()
	tSettings.RPC.AllowedOrigins = []string{"https://explorer.example"}

	store := memory.New()
	require.NoError(t, store.Add(ctx, &model.Sidechain{ID: testScID, WithdrawalEpochLength: 10}))

	chain := blockchain.New(logger, tSettings, store)
	require.NoError(t, chain.Run(ctx))

	pool := mempool.New(logger, tSettings, store)

	ba := blockassembly.New(logger, tSettings, chain, pool)
	require.NoError(t, ba.Init(ctx))

	t.Cleanup(func() {
		_ = ba.Stop(context.Background())
	})

	server := NewServer(logger, tSettings, ba, chain, pool, store)
	require.NoError(t, server.Init(ctx))

	return &testNode{ctx: ctx, chain: chain, pool: pool, server: server}
}

func (n *testNode) post(t *testing.T, body string) (int, *testResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	n.server.ServeHTTP(rec, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())

	return rec.Code, &resp
}

func (n *testNode) call(t *testing.T, method string, params ...interface{}) *testResponse {
	t.Helper()

	if params == nil {
		params = []interface{}{}
	}

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      "test",
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	status, resp := n.post(t, string(body))
	require.Equal(t, http.StatusOK, status)

	return resp
}

func (n *testNode) mustCall(t *testing.T, result interface{}, method string, params ...interface{}) {
	t.Helper()

	resp := n.call(t, method, params...)
	require.Nil(t, resp.Error, "%s returned an error", method)

	if result != nil {
		require.NoError(t, json.Unmarshal(resp.Result, result))
	}
}

func requireCode(t *testing.T, resp *testResponse, code int) {
	t.Helper()

	require.NotNil(t, resp.Error)
	assert.Equal(t, code, resp.Error.Code, resp.Error.Message)
}

func TestGetBlockTemplateRootsOnRequest(t *testing.T) {
	node := newTestNode(t)

	resp := node.call(t, "getblocktemplate")
	require.Nil(t, resp.Error)

	var fields map[string]jsoniter.RawMessage
	require.NoError(t, json.Unmarshal(resp.Result, &fields))
	assert.NotContains(t, fields, "merkleTree")
	assert.NotContains(t, fields, "scTxsCommitment")
	assert.Contains(t, fields, "certificates")
	assert.Contains(t, fields, "coinbasetxn")

	var template GetBlockTemplateResult
	node.mustCall(t, &template, "getblocktemplate", map[string]string{"mode": "template"}, true)
	assert.NotEmpty(t, template.MerkleTree)
	assert.NotEmpty(t, template.ScTxsCommitment)
	assert.Equal(t, uint32(1), template.Height)
	assert.Len(t, template.Bits, 8)
}

func TestGetBlockTemplateMatchesMerkleRoots(t *testing.T) {
	node := newTestNode(t)

	tx := model.NewTestTransaction(1, 500, testScID)
	cert := model.NewTestCertificate(testScID, 0, 3)

	var txid string
	node.mustCall(t, &txid, "sendrawtransaction", hex.EncodeToString(tx.Bytes()), 500)
	assert.Equal(t, tx.Hash.String(), txid)

	var certHash string
	node.mustCall(t, &certHash, "sendrawcertificate", hex.EncodeToString(cert.Bytes()))
	assert.Equal(t, cert.Hash().String(), certHash)

	var template GetBlockTemplateResult
	node.mustCall(t, &template, "getblocktemplate", nil, true)

	require.Len(t, template.Transactions, 1)
	require.Len(t, template.Certificates, 1)
	assert.Equal(t, txid, template.Transactions[0].Hash)
	assert.Equal(t, certHash, template.Certificates[0].Hash)
	assert.Equal(t, testScID.String(), template.Certificates[0].ScID)
	assert.Equal(t, int64(-600), template.CoinbaseTxn.Fee)

	txs := []string{template.CoinbaseTxn.Data, template.Transactions[0].Data}
	certs := []string{template.Certificates[0].Data}

	var roots GetBlockMerkleRootsResult
	node.mustCall(t, &roots, "getblockmerkleroots", txs, certs)
	assert.Equal(t, template.MerkleTree, roots.MerkleTree)
	assert.Equal(t, template.ScTxsCommitment, roots.ScTxsCommitment)

	var info GetMempoolInfoResult
	node.mustCall(t, &info, "getmempoolinfo")
	assert.Equal(t, 1, info.Size)
	assert.Equal(t, 1, info.Certificates)
	assert.NotZero(t, info.Sequence)
}

func TestSubmitBlock(t *testing.T) {
	node := newTestNode(t)

	tmpl, err := node.server.blockAssemblyClient.GetBlockTemplate(node.ctx, nil, true)
	require.NoError(t, err)

	block := model.NewBlockFromTemplate(tmpl, tmpl.Roots, 0)

	resp := node.call(t, "submitblock", hex.EncodeToString(block.Bytes()))
	require.Nil(t, resp.Error)
	assert.Equal(t, "null", string(resp.Result))

	var height uint32
	node.mustCall(t, &height, "getblockcount")
	assert.Equal(t, uint32(1), height)

	var best string
	node.mustCall(t, &best, "getbestblockhash")
	hash := block.Hash()
	assert.Equal(t, hash.String(), best)

	// the same block again does not extend the tip
	resp = node.call(t, "submitblock", hex.EncodeToString(block.Bytes()))
	require.NotNil(t, resp.Error)
}

func TestSidechainCalls(t *testing.T) {
	node := newTestNode(t)

	scID := model.TestScID(42)

	var registered string
	node.mustCall(t, &registered, "registersidechain", RegisterSidechainParams{
		ScID:    scID.String(),
		Version: 1,
	})
	assert.Equal(t, scID.String(), registered)

	var info GetScInfoResult
	node.mustCall(t, &info, "getscinfo", scID.String())
	assert.Equal(t, int32(1), info.Version)
	assert.False(t, info.Ceasing)

	node.mustCall(t, &info, "getscinfo", testScID.String())
	assert.True(t, info.Ceasing)
	assert.Equal(t, uint32(10), info.WithdrawalEpochLength)

	requireCode(t, node.call(t, "getscinfo", model.TestScID(99).String()), ErrRPCNotFound)
	requireCode(t, node.call(t, "registersidechain", RegisterSidechainParams{ScID: scID.String()}), ErrRPCVerify)
}

func TestDecodeRawCertificate(t *testing.T) {
	node := newTestNode(t)

	cert := model.NewTestCertificate(testScID, 2, 9)

	var decoded DecodeRawCertificateResult
	node.mustCall(t, &decoded, "decoderawcertificate", hex.EncodeToString(cert.Bytes()))

	assert.Equal(t, cert.Hash().String(), decoded.Hash)
	assert.Equal(t, int32(2), decoded.EpochNumber)
	assert.Equal(t, int64(9), decoded.Quality)
	require.Len(t, decoded.BackwardTransfers, 1)
	assert.Equal(t, uint64(1000), decoded.BackwardTransfers[0].Amount)
	assert.Equal(t, uint64(1000), decoded.TotalBackwardTransfers)
}

func TestErrorCodes(t *testing.T) {
	node := newTestNode(t)

	tx := model.NewTestTransaction(5, 10)

	tests := []struct {
		name   string
		method string
		params []interface{}
		code   int
	}{
		{"unknown method", "getinfo", nil, ErrRPCMethodNotFound},
		{"bad mode", "getblocktemplate", []interface{}{map[string]string{"mode": "proposal"}}, ErrRPCInvalidParameter},
		{"bad roots flag", "getblocktemplate", []interface{}{nil, "yes"}, ErrRPCInvalidParameter},
		{"missing transactions", "getblockmerkleroots", nil, ErrRPCInvalidParameter},
		{"bad hex", "getblockmerkleroots", []interface{}{[]string{"zz"}}, ErrRPCDecodeHexString},
		{"bad certificate", "sendrawcertificate", []interface{}{"00"}, ErrRPCDecodeHexString},
		{"certificate not hex", "decoderawcertificate", []interface{}{"zz"}, ErrRPCDecodeHexString},
		{"unknown sidechain", "sendrawcertificate", []interface{}{hex.EncodeToString(model.NewTestCertificate(model.TestScID(99), 0, 1).Bytes())}, ErrRPCVerifyRejected},
		{"bad scid", "getscinfo", []interface{}{"not-a-hash"}, ErrRPCDecodeHexString},
		{"missing block", "submitblock", nil, ErrRPCInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, node.call(t, tt.method, tt.params...), tt.code)
		})
	}

	t.Run("duplicate transaction", func(t *testing.T) {
		raw := hex.EncodeToString(tx.Bytes())

		node.mustCall(t, nil, "sendrawtransaction", raw, 10)
		requireCode(t, node.call(t, "sendrawtransaction", raw, 10), ErrRPCVerify)
	})

	t.Run("parse error", func(t *testing.T) {
		status, resp := node.post(t, "{not json")
		assert.Equal(t, http.StatusBadRequest, status)
		requireCode(t, resp, ErrRPCParse)
	})

	t.Run("missing method", func(t *testing.T) {
		status, resp := node.post(t, `{"id":1,"params":[]}`)
		assert.Equal(t, http.StatusBadRequest, status)
		requireCode(t, resp, ErrRPCInvalidRequest)
	})
}

func TestHTTPEndpoints(t *testing.T) {
	node := newTestNode(t)

	t.Run("cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://explorer.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		node.server.ServeHTTP(rec, req)

		assert.Equal(t, "https://explorer.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		node.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		node.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alive", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		node.mustCall(t, nil, "getblockcount")

		rec := httptest.NewRecorder()
		node.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "sctemplate_rpc_request")
	})
}

func TestClient(t *testing.T) {
	node := newTestNode(t)

	httpServer := httptest.NewServer(node.server)
	defer httpServer.Close()

	u, err := url.Parse(httpServer.URL)
	require.NoError(t, err)

	client, err := NewClient(u)
	require.NoError(t, err)

	template, err := client.GetBlockTemplate(node.ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, template.MerkleTree)

	coinbase, err := hex.DecodeString(template.CoinbaseTxn.Data)
	require.NoError(t, err)

	roots, err := client.GetBlockMerkleRoots(node.ctx, [][]byte{coinbase}, nil)
	require.NoError(t, err)
	assert.Equal(t, template.MerkleTree, roots.MerkleTree)
	assert.Equal(t, template.ScTxsCommitment, roots.ScTxsCommitment)

	err = client.Call(node.ctx, nil, "nosuchmethod")

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrRPCMethodNotFound, rpcErr.Code)

	_, err = NewClient(nil)
	require.Error(t, err)
}
