package rpc

import (
	jsoniter "github.com/json-iterator/go"
)

// Request is a JSON-RPC 1.0 request as sent by bitcoin-cli style clients.
type Request struct {
	JSONRPC string                `json:"jsonrpc,omitempty"`
	ID      interface{}           `json:"id"`
	Method  string                `json:"method"`
	Params  []jsoniter.RawMessage `json:"params"`
}

type Response struct {
	Result interface{} `json:"result"`
	Error  *RPCError   `json:"error"`
	ID     interface{} `json:"id"`
}

type TemplateTransaction struct {
	Data string `json:"data"`
	Hash string `json:"hash"`
	Fee  int64  `json:"fee"`
}

type TemplateCertificate struct {
	Data        string `json:"data"`
	Hash        string `json:"hash"`
	ScID        string `json:"scid"`
	EpochNumber int32  `json:"epochNumber"`
	Quality     int64  `json:"quality"`
	Fee         int64  `json:"fee"`
}

// GetBlockTemplateResult is the getblocktemplate reply. The root fields are
// only present when the caller asked for them.
type GetBlockTemplateResult struct {
	Version           int32                 `json:"version"`
	PreviousBlockHash string                `json:"previousblockhash"`
	Height            uint32                `json:"height"`
	CurTime           int64                 `json:"curtime"`
	Bits              string                `json:"bits"`
	CoinbaseValue     uint64                `json:"coinbasevalue"`
	CoinbaseTxn       TemplateTransaction   `json:"coinbasetxn"`
	Transactions      []TemplateTransaction `json:"transactions"`
	Certificates      []TemplateCertificate `json:"certificates"`
	TemplateID        string                `json:"templateid"`
	MerkleTree        string                `json:"merkleTree,omitempty"`
	ScTxsCommitment   string                `json:"scTxsCommitment,omitempty"`
}

type GetBlockMerkleRootsResult struct {
	MerkleTree      string `json:"merkleTree"`
	ScTxsCommitment string `json:"scTxsCommitment"`
}

type BackwardTransferResult struct {
	PubKeyHash string `json:"pubkeyhash"`
	Amount     uint64 `json:"amount"`
}

type DecodeRawCertificateResult struct {
	Hash                        string                   `json:"hash"`
	Version                     int32                    `json:"version"`
	ScID                        string                   `json:"scid"`
	EpochNumber                 int32                    `json:"epochNumber"`
	Quality                     int64                    `json:"quality"`
	EndEpochCumScTxCommTreeRoot string                   `json:"endEpochCumScTxCommTreeRoot"`
	BackwardTransfers           []BackwardTransferResult `json:"backwardTransfers"`
	TotalBackwardTransfers      uint64                   `json:"totalBackwardTransfers"`
	Fee                         uint64                   `json:"fee"`
	Proof                       string                   `json:"proof"`
}

type RegisterSidechainParams struct {
	ScID                  string `json:"scid"`
	Version               int32  `json:"version"`
	WithdrawalEpochLength uint32 `json:"withdrawalEpochLength"`
}

type GetScInfoResult struct {
	ScID                  string `json:"scid"`
	Version               int32  `json:"version"`
	WithdrawalEpochLength uint32 `json:"withdrawalEpochLength"`
	CreationHeight        uint32 `json:"creationHeight"`
	Ceasing               bool   `json:"ceasing"`
}

type GetMempoolInfoResult struct {
	Size         int    `json:"size"`
	Certificates int    `json:"certificates"`
	Bytes        uint64 `json:"bytes"`
	Sequence     uint64 `json:"sequence"`
	LastUpdated  int64  `json:"lastupdated"`
}
