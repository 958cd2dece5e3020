package rpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/horizenofficial/sctemplate/model"
	"github.com/horizenofficial/sctemplate/services/blockassembly"
	jsoniter "github.com/json-iterator/go"
)

type commandHandler func(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error)

var rpcHandlers map[string]commandHandler

func init() {
	rpcHandlers = map[string]commandHandler{
		"getblocktemplate":     handleGetBlockTemplate,
		"getblockmerkleroots":  handleGetBlockMerkleRoots,
		"sendrawtransaction":   handleSendRawTransaction,
		"sendrawcertificate":   handleSendRawCertificate,
		"decoderawcertificate": handleDecodeRawCertificate,
		"registersidechain":    handleRegisterSidechain,
		"getscinfo":            handleGetScInfo,
		"getmempoolinfo":       handleGetMempoolInfo,
		"getbestblockhash":     handleGetBestBlockHash,
		"getblockcount":        handleGetBlockCount,
		"submitblock":          handleSubmitBlock,
	}
}

func errorCodeLabel(code int) string {
	return strconv.Itoa(code)
}

// param decodes the optional positional parameter i into v. It reports
// whether the parameter was present and not null.
func param(params []jsoniter.RawMessage, i int, name string, v interface{}) (bool, error) {
	if i >= len(params) || len(params[i]) == 0 || string(params[i]) == "null" {
		return false, nil
	}

	if err := json.Unmarshal(params[i], v); err != nil {
		return false, rpcInvalidParamsError("invalid %s: %v", name, err)
	}

	return true, nil
}

func requiredParam(params []jsoniter.RawMessage, i int, name string, v interface{}) error {
	found, err := param(params, i, name, v)
	if err != nil {
		return err
	}

	if !found {
		return rpcInvalidParamsError("missing %s", name)
	}

	return nil
}

func decodeHexParam(params []jsoniter.RawMessage, i int, name string) ([]byte, error) {
	var s string
	if err := requiredParam(params, i, name, &s); err != nil {
		return nil, err
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, rpcDecodeHexError(name, err)
	}

	return b, nil
}

func decodeHexList(list []string, name string) ([][]byte, error) {
	out := make([][]byte, len(list))

	for i, s := range list {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, rpcDecodeHexError(fmt.Sprintf("%s[%d]", name, i), err)
		}

		out[i] = b
	}

	return out, nil
}

// handleGetBlockTemplate implements getblocktemplate ( {"mode":"template"} requestRoots ).
func handleGetBlockTemplate(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	var (
		request      blockassembly.TemplateRequest
		requestRoots bool
	)

	if _, err := param(params, 0, "template request", &request); err != nil {
		return nil, err
	}

	if _, err := param(params, 1, "requestRoots", &requestRoots); err != nil {
		return nil, err
	}

	template, err := s.blockAssemblyClient.GetBlockTemplate(ctx, &request, requestRoots)
	if err != nil {
		return nil, err
	}

	return newGetBlockTemplateResult(template), nil
}

func newGetBlockTemplateResult(t *model.BlockTemplate) *GetBlockTemplateResult {
	result := &GetBlockTemplateResult{
		Version:           t.Version,
		PreviousBlockHash: t.PreviousHash.String(),
		Height:            t.Height,
		CurTime:           t.BuildTime.Unix(),
		Bits:              fmt.Sprintf("%08x", t.Bits),
		CoinbaseValue:     t.CoinbaseValue,
		CoinbaseTxn: TemplateTransaction{
			Data: t.Coinbase.String(),
			Hash: t.Coinbase.TxID(),
			Fee:  -int64(t.TotalFees()), //nolint:gosec
		},
		Transactions: make([]TemplateTransaction, len(t.Transactions)),
		Certificates: make([]TemplateCertificate, len(t.Certificates)),
		TemplateID:   t.ID,
	}

	for i, tx := range t.Transactions {
		result.Transactions[i] = TemplateTransaction{
			Data: hex.EncodeToString(tx.Bytes()),
			Hash: tx.Hash.String(),
			Fee:  int64(tx.Fee), //nolint:gosec
		}
	}

	for i, cert := range t.Certificates {
		result.Certificates[i] = TemplateCertificate{
			Data:        hex.EncodeToString(cert.Bytes()),
			Hash:        cert.Hash().String(),
			ScID:        cert.ScID.String(),
			EpochNumber: cert.EpochNumber,
			Quality:     cert.Quality,
			Fee:         int64(cert.Fee), //nolint:gosec
		}
	}

	if t.Roots != nil {
		result.MerkleTree = t.Roots.MerkleTree.String()
		result.ScTxsCommitment = t.Roots.ScTxsCommitment.String()
	}

	return result
}

// handleGetBlockMerkleRoots implements getblockmerkleroots ["coinbase hex", "tx hex", ...] ["cert hex", ...].
func handleGetBlockMerkleRoots(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	var (
		txList   []string
		certList []string
	)

	if err := requiredParam(params, 0, "transactions", &txList); err != nil {
		return nil, err
	}

	if _, err := param(params, 1, "certificates", &certList); err != nil {
		return nil, err
	}

	rawTxs, err := decodeHexList(txList, "transactions")
	if err != nil {
		return nil, err
	}

	rawCerts, err := decodeHexList(certList, "certificates")
	if err != nil {
		return nil, err
	}

	roots, err := s.blockAssemblyClient.GetBlockMerkleRoots(ctx, rawTxs, rawCerts)
	if err != nil {
		return nil, err
	}

	return &GetBlockMerkleRootsResult{
		MerkleTree:      roots.MerkleTree.String(),
		ScTxsCommitment: roots.ScTxsCommitment.String(),
	}, nil
}

// handleSendRawTransaction implements sendrawtransaction "hex" fee.
func handleSendRawTransaction(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	raw, err := decodeHexParam(params, 0, "transaction")
	if err != nil {
		return nil, err
	}

	var fee uint64
	if _, err = param(params, 1, "fee", &fee); err != nil {
		return nil, err
	}

	tx, err := bt.NewTxFromBytes(raw)
	if err != nil {
		return nil, NewRPCError(ErrRPCDecodeHexString, "transaction decode failed: %v", err)
	}

	pooled, err := model.NewTransaction(tx, fee, time.Now())
	if err != nil {
		return nil, err
	}

	if err = s.pool.AddTransaction(ctx, pooled); err != nil {
		return nil, err
	}

	return pooled.Hash.String(), nil
}

// handleSendRawCertificate implements sendrawcertificate "hex".
func handleSendRawCertificate(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	raw, err := decodeHexParam(params, 0, "certificate")
	if err != nil {
		return nil, err
	}

	cert, err := model.NewCertificateFromBytes(raw)
	if err != nil {
		return nil, NewRPCError(ErrRPCDecodeHexString, "certificate decode failed: %v", err)
	}

	cert.ArrivalTime = time.Now()

	if err = s.pool.AddCertificate(ctx, cert); err != nil {
		return nil, err
	}

	return cert.Hash().String(), nil
}

// handleDecodeRawCertificate implements decoderawcertificate "hex".
func handleDecodeRawCertificate(_ context.Context, _ *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	var certHex string
	if err := requiredParam(params, 0, "certificate", &certHex); err != nil {
		return nil, err
	}

	cert, err := model.NewCertificateFromString(certHex)
	if err != nil {
		return nil, NewRPCError(ErrRPCDecodeHexString, "certificate decode failed: %v", err)
	}

	result := &DecodeRawCertificateResult{
		Hash:                        cert.Hash().String(),
		Version:                     cert.Version,
		ScID:                        cert.ScID.String(),
		EpochNumber:                 cert.EpochNumber,
		Quality:                     cert.Quality,
		EndEpochCumScTxCommTreeRoot: cert.EndEpochCumScTxCommTreeRoot.String(),
		BackwardTransfers:           make([]BackwardTransferResult, len(cert.BackwardTransfers)),
		TotalBackwardTransfers:      cert.TotalBackwardTransfers(),
		Fee:                         cert.Fee,
		Proof:                       hex.EncodeToString(cert.Proof),
	}

	for i, bwt := range cert.BackwardTransfers {
		result.BackwardTransfers[i] = BackwardTransferResult{
			PubKeyHash: hex.EncodeToString(bwt.PubKeyHash[:]),
			Amount:     bwt.Amount,
		}
	}

	return result, nil
}

// handleRegisterSidechain implements registersidechain {"scid": "...", "version": 0, "withdrawalEpochLength": 10}.
func handleRegisterSidechain(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	var p RegisterSidechainParams
	if err := requiredParam(params, 0, "sidechain", &p); err != nil {
		return nil, err
	}

	scID, err := chainhash.NewHashFromStr(p.ScID)
	if err != nil {
		return nil, rpcDecodeHexError("scid", err)
	}

	tip, err := s.blockchainClient.GetBestBlock(ctx)
	if err != nil {
		return nil, err
	}

	if err = s.sidechains.Add(ctx, &model.Sidechain{
		ID:                    *scID,
		Version:               p.Version,
		WithdrawalEpochLength: p.WithdrawalEpochLength,
		CreationHeight:        tip.Height,
	}); err != nil {
		return nil, err
	}

	return scID.String(), nil
}

// handleGetScInfo implements getscinfo "scid".
func handleGetScInfo(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	var scIDStr string
	if err := requiredParam(params, 0, "scid", &scIDStr); err != nil {
		return nil, err
	}

	scID, err := chainhash.NewHashFromStr(scIDStr)
	if err != nil {
		return nil, rpcDecodeHexError("scid", err)
	}

	sc, err := s.sidechains.Get(ctx, *scID)
	if err != nil {
		return nil, err
	}

	return &GetScInfoResult{
		ScID:                  sc.ID.String(),
		Version:               sc.Version,
		WithdrawalEpochLength: sc.WithdrawalEpochLength,
		CreationHeight:        sc.CreationHeight,
		Ceasing:               sc.Ceasable(),
	}, nil
}

func handleGetMempoolInfo(_ context.Context, s *RPCServer, _ []jsoniter.RawMessage) (interface{}, error) {
	info := s.pool.Info()

	result := &GetMempoolInfoResult{
		Size:         info.Transactions,
		Certificates: info.Certificates,
		Bytes:        info.SizeInBytes,
		Sequence:     info.Sequence,
	}

	if !info.LastUpdated.IsZero() {
		result.LastUpdated = info.LastUpdated.Unix()
	}

	return result, nil
}

func handleGetBestBlockHash(ctx context.Context, s *RPCServer, _ []jsoniter.RawMessage) (interface{}, error) {
	tip, err := s.blockchainClient.GetBestBlock(ctx)
	if err != nil {
		return nil, err
	}

	return tip.Hash.String(), nil
}

func handleGetBlockCount(ctx context.Context, s *RPCServer, _ []jsoniter.RawMessage) (interface{}, error) {
	tip, err := s.blockchainClient.GetBestBlock(ctx)
	if err != nil {
		return nil, err
	}

	return tip.Height, nil
}

// handleSubmitBlock implements submitblock "hex". A null result means the block was accepted.
func handleSubmitBlock(ctx context.Context, s *RPCServer, params []jsoniter.RawMessage) (interface{}, error) {
	raw, err := decodeHexParam(params, 0, "block")
	if err != nil {
		return nil, err
	}

	block, err := model.NewBlockFromBytes(raw)
	if err != nil {
		return nil, NewRPCError(ErrRPCDecodeHexString, "block decode failed: %v", err)
	}

	if err = s.blockAssemblyClient.SubmitBlock(ctx, block); err != nil {
		return nil, err
	}

	return nil, nil
}
